// Package testlog provides a log.Logger implementation that forwards
// to a testing.T/B, so that log output from a package under test
// attaches to the test that produced it instead of going to stdout.
package testlog

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/log"
)

// T is the subset of *testing.T/B that Logger needs.
type T interface {
	Logf(format string, args ...any)
	Helper()
}

// Logger returns a log.Logger that writes through t.Logf at the given
// level.
func Logger(t T, level slog.Level) log.Logger {
	return log.NewLogger(log.NewTerminalHandlerWithLevel(&writer{t: t}, level, false))
}

// writer adapts T to io.Writer so it can back a log.Handler.
type writer struct{ t T }

func (w *writer) Write(b []byte) (int, error) {
	w.t.Helper()
	w.t.Logf("%s", b)
	return len(b), nil
}
