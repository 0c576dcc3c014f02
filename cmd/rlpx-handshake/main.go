// Command rlpx-handshake runs the initiator side of an RLPx handshake
// against a remote node and exchanges a single test frame, to exercise
// the transport end to end outside of unit tests.
package main

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/sciyoshi/etherust/rlpx"
)

var (
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}
	keyFlag = cli.StringFlag{
		Name:  "key",
		Usage: "file containing a hex-encoded secp256k1 private key (default: ephemeral)",
	}
	remoteFlag = cli.StringFlag{
		Name:  "remote",
		Usage: "hex-encoded remote static public key (64 or 65 bytes)",
	}
)

var genkeyCommand = cli.Command{
	Name:   "genkey",
	Usage:  "generate a secp256k1 private key and print it as hex",
	Action: genkey,
}

var dialCommand = cli.Command{
	Name:      "dial",
	Usage:     "dial a remote node and run the RLPx handshake",
	ArgsUsage: "<host:port>",
	Flags:     []cli.Flag{keyFlag, remoteFlag},
	Action:    dial,
}

func main() {
	app := cli.NewApp()
	app.Name = "rlpx-handshake"
	app.Usage = "perform RLPx handshakes against a remote node"
	app.Flags = []cli.Flag{verbosityFlag}
	app.Commands = []cli.Command{genkeyCommand, dialCommand}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) {
	level := slog.Level((3 - ctx.GlobalInt(verbosityFlag.Name)) * -4) // crit(0)..trace(5) -> slog levels
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, true)))
}

func genkey(ctx *cli.Context) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(crypto.FromECDSA(key)))
	return nil
}

func dial(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: rlpx-handshake dial [options] <host:port>")
	}
	addr := ctx.Args().Get(0)

	key, err := loadOrGenerateKey(ctx.String(keyFlag.Name))
	if err != nil {
		return fmt.Errorf("loading local key: %w", err)
	}
	remote, err := parseRemotePubkey(ctx.String(remoteFlag.Name))
	if err != nil {
		return fmt.Errorf("parsing -remote: %w", err)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	sess, err := rlpx.Dial(conn, remote, &rlpx.Config{Key: key})
	if err != nil {
		return fmt.Errorf("handshake with %s failed: %w", addr, err)
	}
	defer sess.Close()
	log.Info("handshake complete", "remote", addr, "state", sess.State())

	if err := sess.WriteFrame([]byte("hello")); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	reply, err := sess.ReadFrame()
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}
	fmt.Printf("received frame: %q\n", reply)
	return nil
}

// loadOrGenerateKey reads a hex-encoded private key from path, or
// generates a fresh ephemeral key when path is empty.
func loadOrGenerateKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		return crypto.GenerateKey()
	}
	return crypto.LoadECDSA(path)
}

// parseRemotePubkey decodes a hex-encoded 64- or 65-byte uncompressed
// public key into a standard library key.
func parseRemotePubkey(s string) (*ecdsa.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 64 {
		b = append([]byte{0x04}, b...)
	}
	return crypto.UnmarshalPubkey(b)
}
