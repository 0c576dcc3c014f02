// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package rlpx

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/log"
)

// state tracks the session lifecycle: Fresh -> AuthSent ->
// AckReceived -> Operational -> Closed. Closed is terminal; there is
// no recovery from any handshake or frame error.
type state int32

const (
	stateFresh state = iota
	stateAuthSent
	stateAckReceived
	stateOperational
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateFresh:
		return "fresh"
	case stateAuthSent:
		return "auth-sent"
	case stateAckReceived:
		return "ack-received"
	case stateOperational:
		return "operational"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config configures a Session. After being passed to Dial it must not
// be modified; a Config may be reused across dials.
type Config struct {
	// Key is the local static secp256k1 private key. Required.
	Key *ecdsa.PrivateKey
}

// Session is a handshaked RLPx connection. It owns the underlying
// stream and the per-direction MAC/CTR state produced by the
// handshake, and exposes a synchronous ReadFrame/WriteFrame surface.
// WriteFrame calls are serialized by an internal lock, and so are
// ReadFrame calls, since each advances its own direction's sponge and
// CTR stream. The two directions share no
// mutable state, so one goroutine may safely call WriteFrame while
// another calls ReadFrame.
type Session struct {
	conn net.Conn
	cfg  *Config

	remoteStatic *ecdsa.PublicKey

	state int32 // atomic, one of the state* constants

	wmu sync.Mutex
	rmu sync.Mutex
	rw  *frameRW

	// token is the session-resumption token derived during the
	// handshake. It is exposed to callers but never consumed:
	// resumption is not implemented.
	token []byte
}

// Dial runs the initiator handshake on conn against remoteStatic, the
// remote peer's known 65-byte uncompressed static public key, and
// returns a Session in the ack-received state, ready for
// ReadFrame/WriteFrame; the first successful frame makes it
// operational.
//
// Dial consumes conn: on any handshake error, conn is left open for
// the caller to close, and the returned error is one of
// ErrMalformed, ErrAuthFailed, or ErrCrypto (or a plain I/O error).
func Dial(conn net.Conn, remoteStatic *ecdsa.PublicKey, cfg *Config) (*Session, error) {
	if cfg == nil || cfg.Key == nil {
		return nil, fmt.Errorf("%w: missing local key", ErrMalformed)
	}
	s := &Session{conn: conn, cfg: cfg, remoteStatic: remoteStatic}
	if err := s.handshake(); err != nil {
		s.setState(stateClosed)
		log.Debug("rlpx: handshake failed", "remote", conn.RemoteAddr(), "err", err)
		return nil, err
	}
	return s, nil
}

func (s *Session) setState(v state) {
	for {
		cur := atomic.LoadInt32(&s.state)
		if state(cur) == stateClosed {
			return
		}
		if atomic.CompareAndSwapInt32(&s.state, cur, int32(v)) {
			return
		}
	}
}

func (s *Session) getState() state {
	return state(atomic.LoadInt32(&s.state))
}

// State returns the session's current lifecycle state, mostly useful
// for tests and diagnostics.
func (s *Session) State() string {
	return s.getState().String()
}

func (s *Session) handshake() error {
	localKey := privKeyFromECDSA(s.cfg.Key)
	remoteKey, err := pubKeyFromECDSA(s.remoteStatic)
	if err != nil {
		return err
	}

	h, err := newHandshake(localKey, remoteKey)
	if err != nil {
		return err
	}

	auth, err := h.authMsg()
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(auth); err != nil {
		return err
	}
	s.setState(stateAuthSent)
	log.Debug("rlpx: auth sent", "remote", s.conn.RemoteAddr())

	ack := make([]byte, encAuthRespLen)
	if _, err := io.ReadFull(s.conn, ack); err != nil {
		return err
	}
	if err := h.decodeAck(ack); err != nil {
		return err
	}

	sec, err := h.secrets()
	if err != nil {
		return err
	}
	rw, err := newFrameRW(s.conn, sec)
	if err != nil {
		return err
	}

	s.rw = rw
	s.remoteStatic = sec.RemoteID
	s.token = sec.Token
	s.setState(stateAckReceived)
	log.Debug("rlpx: ack received", "remote", s.conn.RemoteAddr())
	return nil
}

// WriteFrame encrypts, authenticates, and writes body as a single
// frame. body must satisfy 0 < len(body) < 2^24. Writes are atomic: a
// partial write is treated as a fatal session error.
func (s *Session) WriteFrame(body []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if err := s.rw.writeFrame(body); err != nil {
		s.fail(err)
		return err
	}
	s.setState(stateOperational)
	return nil
}

// ReadFrame reads, verifies, and decrypts the next frame. It blocks
// until a full frame has been read and authenticated.
func (s *Session) ReadFrame() ([]byte, error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	body, err := s.rw.readFrame()
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.setState(stateOperational)
	return body, nil
}

// fail moves the session to the terminal Closed state. No further
// ReadFrame/WriteFrame calls should be made; the caller is expected to
// close the underlying connection.
func (s *Session) fail(err error) {
	s.setState(stateClosed)
	log.Debug("rlpx: session closed", "remote", s.conn.RemoteAddr(), "err", err)
}

// RemoteID returns the remote peer's static public key. It is only
// valid once Dial has returned successfully.
func (s *Session) RemoteID() *ecdsa.PublicKey {
	return s.remoteStatic
}

// Token returns the opaque session-resumption token derived during
// the handshake. The core never interprets it further.
func (s *Session) Token() []byte {
	return s.token
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	s.setState(stateClosed)
	return s.conn.Close()
}

// privKeyFromECDSA converts a standard library secp256k1 key to the
// btcec representation the handshake operates on.
func privKeyFromECDSA(priv *ecdsa.PrivateKey) *btcec.PrivateKey {
	d := make([]byte, 32)
	priv.D.FillBytes(d)
	k, _ := btcec.PrivKeyFromBytes(d)
	return k
}

// pubKeyFromECDSA converts a standard library secp256k1 public key to
// the btcec representation, validating that it lies on the curve.
func pubKeyFromECDSA(pub *ecdsa.PublicKey) (*btcec.PublicKey, error) {
	raw := elliptic.Marshal(pub.Curve, pub.X, pub.Y)
	return importPubkey65(raw)
}
