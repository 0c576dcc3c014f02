package rlpx

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
)

// runHandshakePair drives a real initiator handshake against the
// test-only responder over a net.Pipe, returning both sides' derived
// secrets.
func runHandshakePair(t *testing.T, initKey, respKey *btcec.PrivateKey) (initSecrets, respSecrets secrets) {
	t.Helper()

	initConn, respConn := net.Pipe()
	defer initConn.Close()
	defer respConn.Close()

	respNonce := make([]byte, shaLen)
	if _, err := rand.Read(respNonce); err != nil {
		t.Fatal(err)
	}
	responder, err := newTestResponder(respKey, respNonce)
	if err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 2)
	var is, rs secrets

	go func() {
		var err error
		is, err = initiatorHandshake(initConn, initKey, respKey.PubKey())
		errc <- err
	}()
	go func() {
		auth := make([]byte, encAuthMsgLen)
		if _, err := io.ReadFull(respConn, auth); err != nil {
			errc <- err
			return
		}
		if err := responder.decodeAuth(auth); err != nil {
			errc <- err
			return
		}
		ack, err := responder.authResp()
		if err != nil {
			errc <- err
			return
		}
		if _, err := respConn.Write(ack); err != nil {
			errc <- err
			return
		}
		rs, err = responder.secrets()
		errc <- err
	}()

	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil {
			t.Fatalf("handshake goroutine failed: %v", err)
		}
	}
	return is, rs
}

func TestHandshakeSharedSecrets(t *testing.T) {
	initKey, _ := generateKey()
	respKey, _ := generateKey()

	is, rs := runHandshakePair(t, initKey, respKey)

	if !bytes.Equal(is.AES, rs.AES) {
		t.Errorf("AES secrets differ")
	}
	if !bytes.Equal(is.MAC, rs.MAC) {
		t.Errorf("MAC secrets differ")
	}
	if !bytes.Equal(is.Token, rs.Token) {
		t.Errorf("token secrets differ")
	}
	if !is.RemoteID.Equal(ecdsaPublicKey(respKey.PubKey())) {
		t.Errorf("initiator RemoteID does not match responder static key")
	}

	// Initiator's egress pairs with responder's ingress, and vice
	// versa. hash.Hash.Sum is non-mutating, so comparing Sum(nil) is
	// safe and doesn't disturb either sponge's state.
	if !bytes.Equal(is.EgressMAC.Sum(nil), rs.IngressMAC.Sum(nil)) {
		t.Errorf("initiator egress / responder ingress MAC mismatch")
	}
	if !bytes.Equal(is.IngressMAC.Sum(nil), rs.EgressMAC.Sum(nil)) {
		t.Errorf("initiator ingress / responder egress MAC mismatch")
	}
}

func TestHandshakeRejectsNonzeroAckTokenFlag(t *testing.T) {
	localKey, _ := generateKey()
	remoteKey, _ := generateKey()

	h, err := newHandshake(localKey, remoteKey.PubKey())
	if err != nil {
		t.Fatal(err)
	}

	msg := make([]byte, authRespLen)
	copy(msg, exportPubkey64(remoteKey.PubKey()))
	copy(msg[pubLen:], bytes.Repeat([]byte{0x01}, shaLen))
	msg[len(msg)-1] = 1 // nonzero token-flag

	enc, err := eciesEncrypt(localKey.PubKey(), msg)
	if err != nil {
		t.Fatal(err)
	}

	if err := h.decodeAck(enc); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestHandshakeRejectsShortAck(t *testing.T) {
	localKey, _ := generateKey()
	remoteKey, _ := generateKey()
	h, err := newHandshake(localKey, remoteKey.PubKey())
	if err != nil {
		t.Fatal(err)
	}

	enc, err := eciesEncrypt(localKey.PubKey(), make([]byte, authRespLen-1))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.decodeAck(enc); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}
