package rlpx

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/sha3"
)

// testResponder is a minimal responder-side handshake used only to
// drive the initiator under test in rlpx_test.go/handshake_test.go.
// The package itself never dials as a responder; this exists purely
// so the initiator's wire output can be exercised against a correct
// peer in tests.
type testResponder struct {
	localKey  *btcec.PrivateKey
	randomKey *btcec.PrivateKey
	respNonce []byte

	remoteKey       *btcec.PublicKey // initiator's static pubkey
	remoteRandomPub *btcec.PublicKey
	initNonce       []byte

	authRecv []byte
	authSent []byte
}

func newTestResponder(localKey *btcec.PrivateKey, nonce []byte) (*testResponder, error) {
	ephemeral, err := generateKey()
	if err != nil {
		return nil, err
	}
	return &testResponder{localKey: localKey, randomKey: ephemeral, respNonce: nonce}, nil
}

func (r *testResponder) decodeAuth(auth []byte) error {
	r.authRecv = auth
	msg, err := eciesDecrypt(r.localKey, auth)
	if err != nil {
		return err
	}
	if len(msg) != authMsgLen {
		return fmt.Errorf("%w: auth plaintext has wrong length", ErrMalformed)
	}

	sig := msg[:sigLen]
	hashedEphemeral := msg[sigLen : sigLen+shaLen]
	staticPub := msg[sigLen+shaLen : sigLen+shaLen+pubLen]
	nonce := msg[sigLen+shaLen+pubLen : sigLen+shaLen+pubLen+shaLen]
	tokenFlag := msg[len(msg)-1]
	if tokenFlag != 0 {
		return fmt.Errorf("%w: nonzero token-flag", ErrMalformed)
	}

	remoteKey, err := importPubkey65(staticPub)
	if err != nil {
		return err
	}

	staticShared := ecdhX(r.localKey, remoteKey)
	signed := xor32(staticShared, nonce)
	recoveredPub, err := ecrecover(signed, sig)
	if err != nil {
		return err
	}
	if !bytes.Equal(keccak256(recoveredPub[1:]), hashedEphemeral) {
		return fmt.Errorf("%w: ephemeral pubkey hash mismatch", ErrAuthFailed)
	}
	remoteRandomPub, err := importPubkey65(recoveredPub)
	if err != nil {
		return err
	}

	r.remoteKey = remoteKey
	r.remoteRandomPub = remoteRandomPub
	r.initNonce = append([]byte(nil), nonce...)
	return nil
}

func (r *testResponder) authResp() ([]byte, error) {
	msg := make([]byte, authRespLen)
	n := copy(msg, exportPubkey64(r.randomKey.PubKey()))
	n += copy(msg[n:], r.respNonce)
	msg[n] = 0

	enc, err := eciesEncrypt(r.remoteKey, msg)
	if err != nil {
		return nil, err
	}
	r.authSent = enc
	return enc, nil
}

// secrets mirrors handshake.secrets() with the responder's roles: the
// general rule is egress = (mac_secret XOR peer_nonce) || bytes_we_sent,
// ingress = (mac_secret XOR our_nonce) || bytes_we_received.
func (r *testResponder) secrets() (secrets, error) {
	ephemeralShared := ecdhX(r.randomKey, r.remoteRandomPub)

	sharedSecret := keccak256(ephemeralShared, keccak256(r.respNonce, r.initNonce))
	aesSecret := keccak256(ephemeralShared, sharedSecret)
	macSecret := keccak256(ephemeralShared, aesSecret)
	token := keccak256(sharedSecret)

	egressMAC := sha3.NewLegacyKeccak256()
	egressMAC.Write(xor32(macSecret, r.initNonce))
	egressMAC.Write(r.authSent)

	ingressMAC := sha3.NewLegacyKeccak256()
	ingressMAC.Write(xor32(macSecret, r.respNonce))
	ingressMAC.Write(r.authRecv)

	return secrets{
		RemoteID:   ecdsaPublicKey(r.remoteKey),
		AES:        aesSecret,
		MAC:        macSecret,
		Token:      token,
		EgressMAC:  egressMAC,
		IngressMAC: ingressMAC,
	}, nil
}
