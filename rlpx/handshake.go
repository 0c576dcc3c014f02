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
	"crypto/rand"
	"fmt"
	"hash"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/sha3"
)

const (
	sigLen = 65 // 64-byte compact signature + 1-byte recovery id
	pubLen = 64 // uncompressed secp256k1 pubkey, no 0x04 tag
	shaLen = 32 // Keccak-256 / nonce size

	authMsgLen  = sigLen + shaLen + pubLen + shaLen + 1 // 194
	authRespLen = pubLen + shaLen + 1                   // 97

	encAuthMsgLen  = authMsgLen + eciesOverhead  // 307
	encAuthRespLen = authRespLen + eciesOverhead // 210
)

// handshake carries the initiator-side state of the encryption
// handshake. It is discarded once secrets() has produced the session
// secrets.
type handshake struct {
	localKey  *btcec.PrivateKey
	remoteKey *btcec.PublicKey // remote static public key

	randomKey *btcec.PrivateKey // rand_sk / rand_pk
	initNonce []byte            // our nonce

	remoteRandomPub *btcec.PublicKey // remote rand_pk, from the ack
	remoteNonce     []byte           // remote nonce, from the ack

	authSent []byte // exact ciphertext bytes we wrote
	authRecv []byte // exact ciphertext bytes we read
}

// secrets represents the connection secrets negotiated during the
// encryption handshake.
type secrets struct {
	RemoteID              *ecdsa.PublicKey
	AES, MAC              []byte
	EgressMAC, IngressMAC hash.Hash
	Token                 []byte
}

// newHandshake creates initiator handshake state: a fresh nonce and a
// fresh ephemeral keypair.
func newHandshake(localKey *btcec.PrivateKey, remoteKey *btcec.PublicKey) (*handshake, error) {
	nonce := make([]byte, shaLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	ephemeral, err := generateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return &handshake{
		localKey:  localKey,
		remoteKey: remoteKey,
		randomKey: ephemeral,
		initNonce: nonce,
	}, nil
}

// authMsg builds and ECIES-encrypts the initiator auth message:
// signature || sha3(ecdhe-random-pubk) || pubk || nonce || token-flag.
// The returned bytes are also retained in h.authSent, since the MAC
// seed later depends on the exact ciphertext.
func (h *handshake) authMsg() ([]byte, error) {
	staticShared := ecdhX(h.localKey, h.remoteKey)

	signed := xor32(staticShared, h.initNonce)
	sig, err := sign(signed, h.randomKey)
	if err != nil {
		return nil, err
	}

	msg := make([]byte, authMsgLen)
	n := copy(msg, sig)
	n += copy(msg[n:], keccak256(exportPubkey64(h.randomKey.PubKey())))
	n += copy(msg[n:], exportPubkey64(h.localKey.PubKey()))
	n += copy(msg[n:], h.initNonce)
	msg[n] = 0 // token-flag: no prior session

	enc, err := eciesEncrypt(h.remoteKey, msg)
	if err != nil {
		return nil, err
	}
	h.authSent = enc
	return enc, nil
}

// decodeAck decrypts and parses the responder's ack:
// ecdhe-random-pubk || nonce || token-flag. The raw ciphertext is
// retained in h.authRecv.
func (h *handshake) decodeAck(ack []byte) error {
	h.authRecv = ack
	msg, err := eciesDecrypt(h.localKey, ack)
	if err != nil {
		return err
	}
	if len(msg) != authRespLen {
		return fmt.Errorf("%w: ack plaintext has wrong length", ErrMalformed)
	}

	remoteRandomPub, err := importPubkey65(msg[:pubLen])
	if err != nil {
		return err
	}
	tokenFlag := msg[pubLen+shaLen]
	if tokenFlag != 0 {
		// Session resumption is not implemented.
		return fmt.Errorf("%w: nonzero token-flag", ErrMalformed)
	}

	h.remoteRandomPub = remoteRandomPub
	h.remoteNonce = append([]byte(nil), msg[pubLen:pubLen+shaLen]...)
	return nil
}

// secrets derives the connection secrets and seeds the egress and
// ingress MAC sponges from the handshake's ephemeral key agreement.
// Ephemeral handshake state is no longer needed afterwards.
func (h *handshake) secrets() (secrets, error) {
	ephemeralShared := ecdhX(h.randomKey, h.remoteRandomPub)

	sharedSecret := keccak256(ephemeralShared, keccak256(h.remoteNonce, h.initNonce))
	aesSecret := keccak256(ephemeralShared, sharedSecret)
	macSecret := keccak256(ephemeralShared, aesSecret)
	token := keccak256(sharedSecret)

	egressMAC := sha3.NewLegacyKeccak256()
	egressMAC.Write(xor32(macSecret, h.remoteNonce))
	egressMAC.Write(h.authSent)

	ingressMAC := sha3.NewLegacyKeccak256()
	ingressMAC.Write(xor32(macSecret, h.initNonce))
	ingressMAC.Write(h.authRecv)

	return secrets{
		RemoteID:   ecdsaPublicKey(h.remoteKey),
		AES:        aesSecret,
		MAC:        macSecret,
		Token:      token,
		EgressMAC:  egressMAC,
		IngressMAC: ingressMAC,
	}, nil
}

// initiatorHandshake negotiates session secrets on conn. It should be
// called only on the dialing side of the connection.
func initiatorHandshake(conn io.ReadWriter, localKey *btcec.PrivateKey, remoteKey *btcec.PublicKey) (secrets, error) {
	h, err := newHandshake(localKey, remoteKey)
	if err != nil {
		return secrets{}, err
	}

	auth, err := h.authMsg()
	if err != nil {
		return secrets{}, err
	}
	if _, err := conn.Write(auth); err != nil {
		return secrets{}, err
	}

	ack := make([]byte, encAuthRespLen)
	if _, err := io.ReadFull(conn, ack); err != nil {
		return secrets{}, err
	}
	if err := h.decodeAck(ack); err != nil {
		return secrets{}, err
	}

	return h.secrets()
}

// keccak256 hashes the concatenation of its arguments.
func keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// xor32 XORs two 32-byte slices byte-for-byte.
func xor32(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
