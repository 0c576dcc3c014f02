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
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// This file wraps github.com/btcsuite/btcd/btcec/v2 behind the small
// surface the handshake needs: keypair generation, raw-X ECDH, and
// recoverable ECDSA sign/recover using a 64-byte r||s signature
// followed by a single recovery-id byte in {0, 1}, mirroring the call
// shape of go-ethereum's own
// crypto.Sign/crypto.Ecrecover/crypto.GenerateShared.

// generateKey returns a fresh secp256k1 keypair.
func generateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

// ecdhX returns the 32-byte X-coordinate of priv*pub, unhashed.
func ecdhX(priv *btcec.PrivateKey, pub *btcec.PublicKey) []byte {
	var pt secp256k1.JacobianPoint
	pub.AsJacobian(&pt)

	var shared secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&priv.Key, &pt, &shared)
	shared.ToAffine()

	x := shared.X.Bytes()
	out := make([]byte, 32)
	copy(out, x[:])
	return out
}

// sign produces a 65-byte recoverable signature r(32) || s(32) || v(1)
// with v in {0, 1}, over a 32-byte digest.
func sign(digest []byte, priv *btcec.PrivateKey) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("%w: digest must be 32 bytes", ErrMalformed)
	}
	compact := btcecdsa.SignCompact(priv, digest, false)
	if len(compact) != 65 {
		return nil, fmt.Errorf("%w: unexpected signature length", ErrCrypto)
	}
	// SignCompact header byte encodes 27 + recid (+ 4 if compressed).
	header := compact[0]
	recid := (header - 27) & 3

	sig := make([]byte, 65)
	copy(sig[:64], compact[1:])
	sig[64] = recid
	return sig, nil
}

// ecrecover recovers the 65-byte uncompressed public key (0x04 prefix)
// from a 65-byte r||s||v signature and the signed digest.
func ecrecover(digest, sig []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("%w: digest must be 32 bytes", ErrMalformed)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("%w: signature must be 65 bytes", ErrMalformed)
	}
	recid := sig[64]
	if recid > 1 {
		return nil, fmt.Errorf("%w: recovery id out of range", ErrMalformed)
	}

	compact := make([]byte, 65)
	compact[0] = 27 + recid
	copy(compact[1:], sig[:64])

	pub, _, err := btcecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return pub.SerializeUncompressed(), nil
}

// importPubkey65 parses a 64- or 65-byte public key (64 = no 0x04
// prefix) into a btcec point, validating it lies on the curve.
func importPubkey65(b []byte) (*btcec.PublicKey, error) {
	var raw []byte
	switch len(b) {
	case 64:
		raw = make([]byte, 65)
		raw[0] = 0x04
		copy(raw[1:], b)
	case 65:
		raw = b
	default:
		return nil, fmt.Errorf("%w: invalid public key length %d", ErrMalformed, len(b))
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return pub, nil
}

// exportPubkey64 returns the 64-byte (no 0x04 prefix) uncompressed
// encoding of pub.
func exportPubkey64(pub *btcec.PublicKey) []byte {
	return pub.SerializeUncompressed()[1:]
}

// ecdsaPublicKey converts a btcec public key to the standard library
// type, for callers that want RemoteID() in familiar form.
func ecdsaPublicKey(pub *btcec.PublicKey) *ecdsa.PublicKey {
	return pub.ToECDSA()
}
