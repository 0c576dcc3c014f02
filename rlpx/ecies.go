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
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// eciesOverhead is the number of bytes ECIES adds around a plaintext:
// a 65-byte uncompressed ephemeral public key, a 16-byte IV, and a
// 32-byte HMAC tag.
const eciesOverhead = 65 + 16 + 32

// eciesEncrypt encrypts msg to the static public key r. It is a
// variant of the scheme in RFC5091: the MAC key km is hashed with
// SHA-256 before use, where RFC5091 would use the raw KDF output.
// This deviation is deliberate and must be matched exactly by any
// interoperating implementation.
func eciesEncrypt(r *btcec.PublicKey, msg []byte) ([]byte, error) {
	e, err := generateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	z := ecdhX(e, r)

	ke, km := deriveEciesKeys(z)

	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	ct, err := aesCTR(ke, iv, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	tag := hmacSHA256(km, iv, ct)

	out := make([]byte, 0, 65+len(iv)+len(ct)+len(tag))
	out = append(out, e.PubKey().SerializeUncompressed()...)
	out = append(out, iv...)
	out = append(out, ct...)
	out = append(out, tag...)
	return out, nil
}

// eciesDecrypt decrypts an ECIES envelope produced by eciesEncrypt
// using the static secret key priv.
func eciesDecrypt(priv *btcec.PrivateKey, msg []byte) ([]byte, error) {
	if len(msg) < eciesOverhead {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrMalformed)
	}

	ephemeral, err := importPubkey65(msg[:65])
	if err != nil {
		return nil, err
	}
	z := ecdhX(priv, ephemeral)
	ke, km := deriveEciesKeys(z)

	body := msg[65 : len(msg)-32]
	gotTag := msg[len(msg)-32:]
	wantTag := hmacSHA256(km, body)
	if subtle.ConstantTimeCompare(gotTag, wantTag) != 1 {
		return nil, ErrAuthFailed
	}

	iv, ct := body[:16], body[16:]
	pt, err := aesCTR(ke, iv, ct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return pt, nil
}

// deriveEciesKeys runs the Concat-KDF over the ECDH output z and
// splits the result into the AES-128 key ke and the SHA-256-hashed
// HMAC key km.
func deriveEciesKeys(z []byte) (ke, km []byte) {
	k := concatKDF(sha256.New(), z, nil, 32)
	ke = k[:16]
	kmRaw := k[16:32]
	sum := sha256.Sum256(kmRaw)
	return ke, sum[:]
}

func hmacSHA256(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// aesCTR runs AES-128-CTR under key/iv over src, producing a
// same-length output (encryption and decryption are the same
// operation under CTR mode).
func aesCTR(key, iv, src []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCTR(block, iv)
	dst := make([]byte, len(src))
	stream.XORKeyStream(dst, src)
	return dst, nil
}
