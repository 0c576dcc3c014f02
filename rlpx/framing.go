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
	"crypto/subtle"
	"fmt"
	"hash"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

const (
	maxUint24 = 1<<24 - 1

	frameHeaderSize     = 16 // encoded header
	frameHeaderFullSize = 32 // encoded header + MAC
)

// frameHeader is the RLP-encoded content of a frame header's
// header-data field: [protocol-id, (context-id)]. This session never
// multiplexes protocols, so protocol is always 0; keeping the RLP
// layout lets the wire format stay byte-compatible with peers that do
// multiplex.
type frameHeader struct {
	Protocol uint16
}

// frameRW implements the post-handshake frame codec: a single
// AES-256-CTR stream per direction and two independent Keccak-256 MAC
// sponges, seeded by the handshake.
type frameRW struct {
	conn io.ReadWriter

	macCipher cipher.Block

	enc       cipher.Stream
	egressMAC hash.Hash

	dec        cipher.Stream
	ingressMAC hash.Hash
}

// newFrameRW builds the frame codec state from the handshake secrets.
// Both CTR streams use an all-zero IV because aesSecret is ephemeral
// and never reused across sessions.
func newFrameRW(conn io.ReadWriter, s secrets) (*frameRW, error) {
	macCipher, err := aes.NewCipher(s.MAC)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid mac secret: %v", ErrCrypto, err)
	}
	encCipher, err := aes.NewCipher(s.AES)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid aes secret: %v", ErrCrypto, err)
	}
	iv := make([]byte, encCipher.BlockSize())
	return &frameRW{
		conn:       conn,
		macCipher:  macCipher,
		enc:        cipher.NewCTR(encCipher, iv),
		dec:        cipher.NewCTR(encCipher, iv),
		egressMAC:  s.EgressMAC,
		ingressMAC: s.IngressMAC,
	}, nil
}

// writeFrame encrypts and authenticates body as a single frame and
// writes it to conn. The write is atomic: a short write to conn is a
// fatal session error, never a half-frame.
func (rw *frameRW) writeFrame(body []byte) error {
	size := len(body)
	if size == 0 || size > maxUint24 {
		return fmt.Errorf("%w: frame body length %d out of range", ErrMalformed, size)
	}

	header := make([]byte, frameHeaderSize)
	putInt24(header, uint32(size))
	headerData, err := rlp.EncodeToBytes(frameHeader{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	copy(header[3:], headerData)
	rw.enc.XORKeyStream(header, header)
	headerMAC := updateMAC(rw.egressMAC, rw.macCipher, header)

	padded := make([]byte, size+pad16(size))
	copy(padded, body)
	rw.enc.XORKeyStream(padded, padded)
	rw.egressMAC.Write(padded)
	fmacSeed := rw.egressMAC.Sum(nil)
	bodyMAC := updateMAC(rw.egressMAC, rw.macCipher, fmacSeed)

	frame := make([]byte, 0, frameHeaderFullSize+len(padded)+16)
	frame = append(frame, header...)
	frame = append(frame, headerMAC...)
	frame = append(frame, padded...)
	frame = append(frame, bodyMAC...)

	_, err = rw.conn.Write(frame)
	return err
}

// readFrame reads, verifies, and decrypts the next frame from conn.
// It blocks until a full frame has been verified; any MAC mismatch
// returns ErrMacFailed without exposing plaintext.
func (rw *frameRW) readFrame() ([]byte, error) {
	headbuf := make([]byte, frameHeaderFullSize)
	if _, err := io.ReadFull(rw.conn, headbuf); err != nil {
		return nil, err
	}
	encHeader, headerMAC := headbuf[:16], headbuf[16:]

	expected := updateMAC(rw.ingressMAC, rw.macCipher, encHeader)
	if subtle.ConstantTimeCompare(expected, headerMAC) != 1 {
		return nil, ErrMacFailed
	}

	header := append([]byte(nil), encHeader...)
	rw.dec.XORKeyStream(header, header)
	bodyLen := readInt24(header)
	if bodyLen == 0 || bodyLen > maxUint24 {
		return nil, fmt.Errorf("%w: frame body length %d out of range", ErrMalformed, bodyLen)
	}

	rsize := int(bodyLen) + pad16(int(bodyLen))
	buf := make([]byte, rsize+16)
	if _, err := io.ReadFull(rw.conn, buf); err != nil {
		return nil, err
	}
	encBody, bodyMAC := buf[:rsize], buf[rsize:]

	rw.ingressMAC.Write(encBody)
	fmacSeed := rw.ingressMAC.Sum(nil)
	expected = updateMAC(rw.ingressMAC, rw.macCipher, fmacSeed)
	if subtle.ConstantTimeCompare(expected, bodyMAC) != 1 {
		return nil, ErrMacFailed
	}

	body := append([]byte(nil), encBody...)
	rw.dec.XORKeyStream(body, body)
	return body[:bodyLen], nil
}

// updateMAC clones and finalizes the sponge, AES-256-ECB-encrypts the
// first 16 bytes of that digest under the session's MAC secret, XORs
// the result with seed, absorbs the mixed block into the live sponge,
// and returns the first 16 bytes of the resulting digest. Only the
// absorb mutates the sponge.
func updateMAC(mac hash.Hash, block cipher.Block, seed []byte) []byte {
	digest := mac.Sum(nil)[:16]
	encrypted := make([]byte, aes.BlockSize)
	block.Encrypt(encrypted, digest)
	for i := range encrypted {
		encrypted[i] ^= seed[i]
	}
	mac.Write(encrypted)
	return mac.Sum(nil)[:16]
}

func putInt24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func readInt24(b []byte) uint32 {
	return uint32(b[2]) | uint32(b[1])<<8 | uint32(b[0])<<16
}

// pad16 returns the number of zero bytes needed to round n up to the
// next multiple of 16.
func pad16(n int) int {
	if r := n % 16; r > 0 {
		return 16 - r
	}
	return 0
}
