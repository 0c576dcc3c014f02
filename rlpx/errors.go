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

import "errors"

// Error kinds returned by the handshake and frame codec. All of them
// are terminal: once returned, the owning Session must be closed and
// never reused.
var (
	// ErrMalformed is returned for wrong-length fields, invalid curve
	// points, out-of-range recovery ids, or frame bodies outside
	// 0 < len < 2^24.
	ErrMalformed = errors.New("rlpx: malformed message")

	// ErrAuthFailed is returned when the ECIES HMAC tag does not
	// match during handshake decryption.
	ErrAuthFailed = errors.New("rlpx: authentication failed")

	// ErrMacFailed is returned when a frame's header or body MAC does
	// not match during ReadFrame.
	ErrMacFailed = errors.New("rlpx: frame mac mismatch")

	// ErrCrypto is returned for secp256k1 or AES failures that should
	// not occur for validated inputs.
	ErrCrypto = errors.New("rlpx: crypto operation failed")
)
