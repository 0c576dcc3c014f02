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

// Package rlpx implements the initiator side of the devp2p RLPx
// transport: the ECIES-protected auth handshake that derives session
// secrets from two ECDH results, two nonces and a recoverable
// signature, and the framed AES-256-CTR codec that authenticates
// every frame with a running Keccak-256 egress/ingress MAC.
//
// The protocol specification lives at https://github.com/ethereum/devp2p.
//
// Only the initiator (dialing) side of the handshake is implemented.
// Responder handshake, EIP-8 variable-length handshakes, discovery,
// and the higher-level subprotocol messages are out of scope; package
// rlpx hands callers a Session exposing ReadFrame/WriteFrame and lets
// them build a subprotocol on top.
package rlpx
