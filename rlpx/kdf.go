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
	"encoding/binary"
	"hash"
)

// concatKDF implements the NIST SP 800-56 Concat-KDF over the given
// digest. It derives outLen bytes from z and s1. The corrected
// formulation: the source's concat_kdf has a buggy empty-result loop
// bound (see spec notes); this one always runs ceil(outLen/hashSize)
// iterations.
func concatKDF(h hash.Hash, z, s1 []byte, outLen int) []byte {
	var (
		counter = uint32(1)
		k       = make([]byte, 0, outLen)
		ctBytes = make([]byte, 4)
	)
	for len(k) < outLen {
		binary.BigEndian.PutUint32(ctBytes, counter)
		h.Reset()
		h.Write(ctBytes)
		h.Write(z)
		h.Write(s1)
		k = h.Sum(k)
		counter++
	}
	return k[:outLen]
}
