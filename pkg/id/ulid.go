// Package id generates opaque, lexicographically sortable identifiers for
// bulk jobs and their items. Sorting IDs sorts by creation time, which keeps
// index scans over recent jobs cheap.
package id

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Crockford's Base32 alphabet (excludes I, L, O, U to avoid confusion).
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewULID generates a 26-character ULID: 10 chars of 48-bit millisecond
// timestamp followed by 16 chars of 80-bit randomness.
func NewULID() string {
	var bin [16]byte

	ms := uint64(time.Now().UnixMilli())
	bin[0] = byte(ms >> 40)
	bin[1] = byte(ms >> 32)
	bin[2] = byte(ms >> 24)
	bin[3] = byte(ms >> 16)
	bin[4] = byte(ms >> 8)
	bin[5] = byte(ms)

	if _, err := rand.Read(bin[6:]); err != nil {
		// Degraded but functional: time-based entropy when the CSPRNG is
		// unavailable.
		binary.BigEndian.PutUint64(bin[6:14], uint64(time.Now().UnixNano()))
	}

	// 128 bits in, 26 base32 chars out. Walk the bit string 5 bits at a
	// time, starting 2 bits early so the timestamp lands on a 10-char
	// boundary (128 = 26*5 - 2; the leading 2 bits are always zero for
	// any timestamp before the year 10889).
	var out [26]byte
	bits := uint(2)
	acc := uint(0)
	j := 0
	for i := range out {
		for bits < 5 && j < len(bin) {
			acc = acc<<8 | uint(bin[j])
			bits += 8
			j++
		}
		bits -= 5
		out[i] = alphabet[(acc>>bits)&0x1F]
		acc &= (1 << bits) - 1
	}

	return string(out[:])
}
