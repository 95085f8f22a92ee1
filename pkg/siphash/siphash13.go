/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/

// Package siphash implements SipHash-2-4 (two compression rounds, four
// finalization rounds) keyed with (0, 0), matching the deprecated
// std::hash::SipHasher the reference cargo build tool still pins for
// its short registry and repository identifiers.
//
// This is a hand extraction rather than a reuse of an existing module:
// no SipHash implementation appeared anywhere in the retrieved example
// pack, and the output must be bit-compatible with an external tool's
// exact variant and round counts, which rules out adapting a
// general-purpose SipHash library with different round counts.
package siphash

import "encoding/binary"

const (
	initV0 = 0x736f6d6570736575
	initV1 = 0x646f72616e646f6d
	initV2 = 0x6c7967656e657261
	initV3 = 0x7465646279746573
)

func rotl(x uint64, b uint) uint64 {
	return (x << b) | (x >> (64 - b))
}

func round(v0, v1, v2, v3 *uint64) {
	*v0 += *v1
	*v1 = rotl(*v1, 13)
	*v1 ^= *v0
	*v0 = rotl(*v0, 32)
	*v2 += *v3
	*v3 = rotl(*v3, 16)
	*v3 ^= *v2
	*v0 += *v3
	*v3 = rotl(*v3, 21)
	*v3 ^= *v0
	*v2 += *v1
	*v1 = rotl(*v1, 17)
	*v1 ^= *v2
	*v2 = rotl(*v2, 32)
}

// Sum64 computes SipHash-2-4 of data keyed with (k0, k1).
func Sum64(k0, k1 uint64, data []byte) uint64 {
	v0 := initV0 ^ k0
	v1 := initV1 ^ k1
	v2 := initV2 ^ k0
	v3 := initV3 ^ k1

	length := len(data)
	n8 := length / 8
	for i := 0; i < n8; i++ {
		m := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		v3 ^= m
		round(&v0, &v1, &v2, &v3) // 2 compression rounds
		round(&v0, &v1, &v2, &v3)
		v0 ^= m
	}

	var last [8]byte
	copy(last[:], data[n8*8:])
	last[7] = byte(length)
	m := binary.LittleEndian.Uint64(last[:])
	v3 ^= m
	round(&v0, &v1, &v2, &v3)
	round(&v0, &v1, &v2, &v3)
	v0 ^= m

	v2 ^= 0xff
	round(&v0, &v1, &v2, &v3) // 4 finalization rounds
	round(&v0, &v1, &v2, &v3)
	round(&v0, &v1, &v2, &v3)
	round(&v0, &v1, &v2, &v3)

	return v0 ^ v1 ^ v2 ^ v3
}

// ShortHash reproduces the hash Rust's derived `Hash for str` feeds a
// Hasher: the string's bytes followed by a single 0xff terminator
// byte, run through SipHash-2-4 keyed (0, 0) as one continuous
// message, the resulting u64 encoded little-endian and rendered as 16
// lowercase hex digits. Callers that need to hash a struct of which a
// string is only one field (as cargo's SourceId does) must assemble
// the full byte sequence — including any leading discriminator — and
// append the same 0xff terminator themselves before calling Sum64.
func ShortHash(data []byte) string {
	return sumHex(append(append([]byte{}, data...), 0xff))
}

func sumHex(data []byte) string {
	h := Sum64(0, 0, data)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], h)
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i, b := range buf {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0xf]
	}
	return string(out)
}
