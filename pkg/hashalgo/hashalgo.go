// Package hashalgo implements the polymorphic hash primitive the sync
// engine dispatches through: a current (cryptographic) algorithm and a
// previous (fast) algorithm, both producing a 16-byte seeded digest.
package hashalgo

import (
	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Size is the width, in bytes, of a digest produced by any Algorithm.
const Size = 16

// SeedSize is the width, in bytes, of the seed passed to an Algorithm.
const SeedSize = 16

// ID identifies a hash algorithm for persistence in the content file.
type ID uint8

const (
	// IDBlake2b identifies the Blake2b algorithm.
	IDBlake2b ID = iota
	// IDXXHash identifies the XXHash algorithm.
	IDXXHash
)

// Digest is a 16-byte hash output.
type Digest [Size]byte

// IsZero reports whether d is the "no hash known" sentinel.
func IsZero(d Digest) bool {
	return d == Digest{}
}

// IsReal is the complement of IsZero.
func IsReal(d Digest) bool {
	return !IsZero(d)
}

// Algorithm computes a seeded digest over a block of data.
type Algorithm interface {
	ID() ID
	Sum(seed [SeedSize]byte, data []byte) Digest
}

// Blake2b is the cryptographic hash algorithm, used as the "current"
// algorithm for long-term silent-corruption detection.
type Blake2b struct{}

// ID implements Algorithm.
func (Blake2b) ID() ID { return IDBlake2b }

// Sum implements Algorithm using keyed BLAKE2b truncated to Size bytes.
func (Blake2b) Sum(seed [SeedSize]byte, data []byte) Digest {
	h, err := blake2b.New(Size, seed[:])
	if err != nil {
		// Size and key length are both within blake2b's supported
		// range; this can only fail on programmer error.
		panic(err)
	}
	h.Write(data)
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// XXHash is the fast hash algorithm, used as the "previous" algorithm
// that a rehash migrates away from.
type XXHash struct{}

// ID implements Algorithm.
func (XXHash) ID() ID { return IDXXHash }

// Sum implements Algorithm. xxhash has no keyed-MAC mode, so the seed is
// folded into the digest input ahead of the data.
func (XXHash) Sum(seed [SeedSize]byte, data []byte) Digest {
	d := xxhash.New()
	d.Write(seed[:])
	d.Write(data)
	sum := d.Sum64()
	var out Digest
	out[0] = byte(sum)
	out[1] = byte(sum >> 8)
	out[2] = byte(sum >> 16)
	out[3] = byte(sum >> 24)
	out[4] = byte(sum >> 32)
	out[5] = byte(sum >> 40)
	out[6] = byte(sum >> 48)
	out[7] = byte(sum >> 56)
	// Remaining bytes stay zero: xxhash64 only carries 8 bytes of
	// entropy, the rest pads out to the common Digest width.
	return out
}

// ForID returns the Algorithm implementation for id.
func ForID(id ID) Algorithm {
	switch id {
	case IDXXHash:
		return XXHash{}
	default:
		return Blake2b{}
	}
}
