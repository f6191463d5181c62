package worldgen

import (
	"crypto/md5"
	"math/big"
	"math/rand"
)

// RNGFactory produces a per-tag deterministic PRNG: each tag is reseeded
// from MD5(tag || seed) reinterpreted as a large integer and narrowed to an
// int64, fed to Go's math/rand source. That source is not a Mersenne
// Twister and not bit-for-bit identical to CPython's; this repo is
// internally consistent (same seed, same tag -> same value, every run) but
// is not bit-portable against a reference implementation using a different
// PRNG.
type RNGFactory struct {
	seed []byte
}

// NewRNGFactory builds a factory over the given seed bytes.
func NewRNGFactory(seed []byte) *RNGFactory {
	return &RNGFactory{seed: append([]byte(nil), seed...)}
}

// Tag returns the deterministic PRNG for tag, seeded from
// MD5(tag || seed) reinterpreted as an integer.
func (f *RNGFactory) Tag(tag string) *rand.Rand {
	h := md5.Sum(append([]byte(tag), f.seed...))
	n := new(big.Int).SetBytes(h[:])
	return rand.New(rand.NewSource(n.Int64()))
}

// Float64 returns the single deterministic float64 value associated with
// tag.
func (f *RNGFactory) Float64(tag string) float64 {
	return f.Tag(tag).Float64()
}
