// Package sampling implements a seeded cryptographically secure pseudo-random source.
package sampling

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Source is a deterministic pseudo-random byte stream keyed by a 32-byte seed.
// Two parties instantiating a Source with the same seed read the exact same
// stream, which is what makes seed-compressed public matrices possible.
//
// A Source is not safe for concurrent use; derive per-goroutine sources with
// [Source.NewSource].
type Source struct {
	seed [32]byte
	xof  blake2b.XOF
}

// NewSource instantiates a new [Source] from a 32-byte seed.
func NewSource(seed [32]byte) *Source {
	xof, err := blake2b.NewXOF(blake2b.OutputLengthUnknown, seed[:])
	if err != nil {
		// Sanity check, blake2b only rejects keys larger than 64 bytes.
		panic(err)
	}
	return &Source{seed: seed, xof: xof}
}

// NewSeed samples a fresh 32-byte seed from the OS RNG.
func NewSeed() (seed [32]byte) {
	if _, err := rand.Read(seed[:]); err != nil {
		panic(err)
	}
	return
}

// Seed returns the seed the receiver was instantiated with.
// The stream position is not part of the returned state.
func (s *Source) Seed() (seed [32]byte) {
	return s.seed
}

// NewSeed derives a child seed from the receiver's stream.
func (s *Source) NewSeed() (seed [32]byte) {
	s.mustRead(seed[:])
	return
}

// NewSource derives a new independent [Source] from the receiver's stream.
func (s *Source) NewSource() *Source {
	return NewSource(s.NewSeed())
}

// Read fills p with pseudo-random bytes, advancing the stream.
// It implements io.Reader and never returns a short read.
func (s *Source) Read(p []byte) (n int, err error) {
	return io.ReadFull(s.xof, p)
}

// Uint64 returns the next 8 bytes of the stream as a little-endian uint64.
func (s *Source) Uint64() uint64 {
	var buf [8]byte
	s.mustRead(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// Uint32 returns the next 4 bytes of the stream as a little-endian uint32.
func (s *Source) Uint32() uint32 {
	var buf [4]byte
	s.mustRead(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func (s *Source) mustRead(p []byte) {
	if _, err := io.ReadFull(s.xof, p); err != nil {
		// Sanity check, the blake2b XOF in unknown-length mode cannot be exhausted.
		panic(err)
	}
}
