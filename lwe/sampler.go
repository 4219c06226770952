package lwe

import (
	"github.com/claucece/chalamet/utils/sampling"
)

// TernarySampler samples vectors with coefficients uniform in {-1, 0, 1}
// over the mod-2^32 ring, -1 being represented as ^uint32(0).
type TernarySampler struct {
	*sampling.Source
}

// NewTernarySampler instantiates a new [TernarySampler] reading from source.
func NewTernarySampler(source *sampling.Source) *TernarySampler {
	return &TernarySampler{Source: source}
}

// WithSource returns an instance of the receiver reading from a new
// [sampling.Source]. It can be used concurrently with the original sampler.
func (s *TernarySampler) WithSource(source *sampling.Source) *TernarySampler {
	return &TernarySampler{Source: source}
}

// Read samples a ternary coefficient into each entry of vec.
func (s *TernarySampler) Read(vec []uint32) {
	s.sample(vec, func(a, b uint32) uint32 {
		return b
	})
}

// ReadNew allocates and samples a ternary vector of n entries.
func (s *TernarySampler) ReadNew(n int) (vec []uint32) {
	vec = make([]uint32, n)
	s.Read(vec)
	return
}

// ReadAndAdd samples a ternary coefficient and adds it, wrapping, onto each
// entry of vec.
func (s *TernarySampler) ReadAndAdd(vec []uint32) {
	s.sample(vec, func(a, b uint32) uint32 {
		return a + b
	})
}

var ternaryLUT = [3]uint32{0, 1, ^uint32(0)}

func (s *TernarySampler) sample(vec []uint32, f func(a, b uint32) uint32) {

	var buf [64]byte
	var avail int

	for i := range vec {
		// Rejection sampling over pairs of bits keeps the three values
		// exactly equiprobable.
		for {
			if avail == 0 {
				s.mustRead(buf[:])
				avail = len(buf) << 2
			}
			avail--
			b := (buf[avail>>2] >> ((avail & 3) << 1)) & 3
			if b != 3 {
				vec[i] = f(vec[i], ternaryLUT[b])
				break
			}
		}
	}
}

func (s *TernarySampler) mustRead(p []byte) {
	if _, err := s.Source.Read(p); err != nil {
		// Sanity check, this error should not happen.
		panic(err)
	}
}
