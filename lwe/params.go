// Package lwe implements the integer primitives of the LWE-based PIR
// protocol: plaintext parameters, seed-compressed uniform matrices over the
// mod-2^32 ring, ternary samplers and wrapping vector arithmetic.
package lwe

import (
	"bufio"
	"fmt"
	"io"

	"github.com/claucece/chalamet/utils/buffer"
)

// MaxPlaintextBits is the largest supported packing width. The packing must
// leave at least one bit of headroom in the 32-bit ring for the rounding
// scale.
const MaxPlaintextBits = 31

// PlaintextParams groups the constants derived from the packing width:
// the rounding factor Delta = 2^(32-bits) at which selectors are scaled,
// the rounding floor Delta/2 and the plaintext modulus P = 2^bits.
type PlaintextParams struct {
	Bits int
}

// NewPlaintextParams returns the [PlaintextParams] for the given packing
// width, which must lie in [1, MaxPlaintextBits].
func NewPlaintextParams(bits int) (p PlaintextParams, err error) {
	if bits < 1 || bits > MaxPlaintextBits {
		return p, fmt.Errorf("plaintext bits must lie in [1, %d] but is %d", MaxPlaintextBits, bits)
	}
	return PlaintextParams{Bits: bits}, nil
}

// RoundingFactor returns Delta = 2^(32-bits).
func (p PlaintextParams) RoundingFactor() uint32 {
	return 1 << (32 - p.Bits)
}

// RoundingFloor returns Delta/2, the threshold above which a remainder
// rounds up.
func (p PlaintextParams) RoundingFloor() uint32 {
	return p.RoundingFactor() >> 1
}

// Modulus returns the plaintext modulus P = 2^bits.
func (p PlaintextParams) Modulus() uint32 {
	return 1 << p.Bits
}

// Mask returns P-1, the mask reducing a word modulo P.
func (p PlaintextParams) Mask() uint32 {
	return p.Modulus() - 1
}

// RowWidth returns the number of packed words needed to represent
// elemSize bytes, i.e. ceil(8*elemSize/bits).
func (p PlaintextParams) RowWidth(elemSize int) int {
	return (8*elemSize + p.Bits - 1) / p.Bits
}

// Equal performs a deep equal.
func (p PlaintextParams) Equal(other *PlaintextParams) bool {
	return p.Bits == other.Bits
}

// BinarySize returns the serialized size of the object in bytes.
func (p PlaintextParams) BinarySize() int {
	return 1
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface.
func (p PlaintextParams) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:
		if n, err = buffer.WriteAsUint8[int](w, p.Bits); err != nil {
			return n, err
		}
		return n, w.Flush()
	default:
		return p.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (p *PlaintextParams) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:
		if n, err = buffer.ReadAsUint8[int](r, &p.Bits); err != nil {
			return n, err
		}
		if p.Bits < 1 || p.Bits > MaxPlaintextBits {
			return n, fmt.Errorf("plaintext bits must lie in [1, %d] but is %d", MaxPlaintextBits, p.Bits)
		}
		return
	default:
		return p.ReadFrom(bufio.NewReader(r))
	}
}
