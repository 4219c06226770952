package pir

import (
	"fmt"

	"github.com/claucece/chalamet/lwe"
)

// packEntry reads raw as a little-endian bit stream and chunks it into
// groups of exactly p.Bits bits, the last group zero-extended. Each group
// becomes one word of the returned row, so every word lies in [0, P).
func packEntry(raw []byte, elemSize int, p lwe.PlaintextParams) ([]uint32, error) {

	if len(raw) != elemSize {
		return nil, fmt.Errorf("element is %d bytes, want %d: %w", len(raw), elemSize, ErrLengthMismatch)
	}

	elemBits := 8 * elemSize
	row := make([]uint32, p.RowWidth(elemSize))

	for w := range row {
		var v uint32
		for b := 0; b < p.Bits; b++ {
			i := w*p.Bits + b
			if i >= elemBits {
				break
			}
			v |= uint32((raw[i>>3]>>(i&7))&1) << b
		}
		row[w] = v
	}

	return row, nil
}

// unpackEntry inverts packEntry, dropping the trailing padding bits to
// yield exactly elemSize bytes. Words are reduced modulo P before their
// bits are read, so a decoded-but-unreduced row round-trips as well.
// The row must have width p.RowWidth(elemSize).
func unpackEntry(row []uint32, elemSize int, p lwe.PlaintextParams) []byte {

	elemBits := 8 * elemSize
	out := make([]byte, elemSize)

	for w, v := range row {
		v &= p.Mask()
		for b := 0; b < p.Bits; b++ {
			i := w*p.Bits + b
			if i >= elemBits {
				break
			}
			out[i>>3] |= uint8((v>>b)&1) << (i & 7)
		}
	}

	return out
}
