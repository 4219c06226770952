// Package bfuse implements a retrievable binary-fuse filter bank over the
// mod-2^32 integer ring.
//
// A bank replaces a hash table key -> row of values with a fixed set of
// integer arrays (one per row coordinate) such that, for every key, three
// deterministic positions sum to the coordinate value minus a key- and
// coordinate-derived mask, so adding the mask back recovers the value. The three positions depend only on the key and
// the shared seed, so they are identical across all arrays of the bank;
// the mask alone varies with the coordinate label.
package bfuse

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"math/bits"

	"github.com/cespare/xxhash/v2"
	"github.com/claucece/chalamet/utils/buffer"
)

const (
	// arity is the number of positions per key.
	arity = 3

	// maxSegmentLength bounds the segment size of large filters.
	maxSegmentLength = 1 << 18
)

// FilterParams is the public description of a filter bank: the 32-byte
// hashing seed and the segment geometry. It is all a client needs to
// re-derive the positions and the mask of any key.
type FilterParams struct {
	Seed               [32]byte
	SegmentLength      uint32
	SegmentLengthMask  uint32
	SegmentCountLength uint32
}

// newFilterParams derives the segment geometry for a filter over n keys,
// using the standard binary-fuse sizing heuristic for arity 3.
func newFilterParams(seed [32]byte, n int) (p FilterParams, arrayLength uint32) {

	segmentLength := uint32(4)
	if n > 0 {
		segmentLength = uint32(1) << int(math.Floor(math.Log(float64(n))/math.Log(3.33)+2.25))
	}
	if segmentLength > maxSegmentLength {
		segmentLength = maxSegmentLength
	}

	var capacity uint32
	if n > 1 {
		sizeFactor := math.Max(1.125, 0.875+0.25*math.Log(1e6)/math.Log(float64(n)))
		capacity = uint32(math.Round(float64(n) * sizeFactor))
	}

	initSegmentCount := (capacity + segmentLength - 1) / segmentLength
	arrayLength = (initSegmentCount + arity - 1) * segmentLength
	segmentCount := (arrayLength + segmentLength - 1) / segmentLength
	if segmentCount <= arity-1 {
		segmentCount = 1
	} else {
		segmentCount -= arity - 1
	}
	arrayLength = (segmentCount + arity - 1) * segmentLength

	return FilterParams{
		Seed:               seed,
		SegmentLength:      segmentLength,
		SegmentLengthMask:  segmentLength - 1,
		SegmentCountLength: segmentCount * segmentLength,
	}, arrayLength
}

// ArrayLength returns the length of each fingerprint array described by the
// receiver.
func (p FilterParams) ArrayLength() int {
	return int(p.SegmentCountLength + (arity-1)*p.SegmentLength)
}

// Positions returns the three filter positions of key. Each position lies
// in its own segment, so the three are always distinct.
func (p FilterParams) Positions(key [4]uint64) [arity]uint32 {
	return p.positionsFromHash(p.hashOfKey(key))
}

func (p FilterParams) positionsFromHash(h uint64) (pos [arity]uint32) {
	hi, _ := bits.Mul64(h, uint64(p.SegmentCountLength))
	pos[0] = uint32(hi)
	pos[1] = pos[0] + p.SegmentLength
	pos[2] = pos[1] + p.SegmentLength
	pos[1] ^= uint32(h>>18) & p.SegmentLengthMask
	pos[2] ^= uint32(h) & p.SegmentLengthMask
	return
}

// hashOfKey maps a key to the 64-bit hash the positions are derived from.
// The key words are hashed little-endian after the seed, so two parties
// agree on the positions regardless of platform.
func (p FilterParams) hashOfKey(key [4]uint64) uint64 {
	var d xxhash.Digest
	d.Reset()
	mustWrite(&d, p.Seed[:])
	var buf [32]byte
	for i, w := range key {
		binary.LittleEndian.PutUint64(buf[i<<3:], w)
	}
	mustWrite(&d, buf[:])
	return d.Sum64()
}

// Fingerprint returns the 64-bit mask of a key under the given label.
func (p FilterParams) Fingerprint(key [4]uint64, label uint64) uint64 {
	var d xxhash.Digest
	d.Reset()
	mustWrite(&d, p.Seed[:])
	var buf [40]byte
	for i, w := range key {
		binary.LittleEndian.PutUint64(buf[i<<3:], w)
	}
	binary.LittleEndian.PutUint64(buf[32:], label)
	mustWrite(&d, buf[:])
	return d.Sum64()
}

// UnmaskValue adds the mask of (key, label) back onto a masked position sum.
func (p FilterParams) UnmaskValue(masked uint32, key [4]uint64, label uint64) uint32 {
	return masked + uint32(p.Fingerprint(key, label))
}

// Equal performs a deep equal.
func (p FilterParams) Equal(other *FilterParams) bool {
	return p.Seed == other.Seed &&
		p.SegmentLength == other.SegmentLength &&
		p.SegmentLengthMask == other.SegmentLengthMask &&
		p.SegmentCountLength == other.SegmentCountLength
}

// BinarySize returns the serialized size of the object in bytes.
func (p FilterParams) BinarySize() int {
	return 32 + 3*4
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface.
func (p FilterParams) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = buffer.WriteUint8Slice(w, p.Seed[:]); err != nil {
			return n + inc, err
		}
		n += inc

		for _, c := range []uint32{p.SegmentLength, p.SegmentLengthMask, p.SegmentCountLength} {
			if inc, err = buffer.WriteUint32(w, c); err != nil {
				return n + inc, err
			}
			n += inc
		}

		return n, w.Flush()
	default:
		return p.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (p *FilterParams) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		if inc, err = buffer.ReadUint8Slice(r, p.Seed[:]); err != nil {
			return n + inc, err
		}
		n += inc

		for _, c := range []*uint32{&p.SegmentLength, &p.SegmentLengthMask, &p.SegmentCountLength} {
			if inc, err = buffer.ReadUint32(r, c); err != nil {
				return n + inc, err
			}
			n += inc
		}

		return
	default:
		return p.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (p FilterParams) MarshalBinary() (b []byte, err error) {
	buf := buffer.NewBufferSize(p.BinarySize())
	_, err = p.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (p *FilterParams) UnmarshalBinary(b []byte) (err error) {
	_, err = p.ReadFrom(buffer.NewBuffer(b))
	return
}

func mustWrite(d *xxhash.Digest, p []byte) {
	if _, err := d.Write(p); err != nil {
		// Sanity check, the xxhash digest cannot fail.
		panic(err)
	}
}
