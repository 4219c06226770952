package buffer

import (
	"encoding/binary"

	"golang.org/x/exp/constraints"
)

const scratchSize = 512

// WriteUint8 writes a single byte on w.
func WriteUint8(w Writer, c uint8) (n int64, err error) {
	inc, err := w.Write([]byte{c})
	return int64(inc), err
}

// WriteUint32 writes a little-endian uint32 on w.
func WriteUint32(w Writer, c uint32) (n int64, err error) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], c)
	inc, err := w.Write(buf[:])
	return int64(inc), err
}

// WriteUint64 writes a little-endian uint64 on w.
func WriteUint64(w Writer, c uint64) (n int64, err error) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], c)
	inc, err := w.Write(buf[:])
	return int64(inc), err
}

// WriteAsUint8 casts c to a uint8 and writes it on w.
func WriteAsUint8[T constraints.Integer](w Writer, c T) (n int64, err error) {
	return WriteUint8(w, uint8(c))
}

// WriteAsUint32 casts c to a uint32 and writes it little-endian on w.
func WriteAsUint32[T constraints.Integer](w Writer, c T) (n int64, err error) {
	return WriteUint32(w, uint32(c))
}

// WriteAsUint64 casts c to a uint64 and writes it little-endian on w.
func WriteAsUint64[T constraints.Integer](w Writer, c T) (n int64, err error) {
	return WriteUint64(w, uint64(c))
}

// WriteUint8Slice writes a slice of bytes on w, without length prefix.
func WriteUint8Slice(w Writer, s []uint8) (n int64, err error) {
	inc, err := w.Write(s)
	return int64(inc), err
}

// WriteUint32Slice writes a slice of little-endian uint32 on w, without
// length prefix.
func WriteUint32Slice(w Writer, s []uint32) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize>>2)
		for i, c := range s[:chunk] {
			binary.LittleEndian.PutUint32(buf[i<<2:], c)
		}
		inc, err := w.Write(buf[:chunk<<2])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		s = s[chunk:]
	}
	return
}

// WriteUint64Slice writes a slice of little-endian uint64 on w, without
// length prefix.
func WriteUint64Slice(w Writer, s []uint64) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize>>3)
		for i, c := range s[:chunk] {
			binary.LittleEndian.PutUint64(buf[i<<3:], c)
		}
		inc, err := w.Write(buf[:chunk<<3])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		s = s[chunk:]
	}
	return
}

// WriteAsUint8Slice casts the components of s to uint8 and writes them on w,
// without length prefix.
func WriteAsUint8Slice[T constraints.Integer](w Writer, s []T) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize)
		for i, c := range s[:chunk] {
			buf[i] = uint8(c)
		}
		inc, err := w.Write(buf[:chunk])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		s = s[chunk:]
	}
	return
}

// WriteAsUint16Slice casts the components of s to uint16 and writes them
// little-endian on w, without length prefix.
func WriteAsUint16Slice[T constraints.Integer](w Writer, s []T) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize>>1)
		for i, c := range s[:chunk] {
			binary.LittleEndian.PutUint16(buf[i<<1:], uint16(c))
		}
		inc, err := w.Write(buf[:chunk<<1])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		s = s[chunk:]
	}
	return
}

// WriteAsUint32Slice casts the components of s to uint32 and writes them
// little-endian on w, without length prefix.
func WriteAsUint32Slice[T constraints.Integer](w Writer, s []T) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize>>2)
		for i, c := range s[:chunk] {
			binary.LittleEndian.PutUint32(buf[i<<2:], uint32(c))
		}
		inc, err := w.Write(buf[:chunk<<2])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		s = s[chunk:]
	}
	return
}

// WriteAsUint64Slice casts the components of s to uint64 and writes them
// little-endian on w, without length prefix.
func WriteAsUint64Slice[T constraints.Integer](w Writer, s []T) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize>>3)
		for i, c := range s[:chunk] {
			binary.LittleEndian.PutUint64(buf[i<<3:], uint64(c))
		}
		inc, err := w.Write(buf[:chunk<<3])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		s = s[chunk:]
	}
	return
}
