package buffer

import (
	"encoding/binary"
	"io"

	"golang.org/x/exp/constraints"
)

// ReadUint8 reads a single byte from r into c.
func ReadUint8(r Reader, c *uint8) (n int64, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	*c = b
	return 1, nil
}

// ReadUint32 reads a little-endian uint32 from r into c.
func ReadUint32(r Reader, c *uint32) (n int64, err error) {
	var buf [4]byte
	inc, err := io.ReadFull(r, buf[:])
	if err != nil {
		return int64(inc), err
	}
	*c = binary.LittleEndian.Uint32(buf[:])
	return int64(inc), nil
}

// ReadUint64 reads a little-endian uint64 from r into c.
func ReadUint64(r Reader, c *uint64) (n int64, err error) {
	var buf [8]byte
	inc, err := io.ReadFull(r, buf[:])
	if err != nil {
		return int64(inc), err
	}
	*c = binary.LittleEndian.Uint64(buf[:])
	return int64(inc), nil
}

// ReadAsUint8 reads a byte from r and casts it to T.
func ReadAsUint8[T constraints.Integer](r Reader, c *T) (n int64, err error) {
	var v uint8
	if n, err = ReadUint8(r, &v); err != nil {
		return
	}
	*c = T(v)
	return
}

// ReadAsUint32 reads a little-endian uint32 from r and casts it to T.
func ReadAsUint32[T constraints.Integer](r Reader, c *T) (n int64, err error) {
	var v uint32
	if n, err = ReadUint32(r, &v); err != nil {
		return
	}
	*c = T(v)
	return
}

// ReadAsUint64 reads a little-endian uint64 from r and casts it to T.
func ReadAsUint64[T constraints.Integer](r Reader, c *T) (n int64, err error) {
	var v uint64
	if n, err = ReadUint64(r, &v); err != nil {
		return
	}
	*c = T(v)
	return
}

// ReadUint8Slice reads len(s) bytes from r into s.
func ReadUint8Slice(r Reader, s []uint8) (n int64, err error) {
	inc, err := io.ReadFull(r, s)
	return int64(inc), err
}

// ReadUint32Slice reads len(s) little-endian uint32 from r into s.
func ReadUint32Slice(r Reader, s []uint32) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize>>2)
		inc, err := io.ReadFull(r, buf[:chunk<<2])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		for i := range s[:chunk] {
			s[i] = binary.LittleEndian.Uint32(buf[i<<2:])
		}
		s = s[chunk:]
	}
	return
}

// ReadUint64Slice reads len(s) little-endian uint64 from r into s.
func ReadUint64Slice(r Reader, s []uint64) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize>>3)
		inc, err := io.ReadFull(r, buf[:chunk<<3])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		for i := range s[:chunk] {
			s[i] = binary.LittleEndian.Uint64(buf[i<<3:])
		}
		s = s[chunk:]
	}
	return
}

// ReadAsUint8Slice reads len(s) bytes from r and casts them to T.
func ReadAsUint8Slice[T constraints.Integer](r Reader, s []T) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize)
		inc, err := io.ReadFull(r, buf[:chunk])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		for i := range s[:chunk] {
			s[i] = T(buf[i])
		}
		s = s[chunk:]
	}
	return
}

// ReadAsUint16Slice reads len(s) little-endian uint16 from r and casts them to T.
func ReadAsUint16Slice[T constraints.Integer](r Reader, s []T) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize>>1)
		inc, err := io.ReadFull(r, buf[:chunk<<1])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		for i := range s[:chunk] {
			s[i] = T(binary.LittleEndian.Uint16(buf[i<<1:]))
		}
		s = s[chunk:]
	}
	return
}

// ReadAsUint32Slice reads len(s) little-endian uint32 from r and casts them to T.
func ReadAsUint32Slice[T constraints.Integer](r Reader, s []T) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize>>2)
		inc, err := io.ReadFull(r, buf[:chunk<<2])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		for i := range s[:chunk] {
			s[i] = T(binary.LittleEndian.Uint32(buf[i<<2:]))
		}
		s = s[chunk:]
	}
	return
}

// ReadAsUint64Slice reads len(s) little-endian uint64 from r and casts them to T.
func ReadAsUint64Slice[T constraints.Integer](r Reader, s []T) (n int64, err error) {
	var buf [scratchSize]byte
	for len(s) > 0 {
		chunk := min(len(s), scratchSize>>3)
		inc, err := io.ReadFull(r, buf[:chunk<<3])
		n += int64(inc)
		if err != nil {
			return n, err
		}
		for i := range s[:chunk] {
			s[i] = T(binary.LittleEndian.Uint64(buf[i<<3:]))
		}
		s = s[chunk:]
	}
	return
}
