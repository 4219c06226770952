package structs

import (
	"bufio"
	"fmt"
	"io"

	"github.com/claucece/chalamet/utils/buffer"
	"golang.org/x/exp/constraints"
)

// Vector is a struct wrapping a slice of components of type T.
// T must be one of uint, uint64, uint32, uint16, uint8/byte, int,
// int64, int32, int16 or int8.
type Vector[T constraints.Integer] []T

// Size returns the number of components of the receiver.
func (v Vector[T]) Size() int {
	return len(v)
}

// Clone returns a deep copy of the object.
func (v Vector[T]) Clone() (vcpy Vector[T]) {
	vcpy = make(Vector[T], len(v))
	copy(vcpy, v)
	return
}

// BinarySize returns the serialized size of the object in bytes.
func (v Vector[T]) BinarySize() (size int) {
	var t T
	switch any(t).(type) {
	case uint, uint64, int, int64:
		return 8 + len(v)*8
	case uint32, int32:
		return 8 + len(v)*4
	case uint16, int16:
		return 8 + len(v)*2
	case uint8, int8:
		return 8 + len(v)
	default:
		panic(fmt.Errorf("vector component of type %T is not a fixed-width integer", t))
	}
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, and will write exactly object.BinarySize() bytes on w.
//
// Unless w implements the [buffer.Writer] interface, it will be wrapped into
// a bufio.Writer.
func (v Vector[T]) WriteTo(w io.Writer) (n int64, err error) {

	switch w := w.(type) {
	case buffer.Writer:

		var inc int64
		if inc, err = buffer.WriteAsUint64[int](w, len(v)); err != nil {
			return inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}

		n += inc

		var t T
		switch any(t).(type) {
		case uint, uint64, int, int64:
			inc, err = buffer.WriteAsUint64Slice[T](w, v)
		case uint32, int32:
			inc, err = buffer.WriteAsUint32Slice[T](w, v)
		case uint16, int16:
			inc, err = buffer.WriteAsUint16Slice[T](w, v)
		case uint8, int8:
			inc, err = buffer.WriteAsUint8Slice[T](w, v)
		default:
			return n, fmt.Errorf("vector component of type %T is not a fixed-width integer", t)
		}

		if err != nil {
			return n + inc, fmt.Errorf("write %T slice: %w", t, err)
		}

		n += inc

		return n, w.Flush()

	default:
		return v.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
//
// Unless r implements the [buffer.Reader] interface, it will be wrapped into
// a bufio.Reader.
func (v *Vector[T]) ReadFrom(r io.Reader) (n int64, err error) {

	switch r := r.(type) {
	case buffer.Reader:

		var inc int64
		var size int

		if inc, err = buffer.ReadAsUint64[int](r, &size); err != nil {
			return inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}

		n += inc

		if cap(*v) < size {
			*v = make([]T, size)
		}

		*v = (*v)[:size]

		var t T
		switch any(t).(type) {
		case uint, uint64, int, int64:
			inc, err = buffer.ReadAsUint64Slice[T](r, *v)
		case uint32, int32:
			inc, err = buffer.ReadAsUint32Slice[T](r, *v)
		case uint16, int16:
			inc, err = buffer.ReadAsUint16Slice[T](r, *v)
		case uint8, int8:
			inc, err = buffer.ReadAsUint8Slice[T](r, *v)
		default:
			return n, fmt.Errorf("vector component of type %T is not a fixed-width integer", t)
		}

		if err != nil {
			return n + inc, fmt.Errorf("read %T slice: %w", t, err)
		}

		n += inc

		return n, nil

	default:
		return v.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (v Vector[T]) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(v.BinarySize())
	_, err = v.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (v *Vector[T]) UnmarshalBinary(p []byte) (err error) {
	_, err = v.ReadFrom(buffer.NewBuffer(p))
	return
}

// Equal performs a deep equal.
func (v Vector[T]) Equal(other Vector[T]) bool {

	if len(v) != len(other) {
		return false
	}

	var t T
	switch any(t).(type) {
	case uint, uint64, int, int64:
		return buffer.EqualAsUint64Slice([]T(v), []T(other))
	case uint32, int32, uint16, int16:
		return buffer.EqualAsUint64Slice([]T(v), []T(other))
	case uint8, int8:
		return buffer.EqualAsUint8Slice([]T(v), []T(other))
	default:
		panic(fmt.Errorf("vector component of type %T is not a fixed-width integer", t))
	}
}
