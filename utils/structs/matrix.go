package structs

import (
	"bufio"
	"fmt"
	"io"

	"github.com/claucece/chalamet/utils/buffer"
	"golang.org/x/exp/constraints"
)

// Matrix is a struct wrapping a slice of [Vector]. Rows may have distinct
// lengths; the serialization is row-count prefixed and each row carries its
// own length.
type Matrix[T constraints.Integer] []Vector[T]

// Rows returns the number of rows of the receiver.
func (m Matrix[T]) Rows() int {
	return len(m)
}

// Clone returns a deep copy of the object.
func (m Matrix[T]) Clone() (mcpy Matrix[T]) {
	mcpy = make(Matrix[T], len(m))
	for i := range m {
		mcpy[i] = m[i].Clone()
	}
	return
}

// BinarySize returns the serialized size of the object in bytes.
func (m Matrix[T]) BinarySize() (size int) {
	size = 8
	for i := range m {
		size += m[i].BinarySize()
	}
	return
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, and will write exactly object.BinarySize() bytes on w.
//
// Unless w implements the [buffer.Writer] interface, it will be wrapped into
// a bufio.Writer.
func (m Matrix[T]) WriteTo(w io.Writer) (n int64, err error) {

	switch w := w.(type) {
	case buffer.Writer:

		var inc int64
		if inc, err = buffer.WriteAsUint64[int](w, len(m)); err != nil {
			return inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}

		n += inc

		for i := range m {
			if inc, err = m[i].WriteTo(w); err != nil {
				return n + inc, fmt.Errorf("matrix row %d: %w", i, err)
			}
			n += inc
		}

		return n, w.Flush()

	default:
		return m.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
//
// Unless r implements the [buffer.Reader] interface, it will be wrapped into
// a bufio.Reader.
func (m *Matrix[T]) ReadFrom(r io.Reader) (n int64, err error) {

	switch r := r.(type) {
	case buffer.Reader:

		var inc int64
		var size int

		if inc, err = buffer.ReadAsUint64[int](r, &size); err != nil {
			return inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}

		n += inc

		if cap(*m) < size {
			*m = make(Matrix[T], size)
		}

		*m = (*m)[:size]

		for i := range *m {
			if inc, err = (*m)[i].ReadFrom(r); err != nil {
				return n + inc, fmt.Errorf("matrix row %d: %w", i, err)
			}
			n += inc
		}

		return n, nil

	default:
		return m.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (m Matrix[T]) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(m.BinarySize())
	_, err = m.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (m *Matrix[T]) UnmarshalBinary(p []byte) (err error) {
	_, err = m.ReadFrom(buffer.NewBuffer(p))
	return
}

// Equal performs a deep equal.
func (m Matrix[T]) Equal(other Matrix[T]) bool {

	if len(m) != len(other) {
		return false
	}

	for i := range m {
		if !m[i].Equal(other[i]) {
			return false
		}
	}

	return true
}
