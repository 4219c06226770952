package lwe

import (
	"fmt"

	"github.com/claucece/chalamet/utils/sampling"
)

// Matrix is a dense row-major matrix over the mod-2^32 integer ring.
//
// The public LWE matrix A of a database of height m and secret dimension
// dim is stored with m rows of dim words each, i.e. row i holds the i-th
// column of the dim-by-m matrix of the protocol description. This is the
// order in which both parties stream the words out of the seeded source,
// and the order in which every product traverses the data.
type Matrix struct {
	rows, cols int
	data       []uint32
}

// NewMatrix allocates a zero rows-by-cols [Matrix].
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		rows: rows,
		cols: cols,
		data: make([]uint32, rows*cols),
	}
}

// NewUniformMatrix samples a rows-by-cols [Matrix] with uniform mod-2^32
// entries from source. The words are read row by row, little-endian, so two
// parties seeding identical sources derive identical matrices.
func NewUniformMatrix(source *sampling.Source, rows, cols int) *Matrix {
	m := NewMatrix(rows, cols)
	for i := range m.data {
		m.data[i] = source.Uint32()
	}
	return m
}

// Rows returns the number of rows of the receiver.
func (m *Matrix) Rows() int {
	return m.rows
}

// Cols returns the number of columns of the receiver.
func (m *Matrix) Cols() int {
	return m.cols
}

// At returns the entry at row i, column j.
func (m *Matrix) At(i, j int) uint32 {
	return m.data[i*m.cols+j]
}

// Row returns the i-th row of the receiver. The slice aliases the matrix
// storage.
func (m *Matrix) Row(i int) []uint32 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// Transpose returns a new cols-by-rows [Matrix] with the entries of the
// receiver mirrored across the diagonal.
func (m *Matrix) Transpose() *Matrix {
	t := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		row := m.Row(i)
		for j, c := range row {
			t.data[j*t.cols+i] = c
		}
	}
	return t
}

// MulVec returns out[i] = <m.Row(i), x> mod 2^32 for each row i.
func (m *Matrix) MulVec(x []uint32) (out []uint32, err error) {

	if len(x) != m.cols {
		return nil, fmt.Errorf("matrix columns: %w: %d != %d", ErrLengthMismatch, m.cols, len(x))
	}

	out = make([]uint32, m.rows)
	for i := range out {
		out[i] = dot(m.Row(i), x)
	}
	return
}

// MulVecTransposed returns out[j] = sum_i x[i]*m.At(i, j) mod 2^32, i.e.
// the product of x against the receiver read column-wise. The accumulation
// traverses the storage row by row.
func (m *Matrix) MulVecTransposed(x []uint32) (out []uint32, err error) {

	if len(x) != m.rows {
		return nil, fmt.Errorf("matrix rows: %w: %d != %d", ErrLengthMismatch, m.rows, len(x))
	}

	out = make([]uint32, m.cols)
	for i, c := range x {
		if c == 0 {
			continue
		}
		row := m.Row(i)
		for j := range out {
			out[j] += c * row[j]
		}
	}
	return
}

// Dot returns the inner product <x, y> mod 2^32.
func Dot(x, y []uint32) (v uint32, err error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("inner product: %w: %d != %d", ErrLengthMismatch, len(x), len(y))
	}
	return dot(x, y), nil
}

func dot(x, y []uint32) (v uint32) {
	for i := range x {
		v += x[i] * y[i]
	}
	return
}
