// Package pir implements the server and client sides of a single-server
// private information retrieval protocol based on the learning-with-errors
// problem, in two query modes: index retrieval (fetch row i without
// revealing i) and keyword retrieval (fetch the value of a key without
// revealing the key, via a binary-fuse filter bank).
package pir

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"iter"

	"github.com/claucece/chalamet/lwe"
	"github.com/claucece/chalamet/utils/buffer"
	"github.com/claucece/chalamet/utils/structs"
)

// DatabaseMatrix is the view of a database the server needs to answer
// queries: its height, its row width, and the product of a query against
// one of its columns.
type DatabaseMatrix interface {
	MatrixHeight() int
	RowWidth() int
	VecMult(query []uint32, col int) (uint32, error)
}

// IndexDatabase is an immutable database addressed by row index. The m
// packed rows of width w are stored column-major, as w columns of height m,
// so that the server computes one inner product per output coordinate.
type IndexDatabase struct {
	entries  structs.Matrix[uint32]
	m        int
	elemSize int
	ptxt     lwe.PlaintextParams
}

// NewIndexDatabase builds an [IndexDatabase] from exactly m base64-encoded
// elements of elemSize bytes each.
func NewIndexDatabase(elements []string, m, elemSize, plaintextBits int) (db *IndexDatabase, err error) {

	ptxt, err := lwe.NewPlaintextParams(plaintextBits)
	if err != nil {
		return nil, err
	}

	if len(elements) != m {
		return nil, fmt.Errorf("%w: %d elements for m=%d", ErrLengthMismatch, len(elements), m)
	}

	w := ptxt.RowWidth(elemSize)

	entries := make(structs.Matrix[uint32], w)
	for j := range entries {
		entries[j] = make(structs.Vector[uint32], m)
	}

	for i, e := range elements {

		raw, err := base64.StdEncoding.DecodeString(e)
		if err != nil {
			return nil, fmt.Errorf("decode element %d: %w", i, err)
		}

		row, err := packEntry(raw, elemSize, ptxt)
		if err != nil {
			return nil, fmt.Errorf("pack element %d: %w", i, err)
		}

		for j, v := range row {
			entries[j][i] = v
		}
	}

	log.Debugw("built index database", "m", m, "elemSize", elemSize, "rowWidth", w)

	return &IndexDatabase{
		entries:  entries,
		m:        m,
		elemSize: elemSize,
		ptxt:     ptxt,
	}, nil
}

func newIndexDatabaseFromEntries(entries structs.Matrix[uint32], m, elemSize, plaintextBits int) (db *IndexDatabase, err error) {

	ptxt, err := lwe.NewPlaintextParams(plaintextBits)
	if err != nil {
		return nil, err
	}

	if len(entries) != ptxt.RowWidth(elemSize) {
		return nil, fmt.Errorf("%w: %d columns for row width %d", ErrLengthMismatch, len(entries), ptxt.RowWidth(elemSize))
	}

	for j := range entries {
		if len(entries[j]) != m {
			return nil, fmt.Errorf("column %d: %w: height %d, want %d", j, ErrLengthMismatch, len(entries[j]), m)
		}
		for i, v := range entries[j] {
			if v >= ptxt.Modulus() {
				return nil, fmt.Errorf("entry (%d, %d) = %d exceeds the plaintext modulus %d", j, i, v, ptxt.Modulus())
			}
		}
	}

	return &IndexDatabase{
		entries:  entries,
		m:        m,
		elemSize: elemSize,
		ptxt:     ptxt,
	}, nil
}

// MatrixHeight returns the height of the database columns, which for an
// index database equals the number of rows m.
func (db *IndexDatabase) MatrixHeight() int {
	return db.m
}

// RowWidth returns the number of packed words per row.
func (db *IndexDatabase) RowWidth() int {
	return db.ptxt.RowWidth(db.elemSize)
}

// ElemSize returns the byte length of each element.
func (db *IndexDatabase) ElemSize() int {
	return db.elemSize
}

// PlaintextParams returns the packing parameters of the database.
func (db *IndexDatabase) PlaintextParams() lwe.PlaintextParams {
	return db.ptxt
}

// VecMult returns the inner product of query against column col.
func (db *IndexDatabase) VecMult(query []uint32, col int) (uint32, error) {
	return lwe.Dot(query, db.entries[col])
}

// Entries returns the column-major entry matrix. The result aliases the
// database storage.
func (db *IndexDatabase) Entries() structs.Matrix[uint32] {
	return db.entries
}

// Row reconstructs the i-th packed row from the column-major storage.
func (db *IndexDatabase) Row(i int) []uint32 {
	row := make([]uint32, len(db.entries))
	for j := range db.entries {
		row[j] = db.entries[j][i]
	}
	return row
}

// Entry returns the i-th element re-encoded as base64.
func (db *IndexDatabase) Entry(i int) string {
	return base64.StdEncoding.EncodeToString(unpackEntry(db.Row(i), db.elemSize, db.ptxt))
}

// Rows returns an iterator over the base64-encoded elements, reconstructing
// each row on demand.
func (db *IndexDatabase) Rows() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i := 0; i < db.m; i++ {
			if !yield(i, db.Entry(i)) {
				return
			}
		}
	}
}

// Equal performs a deep equal.
func (db *IndexDatabase) Equal(other *IndexDatabase) bool {
	return db.m == other.m &&
		db.elemSize == other.elemSize &&
		db.ptxt.Equal(&other.ptxt) &&
		db.entries.Equal(other.entries)
}

// BinarySize returns the serialized size of the object in bytes.
func (db *IndexDatabase) BinarySize() int {
	return 8 + 8 + db.ptxt.BinarySize() + db.entries.BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface.
func (db *IndexDatabase) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = buffer.WriteAsUint64[int](w, db.m); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.WriteAsUint64[int](w, db.elemSize); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = db.ptxt.WriteTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = db.entries.WriteTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		return n, w.Flush()
	default:
		return db.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (db *IndexDatabase) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		if inc, err = buffer.ReadAsUint64[int](r, &db.m); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.ReadAsUint64[int](r, &db.elemSize); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = db.ptxt.ReadFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = db.entries.ReadFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		return
	default:
		return db.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (db *IndexDatabase) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(db.BinarySize())
	_, err = db.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (db *IndexDatabase) UnmarshalBinary(p []byte) (err error) {
	_, err = db.ReadFrom(buffer.NewBuffer(p))
	return
}
