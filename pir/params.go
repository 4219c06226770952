package pir

import (
	"bufio"
	"fmt"
	"io"

	"github.com/claucece/chalamet/bfuse"
	"github.com/claucece/chalamet/lwe"
	"github.com/claucece/chalamet/utils/buffer"
	"github.com/claucece/chalamet/utils/concurrency"
	"github.com/claucece/chalamet/utils/sampling"
	"github.com/claucece/chalamet/utils/structs"
)

// ServerParams is the preprocessed public state of one database: the seed
// of the public matrix A and the product RHS[j] = A * E[.,j] for each
// column j of the database. Seed and RHS together are all a client needs
// to rebuild A and form queries. A ServerParams is immutable once built.
type ServerParams struct {
	Dim        int
	Records    int
	Height     int
	ElemSize   int
	Ptxt       lwe.PlaintextParams
	PublicSeed [32]byte
	RHS        structs.Matrix[uint32]
}

func newServerParams(source *sampling.Source, db DatabaseMatrix, dim, records, elemSize int, ptxt lwe.PlaintextParams) (p *ServerParams, err error) {

	publicSeed := source.NewSeed()
	height := db.MatrixHeight()
	w := db.RowWidth()

	// A is regenerated column by column below; At.Row(r) is the r-th row
	// of the dim-by-height public matrix.
	At := lwe.NewUniformMatrix(sampling.NewSource(publicSeed), height, dim).Transpose()

	rhs := make(structs.Matrix[uint32], w)

	if err = concurrency.ForEach(w, func(j int) (err error) {
		col := make(structs.Vector[uint32], dim)
		for r := range col {
			if col[r], err = db.VecMult(At.Row(r), j); err != nil {
				return fmt.Errorf("column %d, row %d: %w", j, r, err)
			}
		}
		rhs[j] = col
		return
	}); err != nil {
		return nil, err
	}

	log.Debugw("generated server params", "dim", dim, "height", height, "rowWidth", w)

	return &ServerParams{
		Dim:        dim,
		Records:    records,
		Height:     height,
		ElemSize:   elemSize,
		Ptxt:       ptxt,
		PublicSeed: publicSeed,
		RHS:        rhs,
	}, nil
}

// RowWidth returns the number of packed words per row.
func (p *ServerParams) RowWidth() int {
	return p.Ptxt.RowWidth(p.ElemSize)
}

// MultRight computes s * RHS, the client-side right-hand preprocessing of
// a secret s of length Dim.
func (p *ServerParams) MultRight(s []uint32) (rhs []uint32, err error) {
	rhs = make([]uint32, len(p.RHS))
	for j := range p.RHS {
		if rhs[j], err = lwe.Dot(s, p.RHS[j]); err != nil {
			return nil, fmt.Errorf("rhs column %d: %w", j, err)
		}
	}
	return
}

// CommonParams rematerializes the public matrix A from the seed.
func (p *ServerParams) CommonParams() *CommonParams {
	return NewCommonParams(p.PublicSeed, p.Dim, p.Height)
}

// Equal performs a deep equal.
func (p *ServerParams) Equal(other *ServerParams) bool {
	return p.Dim == other.Dim &&
		p.Records == other.Records &&
		p.Height == other.Height &&
		p.ElemSize == other.ElemSize &&
		p.Ptxt.Equal(&other.Ptxt) &&
		p.PublicSeed == other.PublicSeed &&
		p.RHS.Equal(other.RHS)
}

// BinarySize returns the serialized size of the object in bytes.
func (p *ServerParams) BinarySize() int {
	return 4*8 + p.Ptxt.BinarySize() + 32 + p.RHS.BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface.
func (p *ServerParams) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		for _, c := range []int{p.Dim, p.Records, p.Height, p.ElemSize} {
			if inc, err = buffer.WriteAsUint64[int](w, c); err != nil {
				return n + inc, err
			}
			n += inc
		}

		if inc, err = p.Ptxt.WriteTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.WriteUint8Slice(w, p.PublicSeed[:]); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = p.RHS.WriteTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		return n, w.Flush()
	default:
		return p.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (p *ServerParams) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		for _, c := range []*int{&p.Dim, &p.Records, &p.Height, &p.ElemSize} {
			if inc, err = buffer.ReadAsUint64[int](r, c); err != nil {
				return n + inc, err
			}
			n += inc
		}

		if inc, err = p.Ptxt.ReadFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.ReadUint8Slice(r, p.PublicSeed[:]); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = p.RHS.ReadFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		return
	default:
		return p.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (p *ServerParams) MarshalBinary() (b []byte, err error) {
	buf := buffer.NewBufferSize(p.BinarySize())
	_, err = p.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (p *ServerParams) UnmarshalBinary(b []byte) (err error) {
	_, err = p.ReadFrom(buffer.NewBuffer(b))
	return
}

// IndexParams is the public parameter set of an index database.
type IndexParams struct {
	ServerParams
}

// NewIndexParams preprocesses db into its public parameters, sampling the
// public seed from source.
func NewIndexParams(source *sampling.Source, db *IndexDatabase, dim int) (p *IndexParams, err error) {
	sp, err := newServerParams(source, db, dim, db.MatrixHeight(), db.ElemSize(), db.PlaintextParams())
	if err != nil {
		return nil, err
	}
	return &IndexParams{ServerParams: *sp}, nil
}

// KVParams is the public parameter set of a key-value database. It carries
// the filter parameters the client needs to derive key positions.
type KVParams struct {
	ServerParams
	Filter bfuse.FilterParams
}

// NewKVParams preprocesses db into its public parameters, sampling the
// public seed from source.
func NewKVParams(source *sampling.Source, db *KVDatabase, dim int) (p *KVParams, err error) {
	sp, err := newServerParams(source, db, dim, db.Records(), db.ElemSize(), db.PlaintextParams())
	if err != nil {
		return nil, err
	}
	return &KVParams{ServerParams: *sp, Filter: db.FilterParams()}, nil
}

// Equal performs a deep equal.
func (p *KVParams) Equal(other *KVParams) bool {
	return p.ServerParams.Equal(&other.ServerParams) && p.Filter.Equal(&other.Filter)
}

// BinarySize returns the serialized size of the object in bytes.
func (p *KVParams) BinarySize() int {
	return p.ServerParams.BinarySize() + p.Filter.BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface.
func (p *KVParams) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = p.ServerParams.WriteTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = p.Filter.WriteTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		return n, w.Flush()
	default:
		return p.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (p *KVParams) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		if inc, err = p.ServerParams.ReadFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = p.Filter.ReadFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		return
	default:
		return p.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (p *KVParams) MarshalBinary() (b []byte, err error) {
	buf := buffer.NewBufferSize(p.BinarySize())
	_, err = p.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (p *KVParams) UnmarshalBinary(b []byte) (err error) {
	_, err = p.ReadFrom(buffer.NewBuffer(b))
	return
}

// CommonParams is the rematerialized public matrix A, derivable anywhere
// from (seed, dim, height). Row i of the internal matrix is the i-th
// column of the dim-by-height matrix of the protocol description.
type CommonParams struct {
	Dim    int
	Height int
	A      *lwe.Matrix
}

// NewCommonParams derives A from the public seed.
func NewCommonParams(publicSeed [32]byte, dim, height int) *CommonParams {
	return &CommonParams{
		Dim:    dim,
		Height: height,
		A:      lwe.NewUniformMatrix(sampling.NewSource(publicSeed), height, dim),
	}
}

// MultLeft computes s*A + e where e is a fresh ternary noise vector drawn
// from noise, of length Height.
func (cp *CommonParams) MultLeft(s []uint32, noise *lwe.TernarySampler) (lhs []uint32, err error) {
	if lhs, err = cp.A.MulVec(s); err != nil {
		return nil, err
	}
	noise.ReadAndAdd(lhs)
	return
}
