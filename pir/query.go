package pir

import (
	"encoding/base64"
	"fmt"
	"io"
	"math/bits"

	"github.com/claucece/chalamet/bfuse"
	"github.com/claucece/chalamet/lwe"
	"github.com/claucece/chalamet/utils/sampling"
	"github.com/claucece/chalamet/utils/structs"
)

// Query is the opaque vector a client sends to the server. Its length
// equals the database height.
type Query struct {
	Lhs structs.Vector[uint32]
}

// Response is the vector of per-column inner products the server returns.
// Its length equals the database row width.
type Response struct {
	Data structs.Vector[uint32]
}

// queryParams is the single-use client state shared by both query modes.
type queryParams struct {
	lhs  structs.Vector[uint32]
	rhs  structs.Vector[uint32]
	used bool

	elemSize int
	ptxt     lwe.PlaintextParams
}

func newQueryParams(source *sampling.Source, cp *CommonParams, params *ServerParams) (qp queryParams, err error) {

	sampler := lwe.NewTernarySampler(source)
	s := sampler.ReadNew(params.Dim)

	lhs, err := cp.MultLeft(s, sampler)
	if err != nil {
		return qp, fmt.Errorf("mult left: %w", err)
	}

	rhs, err := params.MultRight(s)
	if err != nil {
		return qp, fmt.Errorf("mult right: %w", err)
	}

	return queryParams{
		lhs:      lhs,
		rhs:      rhs,
		elemSize: params.ElemSize,
		ptxt:     params.Ptxt,
	}, nil
}

// consume flips the single-use flag, failing if the parameters were
// already spent.
func (qp *queryParams) consume() error {
	if qp.used {
		return ErrQueryParamsReused
	}
	qp.used = true
	return nil
}

// parseRow subtracts the preprocessed rhs from the response, divides out
// the rounding factor with rounding, and reduces modulo the plaintext
// modulus. unmask, if not nil, is applied to each coordinate between
// rounding and reduction.
func (qp *queryParams) parseRow(resp *Response, unmask func(v uint32, j int) uint32) (row []uint32, err error) {

	w := qp.ptxt.RowWidth(qp.elemSize)

	if resp.Data.Size() != w {
		return nil, fmt.Errorf("response: %w: %d != %d", ErrLengthMismatch, resp.Data.Size(), w)
	}

	factor := qp.ptxt.RoundingFactor()
	floor := qp.ptxt.RoundingFloor()

	row = make([]uint32, w)
	for j := range row {
		unscaled := resp.Data[j] - qp.rhs[j]
		rounded := unscaled / factor
		if unscaled%factor > floor {
			rounded++
		}
		if unmask != nil {
			rounded = unmask(rounded, j)
		}
		row[j] = rounded % qp.ptxt.Modulus()
	}
	return
}

// IndexQueryParams is the single-use client state for one index-mode
// query.
type IndexQueryParams struct {
	queryParams
	m int
}

// NewIndexQueryParams derives fresh query parameters: a ternary secret s,
// lhs = s*A + e and rhs = s*RHS. All randomness is drawn from source.
func NewIndexQueryParams(source *sampling.Source, cp *CommonParams, params *IndexParams) (qp *IndexQueryParams, err error) {
	core, err := newQueryParams(source, cp, &params.ServerParams)
	if err != nil {
		return nil, err
	}
	return &IndexQueryParams{queryParams: core, m: params.Records}, nil
}

// GenerateQuery consumes the parameters and produces the query for
// rowIndex: lhs with the rounding factor added at position rowIndex. The
// addition is overflow-checked; in a sound parameter regime an overflow is
// negligible and indicates the noise budget was exceeded.
func (qp *IndexQueryParams) GenerateQuery(rowIndex int) (q *Query, err error) {

	if qp.used {
		return nil, ErrQueryParamsReused
	}

	if rowIndex < 0 || rowIndex >= qp.m {
		return nil, fmt.Errorf("row index %d out of range [0, %d)", rowIndex, qp.m)
	}

	qp.used = true

	lhs := qp.lhs.Clone()
	v, carry := bits.Add32(lhs[rowIndex], qp.ptxt.RoundingFactor(), 0)
	if carry != 0 {
		return nil, ErrOverflowingAdd
	}
	lhs[rowIndex] = v

	return &Query{Lhs: lhs}, nil
}

// ParseResponseAsRow decodes a server response into the packed row of the
// queried index.
func (qp *IndexQueryParams) ParseResponseAsRow(resp *Response) ([]uint32, error) {
	return qp.parseRow(resp, nil)
}

// ParseResponseAsBytes decodes a server response into the element bytes of
// the queried index.
func (qp *IndexQueryParams) ParseResponseAsBytes(resp *Response) ([]byte, error) {
	row, err := qp.parseRow(resp, nil)
	if err != nil {
		return nil, err
	}
	return unpackEntry(row, qp.elemSize, qp.ptxt), nil
}

// ParseResponseAsBase64 decodes a server response into the base64 form of
// the queried element.
func (qp *IndexQueryParams) ParseResponseAsBase64(resp *Response) (string, error) {
	raw, err := qp.ParseResponseAsBytes(resp)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// KVQueryParams is the single-use client state for one keyword-mode query.
type KVQueryParams struct {
	queryParams
	filter bfuse.FilterParams
}

// NewKVQueryParams derives fresh query parameters for a key-value
// database. All randomness is drawn from source.
func NewKVQueryParams(source *sampling.Source, cp *CommonParams, params *KVParams) (qp *KVQueryParams, err error) {
	core, err := newQueryParams(source, cp, &params.ServerParams)
	if err != nil {
		return nil, err
	}
	return &KVQueryParams{queryParams: core, filter: params.Filter}, nil
}

// GenerateQuery consumes the parameters and produces the query for key:
// lhs with the rounding factor added, wrapping, at each of the three
// filter positions of the key.
func (qp *KVQueryParams) GenerateQuery(key [4]uint64) (q *Query, err error) {

	if err = qp.consume(); err != nil {
		return nil, err
	}

	lhs := qp.lhs.Clone()
	factor := qp.ptxt.RoundingFactor()
	for _, p := range qp.filter.Positions(key) {
		lhs[p] += factor
	}

	return &Query{Lhs: lhs}, nil
}

// ParseResponseAsRow decodes a server response into the packed value row
// of the queried key, removing the key-derived mask per column.
func (qp *KVQueryParams) ParseResponseAsRow(resp *Response, key [4]uint64) ([]uint32, error) {
	return qp.parseRow(resp, func(v uint32, j int) uint32 {
		return qp.filter.UnmaskValue(v, key, uint64(j))
	})
}

// ParseResponseAsBytes decodes a server response into the value bytes of
// the queried key.
func (qp *KVQueryParams) ParseResponseAsBytes(resp *Response, key [4]uint64) ([]byte, error) {
	row, err := qp.ParseResponseAsRow(resp, key)
	if err != nil {
		return nil, err
	}
	return unpackEntry(row, qp.elemSize, qp.ptxt), nil
}

// ParseResponseAsBase64 decodes a server response into the base64 form of
// the queried value.
func (qp *KVQueryParams) ParseResponseAsBase64(resp *Response, key [4]uint64) (string, error) {
	raw, err := qp.ParseResponseAsBytes(resp, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Used reports whether the parameters have already generated their query.
func (qp *queryParams) Used() bool {
	return qp.used
}

// Equal performs a deep equal.
func (q *Query) Equal(other *Query) bool {
	return q.Lhs.Equal(other.Lhs)
}

// BinarySize returns the serialized size of the object in bytes.
func (q *Query) BinarySize() int {
	return q.Lhs.BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface.
func (q *Query) WriteTo(w io.Writer) (n int64, err error) {
	return q.Lhs.WriteTo(w)
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (q *Query) ReadFrom(r io.Reader) (n int64, err error) {
	return q.Lhs.ReadFrom(r)
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (q *Query) MarshalBinary() (p []byte, err error) {
	return q.Lhs.MarshalBinary()
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (q *Query) UnmarshalBinary(p []byte) (err error) {
	return q.Lhs.UnmarshalBinary(p)
}

// Equal performs a deep equal.
func (r *Response) Equal(other *Response) bool {
	return r.Data.Equal(other.Data)
}

// BinarySize returns the serialized size of the object in bytes.
func (r *Response) BinarySize() int {
	return r.Data.BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface.
func (r *Response) WriteTo(w io.Writer) (n int64, err error) {
	return r.Data.WriteTo(w)
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (r *Response) ReadFrom(rd io.Reader) (n int64, err error) {
	return r.Data.ReadFrom(rd)
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (r *Response) MarshalBinary() (p []byte, err error) {
	return r.Data.MarshalBinary()
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (r *Response) UnmarshalBinary(p []byte) (err error) {
	return r.Data.UnmarshalBinary(p)
}
