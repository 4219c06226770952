package pir

import (
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/claucece/chalamet/bfuse"
	"github.com/claucece/chalamet/lwe"
	"github.com/claucece/chalamet/utils/buffer"
	"github.com/claucece/chalamet/utils/sampling"
	"github.com/claucece/chalamet/utils/structs"
)

// HashKey digests arbitrary key bytes into the 256-bit key the filter bank
// is addressed by, read as four little-endian uint64 words.
func HashKey(key []byte) (k [4]uint64) {
	d := sha256.Sum256(key)
	for i := range k {
		k[i] = binary.LittleEndian.Uint64(d[i<<3:])
	}
	return
}

// KeyValue is one hashed key together with its packed value row.
type KeyValue struct {
	Key   [4]uint64
	Value structs.Vector[uint32]
}

// NewKeyValue builds a [KeyValue] from raw key bytes and a value of
// elemSize bytes.
func NewKeyValue(key, value []byte, elemSize, plaintextBits int) (kv KeyValue, err error) {

	ptxt, err := lwe.NewPlaintextParams(plaintextBits)
	if err != nil {
		return kv, err
	}

	row, err := packEntry(value, elemSize, ptxt)
	if err != nil {
		return kv, fmt.Errorf("pack value: %w", err)
	}

	return KeyValue{Key: HashKey(key), Value: row}, nil
}

// NewKeyValueFromBase64 builds a [KeyValue] from base64-encoded key and
// value strings. Note that the key is hashed over its base64 form, so the
// querying client must hash the same encoding.
func NewKeyValueFromBase64(key, value string, elemSize, plaintextBits int) (kv KeyValue, err error) {

	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return kv, fmt.Errorf("decode value: %w", err)
	}

	return NewKeyValue([]byte(key), raw, elemSize, plaintextBits)
}

// KVDatabase is an immutable database addressed by key. Column j holds the
// fingerprint array of the binary-fuse filter encoding coordinate j of
// every value, pre-reduced modulo the plaintext modulus; all columns share
// one set of key positions, recorded in the filter parameters.
type KVDatabase struct {
	entries  structs.Matrix[uint32]
	m        int
	elemSize int
	ptxt     lwe.PlaintextParams
	filter   bfuse.FilterParams
}

// NewKVDatabase builds a [KVDatabase] over the given key-value pairs.
// Keys must be distinct. The filter seed is drawn from source.
func NewKVDatabase(source *sampling.Source, kvs []KeyValue, elemSize, plaintextBits int) (db *KVDatabase, err error) {

	ptxt, err := lwe.NewPlaintextParams(plaintextBits)
	if err != nil {
		return nil, err
	}

	w := ptxt.RowWidth(elemSize)

	keys := make([][4]uint64, len(kvs))
	columns := make([][]uint32, w)
	for j := range columns {
		columns[j] = make([]uint32, len(kvs))
	}

	for i, kv := range kvs {
		if len(kv.Value) != w {
			return nil, fmt.Errorf("key-value %d: %w: value width %d, want %d", i, ErrLengthMismatch, len(kv.Value), w)
		}
		keys[i] = kv.Key
		for j, v := range kv.Value {
			columns[j][i] = v
		}
	}

	bank, err := bfuse.NewBank(source, keys, columns, uint64(ptxt.Modulus()))
	if err != nil {
		return nil, fmt.Errorf("filter bank: %w", err)
	}

	log.Debugw("built kv database", "m", len(kvs), "elemSize", elemSize, "rowWidth", w, "filterLength", bank.Len())

	return &KVDatabase{
		entries:  bank.Columns(),
		m:        len(kvs),
		elemSize: elemSize,
		ptxt:     ptxt,
		filter:   bank.Params(),
	}, nil
}

// MatrixHeight returns the height of the database columns, which for a
// key-value database is the filter length, not the record count.
func (db *KVDatabase) MatrixHeight() int {
	if len(db.entries) == 0 {
		return 0
	}
	return len(db.entries[0])
}

// Records returns the number of key-value pairs the database was built
// from.
func (db *KVDatabase) Records() int {
	return db.m
}

// RowWidth returns the number of packed words per value.
func (db *KVDatabase) RowWidth() int {
	return db.ptxt.RowWidth(db.elemSize)
}

// ElemSize returns the byte length of each value.
func (db *KVDatabase) ElemSize() int {
	return db.elemSize
}

// PlaintextParams returns the packing parameters of the database.
func (db *KVDatabase) PlaintextParams() lwe.PlaintextParams {
	return db.ptxt
}

// FilterParams returns the shared filter parameters of the column bank.
func (db *KVDatabase) FilterParams() bfuse.FilterParams {
	return db.filter
}

// VecMult returns the inner product of query against column col.
func (db *KVDatabase) VecMult(query []uint32, col int) (uint32, error) {
	return lwe.Dot(query, db.entries[col])
}

// Entries returns the column-major fingerprint matrix. The result aliases
// the database storage.
func (db *KVDatabase) Entries() structs.Matrix[uint32] {
	return db.entries
}

// Retrieve returns coordinate label of the value stored under key, modulo
// the plaintext modulus. It evaluates the filter algebra directly, without
// going through a query.
func (db *KVDatabase) Retrieve(key [4]uint64, label uint64) (v uint32, err error) {

	if label >= uint64(len(db.entries)) {
		return 0, fmt.Errorf("%w: %d >= %d", bfuse.ErrInvalidLabel, label, len(db.entries))
	}

	pos := db.filter.Positions(key)
	col := db.entries[label]
	masked := col[pos[0]] + col[pos[1]] + col[pos[2]]
	return db.filter.UnmaskValue(masked, key, label) % db.ptxt.Modulus(), nil
}

// Equal performs a deep equal.
func (db *KVDatabase) Equal(other *KVDatabase) bool {
	return db.m == other.m &&
		db.elemSize == other.elemSize &&
		db.ptxt.Equal(&other.ptxt) &&
		db.filter.Equal(&other.filter) &&
		db.entries.Equal(other.entries)
}

// BinarySize returns the serialized size of the object in bytes.
func (db *KVDatabase) BinarySize() int {
	return 8 + 8 + db.ptxt.BinarySize() + db.filter.BinarySize() + db.entries.BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface.
func (db *KVDatabase) WriteTo(w io.Writer) (n int64, err error) {
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

		if inc, err = db.filter.WriteTo(w); err != nil {
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
func (db *KVDatabase) ReadFrom(r io.Reader) (n int64, err error) {
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

		if inc, err = db.filter.ReadFrom(r); err != nil {
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
func (db *KVDatabase) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(db.BinarySize())
	_, err = db.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (db *KVDatabase) UnmarshalBinary(p []byte) (err error) {
	_, err = db.ReadFrom(buffer.NewBuffer(p))
	return
}
