package pir

import (
	"fmt"
	"iter"

	"github.com/claucece/chalamet/utils/concurrency"
	"github.com/claucece/chalamet/utils/sampling"
	"github.com/claucece/chalamet/utils/structs"
)

// respond computes resp[j] = <query, E[.,j]> for each column j of db.
// The column loop runs concurrently; the per-column products are
// independent, so the result is bit-exact with the sequential one.
func respond(db DatabaseMatrix, q *Query) (resp *Response, err error) {

	if q.Lhs.Size() != db.MatrixHeight() {
		return nil, fmt.Errorf("query: %w: %d != %d", ErrLengthMismatch, q.Lhs.Size(), db.MatrixHeight())
	}

	data := make(structs.Vector[uint32], db.RowWidth())

	if err = concurrency.ForEach(len(data), func(j int) (err error) {
		data[j], err = db.VecMult(q.Lhs, j)
		return
	}); err != nil {
		return nil, err
	}

	return &Response{Data: data}, nil
}

// Shard binds an index database to its preprocessed server parameters and
// answers index-mode queries. A Shard is immutable once built and safe to
// share across goroutines.
type Shard struct {
	db     *IndexDatabase
	params *IndexParams
}

// NewShard builds the database from exactly m base64-encoded elements and
// preprocesses its server parameters. All randomness is drawn from source.
func NewShard(source *sampling.Source, elements []string, lweDim, m, elemSize, plaintextBits int) (s *Shard, err error) {
	db, err := NewIndexDatabase(elements, m, elemSize, plaintextBits)
	if err != nil {
		return nil, err
	}
	return NewShardFromDatabase(source, db, lweDim)
}

// NewShardFromDatabase preprocesses an already-built database.
func NewShardFromDatabase(source *sampling.Source, db *IndexDatabase, lweDim int) (s *Shard, err error) {
	params, err := NewIndexParams(source, db, lweDim)
	if err != nil {
		return nil, err
	}
	return &Shard{db: db, params: params}, nil
}

// Respond answers a client query.
func (s *Shard) Respond(q *Query) (*Response, error) {
	return respond(s.db, q)
}

// DB returns the underlying database.
func (s *Shard) DB() *IndexDatabase {
	return s.db
}

// Params returns the public parameters of the shard.
func (s *Shard) Params() *IndexParams {
	return s.params
}

// Rows returns an iterator over the base64-encoded database elements.
func (s *Shard) Rows() iter.Seq2[int, string] {
	return s.db.Rows()
}

// KVShard binds a key-value database to its preprocessed server parameters
// and answers keyword-mode queries. A KVShard is immutable once built and
// safe to share across goroutines.
type KVShard struct {
	db     *KVDatabase
	params *KVParams
}

// NewKVShard builds the filter bank over the given key-value pairs and
// preprocesses its server parameters. All randomness is drawn from source.
func NewKVShard(source *sampling.Source, kvs []KeyValue, lweDim, elemSize, plaintextBits int) (s *KVShard, err error) {
	db, err := NewKVDatabase(source, kvs, elemSize, plaintextBits)
	if err != nil {
		return nil, err
	}
	return NewKVShardFromDatabase(source, db, lweDim)
}

// NewKVShardFromBase64 builds a [KVShard] from parallel slices of
// base64-encoded keys and values.
func NewKVShardFromBase64(source *sampling.Source, keys, values []string, lweDim, elemSize, plaintextBits int) (s *KVShard, err error) {

	if len(keys) != len(values) {
		return nil, fmt.Errorf("%w: %d keys for %d values", ErrLengthMismatch, len(keys), len(values))
	}

	kvs := make([]KeyValue, len(keys))
	for i := range keys {
		if kvs[i], err = NewKeyValueFromBase64(keys[i], values[i], elemSize, plaintextBits); err != nil {
			return nil, fmt.Errorf("key-value %d: %w", i, err)
		}
	}

	return NewKVShard(source, kvs, lweDim, elemSize, plaintextBits)
}

// NewKVShardFromDatabase preprocesses an already-built database.
func NewKVShardFromDatabase(source *sampling.Source, db *KVDatabase, lweDim int) (s *KVShard, err error) {
	params, err := NewKVParams(source, db, lweDim)
	if err != nil {
		return nil, err
	}
	return &KVShard{db: db, params: params}, nil
}

// Respond answers a client query.
func (s *KVShard) Respond(q *Query) (*Response, error) {
	return respond(s.db, q)
}

// DB returns the underlying database.
func (s *KVShard) DB() *KVDatabase {
	return s.db
}

// Params returns the public parameters of the shard.
func (s *KVShard) Params() *KVParams {
	return s.params
}
