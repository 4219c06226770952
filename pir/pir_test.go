package pir

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/claucece/chalamet/lwe"
	"github.com/claucece/chalamet/utils/buffer"
	"github.com/claucece/chalamet/utils/sampling"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testElements(source *sampling.Source, m, elemSize int) []string {
	elements := make([]string, m)
	raw := make([]byte, elemSize)
	for i := range elements {
		if _, err := source.Read(raw); err != nil {
			panic(err)
		}
		elements[i] = base64.StdEncoding.EncodeToString(raw)
	}
	return elements
}

func testKeyValues(source *sampling.Source, m, elemSize, plaintextBits int) (kvs []KeyValue, keys [][]byte) {
	kvs = make([]KeyValue, m)
	keys = make([][]byte, m)
	value := make([]byte, elemSize)
	for i := range kvs {
		key := make([]byte, 32)
		if _, err := source.Read(key); err != nil {
			panic(err)
		}
		if _, err := source.Read(value); err != nil {
			panic(err)
		}
		kv, err := NewKeyValue(key, value, elemSize, plaintextBits)
		if err != nil {
			panic(err)
		}
		kvs[i] = kv
		keys[i] = key
	}
	return
}

// generateIndexQuery regenerates fresh query parameters when the indicator
// addition overflows, which is the documented caller policy for
// ErrOverflowingAdd.
func generateIndexQuery(t *testing.T, source *sampling.Source, cp *CommonParams, params *IndexParams, i int) (*IndexQueryParams, *Query) {
	t.Helper()
	for {
		qp, err := NewIndexQueryParams(source, cp, params)
		require.NoError(t, err)
		q, err := qp.GenerateQuery(i)
		if errors.Is(err, ErrOverflowingAdd) {
			continue
		}
		require.NoError(t, err)
		return qp, q
	}
}

func TestIndexQueryRoundTrip(t *testing.T) {

	m := 1 << 12
	elemSize := 1 << 8
	plaintextBits := 11
	lweDim := 512

	source := sampling.NewSource([32]byte{0x20})

	elements := testElements(source, m, elemSize)

	shard, err := NewShard(source, elements, lweDim, m, elemSize, plaintextBits)
	require.NoError(t, err)

	params := shard.Params()
	require.Equal(t, 187, params.RowWidth())

	cp := params.CommonParams()

	for i := 0; i < 10; i++ {

		qp, q := generateIndexQuery(t, source, cp, params, i)
		require.Equal(t, m, q.Lhs.Size())

		resp, err := shard.Respond(q)
		require.NoError(t, err)
		require.Equal(t, 187, resp.Data.Size())

		out, err := qp.ParseResponseAsBase64(resp)
		require.NoError(t, err)
		require.Equal(t, elements[i], out)
	}
}

func TestIndexQueryParamsReuse(t *testing.T) {

	m := 1 << 6
	elemSize := 1 << 8
	plaintextBits := 10
	lweDim := 512

	source := sampling.NewSource([32]byte{0x21})

	shard, err := NewShard(source, testElements(source, m, elemSize), lweDim, m, elemSize, plaintextBits)
	require.NoError(t, err)

	qp, err := NewIndexQueryParams(source, shard.Params().CommonParams(), shard.Params())
	require.NoError(t, err)

	_, err = qp.GenerateQuery(0)
	require.NoError(t, err)
	require.True(t, qp.Used())

	_, err = qp.GenerateQuery(0)
	require.ErrorIs(t, err, ErrQueryParamsReused)

	// The guard holds regardless of argument.
	_, err = qp.GenerateQuery(1)
	require.ErrorIs(t, err, ErrQueryParamsReused)
}

func TestKVQueryRoundTrip(t *testing.T) {

	m := 1 << 12
	elemSize := 1 << 8
	plaintextBits := 11
	lweDim := 512

	source := sampling.NewSource([32]byte{0x22})

	kvs, _ := testKeyValues(source, m, elemSize, plaintextBits)

	shard, err := NewKVShard(source, kvs, lweDim, elemSize, plaintextBits)
	require.NoError(t, err)

	params := shard.Params()
	require.Greater(t, params.Height, m)

	cp := params.CommonParams()

	for i := 0; i < 10; i++ {

		qp, err := NewKVQueryParams(source, cp, params)
		require.NoError(t, err)

		q, err := qp.GenerateQuery(kvs[i].Key)
		require.NoError(t, err)
		require.Equal(t, params.Height, q.Lhs.Size())

		resp, err := shard.Respond(q)
		require.NoError(t, err)

		row, err := qp.ParseResponseAsRow(resp, kvs[i].Key)
		require.NoError(t, err)
		require.Equal(t, []uint32(kvs[i].Value), row)
	}
}

func TestKVQueryParamsReuse(t *testing.T) {

	m := 1 << 6
	elemSize := 32
	plaintextBits := 10
	lweDim := 256

	source := sampling.NewSource([32]byte{0x23})

	kvs, _ := testKeyValues(source, m, elemSize, plaintextBits)

	shard, err := NewKVShard(source, kvs, lweDim, elemSize, plaintextBits)
	require.NoError(t, err)

	qp, err := NewKVQueryParams(source, shard.Params().CommonParams(), shard.Params())
	require.NoError(t, err)

	_, err = qp.GenerateQuery(kvs[0].Key)
	require.NoError(t, err)

	_, err = qp.GenerateQuery(kvs[1].Key)
	require.ErrorIs(t, err, ErrQueryParamsReused)
}

func TestKVDatabaseFilterAlgebra(t *testing.T) {

	m := 1 << 9
	elemSize := 32
	plaintextBits := 10

	source := sampling.NewSource([32]byte{0x24})

	kvs, _ := testKeyValues(source, m, elemSize, plaintextBits)

	db, err := NewKVDatabase(source, kvs, elemSize, plaintextBits)
	require.NoError(t, err)

	fp := db.FilterParams()

	for _, kv := range kvs {
		pos := fp.Positions(kv.Key)
		for j := 0; j < db.RowWidth(); j++ {

			col := db.Entries()[j]
			masked := col[pos[0]] + col[pos[1]] + col[pos[2]]
			require.Equal(t, kv.Value[j], fp.UnmaskValue(masked, kv.Key, uint64(j))%db.PlaintextParams().Modulus())

			v, err := db.Retrieve(kv.Key, uint64(j))
			require.NoError(t, err)
			require.Equal(t, kv.Value[j], v)
		}
	}
}

func TestParameterConsistency(t *testing.T) {

	m := 1 << 7
	elemSize := 32
	plaintextBits := 10
	lweDim := 128

	source := sampling.NewSource([32]byte{0x25})

	db, err := NewIndexDatabase(testElements(source, m, elemSize), m, elemSize, plaintextBits)
	require.NoError(t, err)

	params, err := NewIndexParams(source, db, lweDim)
	require.NoError(t, err)

	// RHS[j][r] must equal the inner product of the r-th row of A against
	// the j-th database column.
	A := lwe.NewUniformMatrix(sampling.NewSource(params.PublicSeed), m, lweDim)
	for j := 0; j < db.RowWidth(); j++ {
		for r := 0; r < lweDim; r++ {
			var acc uint32
			for i := 0; i < m; i++ {
				acc += A.At(i, r) * db.Entries()[j][i]
			}
			require.Equal(t, acc, params.RHS[j][r])
		}
	}

	t.Run("DeterministicA", func(t *testing.T) {
		cp := params.CommonParams()
		require.Empty(t, cmp.Diff(A, cp.A, cmp.AllowUnexported(lwe.Matrix{})))
	})
}

func TestRespondLengthGuard(t *testing.T) {

	m := 1 << 6
	elemSize := 32
	plaintextBits := 10

	source := sampling.NewSource([32]byte{0x26})

	shard, err := NewShard(source, testElements(source, m, elemSize), 128, m, elemSize, plaintextBits)
	require.NoError(t, err)

	_, err = shard.Respond(&Query{Lhs: make([]uint32, m-1)})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDatabaseRowIterator(t *testing.T) {

	m := 1 << 5
	elemSize := 48
	plaintextBits := 9

	source := sampling.NewSource([32]byte{0x27})

	elements := testElements(source, m, elemSize)

	db, err := NewIndexDatabase(elements, m, elemSize, plaintextBits)
	require.NoError(t, err)

	seen := 0
	for i, e := range db.Rows() {
		require.Equal(t, elements[i], e)
		seen++
	}
	require.Equal(t, m, seen)
}

func TestSerialization(t *testing.T) {

	m := 1 << 5
	elemSize := 32
	plaintextBits := 10
	lweDim := 64

	source := sampling.NewSource([32]byte{0x28})

	t.Run("IndexDatabase", func(t *testing.T) {
		db, err := NewIndexDatabase(testElements(source, m, elemSize), m, elemSize, plaintextBits)
		require.NoError(t, err)
		buffer.RequireSerializerCorrect(t, db)
	})

	t.Run("KVDatabase", func(t *testing.T) {
		kvs, _ := testKeyValues(source, m, elemSize, plaintextBits)
		db, err := NewKVDatabase(source, kvs, elemSize, plaintextBits)
		require.NoError(t, err)
		buffer.RequireSerializerCorrect(t, db)
	})

	t.Run("Params", func(t *testing.T) {

		db, err := NewIndexDatabase(testElements(source, m, elemSize), m, elemSize, plaintextBits)
		require.NoError(t, err)

		params, err := NewIndexParams(source, db, lweDim)
		require.NoError(t, err)
		buffer.RequireSerializerCorrect(t, &params.ServerParams)
	})

	t.Run("KVParams", func(t *testing.T) {

		kvs, _ := testKeyValues(source, m, elemSize, plaintextBits)

		shard, err := NewKVShard(source, kvs, lweDim, elemSize, plaintextBits)
		require.NoError(t, err)
		buffer.RequireSerializerCorrect(t, shard.Params())
	})

	t.Run("Wire", func(t *testing.T) {

		shard, err := NewShard(source, testElements(source, m, elemSize), lweDim, m, elemSize, plaintextBits)
		require.NoError(t, err)

		qp, q := generateIndexQuery(t, source, shard.Params().CommonParams(), shard.Params(), 3)
		buffer.RequireSerializerCorrect(t, q)

		// A query that crossed the wire answers like the original.
		p, err := q.MarshalBinary()
		require.NoError(t, err)

		var q2 Query
		require.NoError(t, q2.UnmarshalBinary(p))

		resp, err := shard.Respond(&q2)
		require.NoError(t, err)
		buffer.RequireSerializerCorrect(t, resp)

		out, err := qp.ParseResponseAsBase64(resp)
		require.NoError(t, err)
		require.Equal(t, shard.DB().Entry(3), out)
	})
}

func TestHashKey(t *testing.T) {

	// SHA-256 digests viewed as little-endian words: stable across calls,
	// distinct across inputs.
	a := HashKey([]byte("a"))
	require.Equal(t, a, HashKey([]byte("a")))
	require.NotEqual(t, a, HashKey([]byte("b")))
}
