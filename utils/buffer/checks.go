package buffer

import (
	"encoding"
	"io"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

// Serializer is the composition of interfaces a serializable object
// must implement.
type Serializer interface {
	io.WriterTo
	encoding.BinaryMarshaler
	BinarySize() int
}

// RequireSerializerCorrect checks that the binary encoding of obj is
// correct and self-consistent:
//   - WriteTo writes exactly BinarySize() bytes;
//   - MarshalBinary produces the same bytes as WriteTo;
//   - ReadFrom and UnmarshalBinary on a fresh instance reconstruct an
//     object deeply equal to obj.
func RequireSerializerCorrect(t *testing.T, obj Serializer) {

	t.Helper()

	buf := NewBufferSize(obj.BinarySize())

	n, err := obj.WriteTo(buf)
	require.NoError(t, err)
	require.Equal(t, int64(obj.BinarySize()), n)

	p, err := obj.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, buf.Bytes(), p)

	// Fresh instance of the same dynamic type.
	rv := reflect.New(reflect.TypeOf(obj).Elem())

	cpy, isReadable := rv.Interface().(io.ReaderFrom)
	require.True(t, isReadable)

	n, err = cpy.ReadFrom(NewBuffer(p))
	require.NoError(t, err)
	require.Equal(t, int64(obj.BinarySize()), n)
	require.Equal(t, obj, cpy)

	cpy2, isUnmarshallable := reflect.New(reflect.TypeOf(obj).Elem()).Interface().(encoding.BinaryUnmarshaler)
	require.True(t, isUnmarshallable)
	require.NoError(t, cpy2.UnmarshalBinary(p))
	require.Equal(t, obj, cpy2)
}
