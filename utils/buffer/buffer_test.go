package buffer

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuffer(t *testing.T) {

	t.Run("Scalar", func(t *testing.T) {

		buf := NewBufferSize(13)

		_, err := WriteUint8(buf, 0xab)
		require.NoError(t, err)
		_, err = WriteUint32(buf, 0xdeadbeef)
		require.NoError(t, err)
		_, err = WriteUint64(buf, 0x0123456789abcdef)
		require.NoError(t, err)

		// Little-endian layout on the wire.
		require.Equal(t, []byte{0xab, 0xef, 0xbe, 0xad, 0xde}, buf.Bytes()[:5])

		var u8 uint8
		var u32 uint32
		var u64 uint64

		_, err = ReadUint8(buf, &u8)
		require.NoError(t, err)
		_, err = ReadUint32(buf, &u32)
		require.NoError(t, err)
		_, err = ReadUint64(buf, &u64)
		require.NoError(t, err)

		require.Equal(t, uint8(0xab), u8)
		require.Equal(t, uint32(0xdeadbeef), u32)
		require.Equal(t, uint64(0x0123456789abcdef), u64)
	})

	t.Run("Slice", func(t *testing.T) {

		s := make([]uint32, 517) // not a multiple of the scratch chunk
		for i := range s {
			s[i] = uint32(i) * 0x9e3779b9
		}

		buf := NewBufferSize(len(s) << 2)
		n, err := WriteUint32Slice(buf, s)
		require.NoError(t, err)
		require.Equal(t, int64(len(s)<<2), n)

		out := make([]uint32, len(s))
		n, err = ReadUint32Slice(buf, out)
		require.NoError(t, err)
		require.Equal(t, int64(len(s)<<2), n)
		require.Equal(t, s, out)
	})

	t.Run("SliceAs", func(t *testing.T) {

		s := []int{1, 2, 3, 1 << 20}

		buf := NewBufferSize(len(s) << 3)
		_, err := WriteAsUint64Slice(buf, s)
		require.NoError(t, err)

		out := make([]int, len(s))
		_, err = ReadAsUint64Slice(buf, out)
		require.NoError(t, err)
		require.Equal(t, s, out)
	})

	t.Run("Bufio", func(t *testing.T) {

		var raw bytes.Buffer

		w := bufio.NewWriter(&raw)
		_, err := WriteUint64(w, 42)
		require.NoError(t, err)
		require.NoError(t, w.Flush())

		var v uint64
		_, err = ReadUint64(bufio.NewReader(&raw), &v)
		require.NoError(t, err)
		require.Equal(t, uint64(42), v)
	})

	t.Run("Equal", func(t *testing.T) {
		require.True(t, EqualAsUint32Slice([]uint32{1, 2}, []uint32{1, 2}))
		require.False(t, EqualAsUint32Slice([]uint32{1, 2}, []uint32{1, 3}))
		require.False(t, EqualAsUint64Slice([]uint64{1}, []uint64{1, 2}))
		require.True(t, EqualAsUint8Slice([]uint8{7}, []uint8{7}))
	})
}
