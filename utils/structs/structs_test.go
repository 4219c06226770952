package structs

import (
	"testing"

	"github.com/claucece/chalamet/utils/buffer"
	"github.com/stretchr/testify/require"
)

func TestStructs(t *testing.T) {

	t.Run("Vector", func(t *testing.T) {

		v := Vector[uint32]{1, 2, 3, 0xffffffff}

		t.Run("Serialization", func(t *testing.T) {
			buffer.RequireSerializerCorrect(t, &v)
		})

		t.Run("Clone", func(t *testing.T) {
			vcpy := v.Clone()
			require.True(t, v.Equal(vcpy))
			vcpy[0]++
			require.False(t, v.Equal(vcpy))
		})

		t.Run("Equal", func(t *testing.T) {
			require.False(t, v.Equal(v[:3]))
		})
	})

	t.Run("VectorUint64", func(t *testing.T) {
		v := Vector[uint64]{0, 1, ^uint64(0)}
		buffer.RequireSerializerCorrect(t, &v)
	})

	t.Run("VectorUint8", func(t *testing.T) {
		v := Vector[uint8]{0x00, 0x7f, 0xff}
		buffer.RequireSerializerCorrect(t, &v)
	})

	t.Run("Matrix", func(t *testing.T) {

		m := Matrix[uint32]{
			{1, 2, 3},
			{4, 5, 6, 7},
		}

		t.Run("Serialization", func(t *testing.T) {
			buffer.RequireSerializerCorrect(t, &m)
		})

		t.Run("Clone", func(t *testing.T) {
			mcpy := m.Clone()
			require.True(t, m.Equal(mcpy))
			mcpy[1][0]++
			require.False(t, m.Equal(mcpy))
		})
	})
}
