package lwe

import (
	"testing"

	"github.com/claucece/chalamet/utils/sampling"
	"github.com/stretchr/testify/require"
)

func TestPlaintextParams(t *testing.T) {

	t.Run("Derived", func(t *testing.T) {
		p, err := NewPlaintextParams(11)
		require.NoError(t, err)
		require.Equal(t, uint32(1<<21), p.RoundingFactor())
		require.Equal(t, uint32(1<<20), p.RoundingFloor())
		require.Equal(t, uint32(2048), p.Modulus())
		require.Equal(t, 187, p.RowWidth(256)) // ceil(2048/11)
	})

	t.Run("Bounds", func(t *testing.T) {
		_, err := NewPlaintextParams(0)
		require.Error(t, err)
		_, err = NewPlaintextParams(32)
		require.Error(t, err)
		_, err = NewPlaintextParams(31)
		require.NoError(t, err)
	})
}

func TestMatrix(t *testing.T) {

	seed := [32]byte{0x2a}

	t.Run("Determinism", func(t *testing.T) {
		a := NewUniformMatrix(sampling.NewSource(seed), 64, 32)
		b := NewUniformMatrix(sampling.NewSource(seed), 64, 32)
		require.Equal(t, a, b)

		c := NewUniformMatrix(sampling.NewSource([32]byte{0x2b}), 64, 32)
		require.NotEqual(t, a, c)
	})

	t.Run("Dot", func(t *testing.T) {

		v, err := Dot([]uint32{1, 2, 3}, []uint32{4, 5, 6})
		require.NoError(t, err)
		require.Equal(t, uint32(32), v)

		// Wrapping semantics.
		v, err = Dot([]uint32{^uint32(0)}, []uint32{2})
		require.NoError(t, err)
		require.Equal(t, ^uint32(0)-1, v)

		_, err = Dot([]uint32{1}, []uint32{1, 2})
		require.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("MulVec", func(t *testing.T) {

		m := NewUniformMatrix(sampling.NewSource(seed), 16, 8)
		x := make([]uint32, 8)
		for i := range x {
			x[i] = uint32(i + 1)
		}

		out, err := m.MulVec(x)
		require.NoError(t, err)
		require.Equal(t, 16, len(out))

		for i := range out {
			var acc uint32
			for j := range x {
				acc += m.At(i, j) * x[j]
			}
			require.Equal(t, acc, out[i])
		}

		_, err = m.MulVec(x[:4])
		require.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("MulVecTransposed", func(t *testing.T) {

		m := NewUniformMatrix(sampling.NewSource(seed), 16, 8)
		x := make([]uint32, 16)
		for i := range x {
			x[i] = uint32(3 * i)
		}

		out, err := m.MulVecTransposed(x)
		require.NoError(t, err)
		require.Equal(t, 8, len(out))

		for j := range out {
			var acc uint32
			for i := range x {
				acc += x[i] * m.At(i, j)
			}
			require.Equal(t, acc, out[j])
		}

		_, err = m.MulVecTransposed(x[:4])
		require.ErrorIs(t, err, ErrLengthMismatch)
	})
}

func TestTernarySampler(t *testing.T) {

	source := sampling.NewSource([32]byte{0x01})

	t.Run("Support", func(t *testing.T) {

		vec := NewTernarySampler(source).ReadNew(1 << 14)

		counts := map[uint32]int{}
		for _, v := range vec {
			counts[v]++
		}

		require.Len(t, counts, 3)
		require.Contains(t, counts, uint32(0))
		require.Contains(t, counts, uint32(1))
		require.Contains(t, counts, ^uint32(0))

		// Equiprobable up to sampling noise.
		for _, c := range counts {
			require.InDelta(t, float64(len(vec))/3, float64(c), float64(len(vec))/20)
		}
	})

	t.Run("Determinism", func(t *testing.T) {
		a := NewTernarySampler(sampling.NewSource([32]byte{0x07})).ReadNew(256)
		b := NewTernarySampler(sampling.NewSource([32]byte{0x07})).ReadNew(256)
		require.Equal(t, a, b)
	})

	t.Run("ReadAndAdd", func(t *testing.T) {

		base := []uint32{0, 1, 2, 3, ^uint32(0)}
		vec := append([]uint32{}, base...)

		NewTernarySampler(sampling.NewSource([32]byte{0x09})).ReadAndAdd(vec)
		noise := NewTernarySampler(sampling.NewSource([32]byte{0x09})).ReadNew(len(vec))

		for i := range vec {
			require.Equal(t, base[i]+noise[i], vec[i])
		}
	})
}
