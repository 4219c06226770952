package sampling

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSource(t *testing.T) {

	seed := [32]byte{0x01, 0x02, 0x03}

	t.Run("Determinism", func(t *testing.T) {

		a := NewSource(seed)
		b := NewSource(seed)

		bufA := make([]byte, 1024)
		bufB := make([]byte, 1024)

		_, err := a.Read(bufA)
		require.NoError(t, err)
		_, err = b.Read(bufB)
		require.NoError(t, err)

		require.Equal(t, bufA, bufB)
		require.Equal(t, a.Uint64(), b.Uint64())
		require.Equal(t, a.Uint32(), b.Uint32())
	})

	t.Run("DistinctSeeds", func(t *testing.T) {
		a := NewSource(seed)
		b := NewSource([32]byte{0xff})
		require.NotEqual(t, a.Uint64(), b.Uint64())
	})

	t.Run("Seed", func(t *testing.T) {
		s := NewSource(seed)
		require.Equal(t, seed, s.Seed())
	})

	t.Run("ChildSource", func(t *testing.T) {

		a := NewSource(seed)
		b := NewSource(seed)

		// Child derivation is itself deterministic.
		require.Equal(t, a.NewSeed(), b.NewSeed())
		require.Equal(t, a.NewSource().Uint64(), b.NewSource().Uint64())
	})

	t.Run("NewSeed", func(t *testing.T) {
		require.NotEqual(t, NewSeed(), NewSeed())
	})
}
