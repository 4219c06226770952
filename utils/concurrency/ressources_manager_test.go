package concurrency

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConcurrency(t *testing.T) {

	t.Run("NoError", func(t *testing.T) {

		acc := make([]int, 8)

		ressources := make([]bool, 4)

		rm := NewRessourceManager(ressources)

		for i := range acc {
			rm.Run(func(r bool) (err error) {
				acc[i]++
				return
			})
		}

		require.NoError(t, rm.Wait())

		for i := range acc {
			require.Equal(t, acc[i], 1)
		}
	})

	t.Run("WithError", func(t *testing.T) {

		ressources := make([]bool, 4)

		rm := NewRessourceManager(ressources)

		for i := 0; i < 8; i++ {
			rm.Run(func(r bool) (err error) {
				if i == 2 {
					return fmt.Errorf("something bad happened")
				}
				return
			})
		}

		require.Error(t, rm.Wait())
	})

	t.Run("ForEach", func(t *testing.T) {

		acc := make([]uint32, 1024)

		require.NoError(t, ForEach(len(acc), func(i int) (err error) {
			acc[i] = uint32(i)
			return
		}))

		for i := range acc {
			require.Equal(t, uint32(i), acc[i])
		}
	})

	t.Run("ForEachError", func(t *testing.T) {

		var calls atomic.Int32

		err := ForEach(64, func(i int) (err error) {
			calls.Add(1)
			if i == 7 {
				return fmt.Errorf("iteration %d failed", i)
			}
			return
		})

		require.Error(t, err)
		require.LessOrEqual(t, calls.Load(), int32(64))
	})
}
