package board

import (
	"math"
	"testing"

	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdAllocator(t *testing.T) {
	t.Run("allocates strictly increasing ids from 1", func(t *testing.T) {
		a := NewIdAllocator()
		for want := uint64(1); want <= 5; want++ {
			id, err := a.Allocate()
			require.NoError(t, err)
			assert.Equal(t, want, id)
		}
		assert.Equal(t, uint64(5), a.Count())
		assert.Equal(t, 0, a.Len(), "Allocate alone does not mark ids live")
	})

	t.Run("issue marks the id live", func(t *testing.T) {
		a := NewIdAllocator()
		id, err := a.Issue()
		require.NoError(t, err)
		assert.True(t, a.Contains(id))
		assert.Equal(t, []uint64{1}, a.Live())
	})

	t.Run("released ids are never reissued", func(t *testing.T) {
		a := NewIdAllocator()
		first, _ := a.Issue()
		require.NoError(t, a.Release(first))
		second, err := a.Issue()
		require.NoError(t, err)
		assert.Greater(t, second, first)
		assert.False(t, a.Contains(first))
	})

	t.Run("mark used twice fails", func(t *testing.T) {
		a := NewIdAllocator()
		require.NoError(t, a.MarkUsed(7))
		assert.ErrorIs(t, a.MarkUsed(7), internal_errors.ErrDuplicatePost)
	})

	t.Run("release of unknown id fails", func(t *testing.T) {
		a := NewIdAllocator()
		assert.ErrorIs(t, a.Release(42), internal_errors.ErrPostNotFound)
	})

	t.Run("exhaustion is a checked error", func(t *testing.T) {
		a := NewIdAllocator()
		a.count = math.MaxUint64 - 1

		id, err := a.Issue()
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), id)

		_, err = a.Allocate()
		assert.ErrorIs(t, err, internal_errors.ErrIdSpaceExhausted)
		_, err = a.Issue()
		assert.ErrorIs(t, err, internal_errors.ErrIdSpaceExhausted)
		assert.Equal(t, uint64(math.MaxUint64), a.Count(), "count must not wrap")
	})

	t.Run("issue refuses an id that is already live", func(t *testing.T) {
		a := NewIdAllocator()
		require.NoError(t, a.MarkUsed(1))
		_, err := a.Issue()
		assert.ErrorIs(t, err, internal_errors.ErrDuplicatePost)
		assert.Equal(t, uint64(0), a.Count(), "failed issue leaves count alone")
	})

	t.Run("reset restarts numbering", func(t *testing.T) {
		a := NewIdAllocator()
		a.Issue()
		a.Issue()
		a.Reset()
		assert.Equal(t, uint64(0), a.Count())
		assert.Equal(t, 0, a.Len())
		id, err := a.Issue()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)
	})

	t.Run("restore rejects ids outside the issued range", func(t *testing.T) {
		a := NewIdAllocator()
		assert.Error(t, a.restore(3, []uint64{1, 4}))
		assert.Error(t, a.restore(3, []uint64{0}))
		require.NoError(t, a.restore(3, []uint64{1, 3}))
		assert.Equal(t, []uint64{1, 3}, a.Live())
	})
}
