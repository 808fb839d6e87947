package idalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExhaustionAndRecycle(t *testing.T) {
	a, err := New(4, 0)
	require.NoError(t, err)

	seen := map[uint32]bool{}
	var ids []uint32
	for i := 0; i < 15; i++ {
		id, ok := a.Get()
		require.True(t, ok)
		assert.False(t, seen[id], "id %d returned twice", id)
		assert.Greater(t, id, uint32(0))
		assert.LessOrEqual(t, id, uint32(15))
		seen[id] = true
		ids = append(ids, id)
	}

	_, ok := a.Get()
	assert.False(t, ok, "16th Get should be exhausted")

	assert.True(t, a.Put(ids[0]))
	next, ok := a.Get()
	require.True(t, ok)
	assert.GreaterOrEqual(t, next, uint32(1))
	assert.LessOrEqual(t, next, uint32(15))
}

func TestNeverReturnsOffset(t *testing.T) {
	a, err := New(4, 100)
	require.NoError(t, err)
	for i := 0; i < 15; i++ {
		id, ok := a.Get()
		require.True(t, ok)
		assert.NotEqual(t, uint32(100), id)
		assert.Greater(t, id, uint32(100))
		assert.Less(t, id, uint32(116))
	}
}

func TestPutRejectsOutOfRangeAndUnallocated(t *testing.T) {
	a, err := New(4, 0)
	require.NoError(t, err)
	assert.False(t, a.Put(0))
	assert.False(t, a.Put(16))
	assert.False(t, a.Put(5)) // never allocated
}

func TestClearResetsPool(t *testing.T) {
	a, err := New(4, 0)
	require.NoError(t, err)
	for i := 0; i < 15; i++ {
		_, _ = a.Get()
	}
	_, ok := a.Get()
	require.False(t, ok)

	a.Clear()
	id, ok := a.Get()
	assert.True(t, ok)
	assert.Greater(t, id, uint32(0))
}

func TestNewRejectsOutOfBoundWidth(t *testing.T) {
	_, err := New(3, 0)
	assert.Error(t, err)
	_, err = New(21, 0)
	assert.Error(t, err)
}
