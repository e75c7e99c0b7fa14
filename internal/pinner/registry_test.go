package pinner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInsertIfAbsent(t *testing.T) {
	registry := NewRegistry()

	first := &Region{StartPage: 1, PageCount: 2, Handles: make([]Handle, 2)}
	second := &Region{StartPage: 1, PageCount: 4, Handles: make([]Handle, 4)}

	require.True(t, registry.InsertIfAbsent(1, first))
	require.False(t, registry.InsertIfAbsent(1, second))

	got, ok := registry.Get(1)
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryRemoveCb(t *testing.T) {
	registry := NewRegistry()
	registry.InsertIfAbsent(7, &Region{StartPage: 7, PageCount: 1, Handles: make([]Handle, 1)})

	// Callback sees missing keys without removing anything.
	var sawMissing bool
	removed := registry.RemoveCb(8, func(_ uint64, _ *Region, exists bool) bool {
		sawMissing = !exists

		return exists
	})
	assert.False(t, removed)
	assert.True(t, sawMissing)
	assert.Equal(t, 1, registry.Count())

	// Callback can veto removal.
	removed = registry.RemoveCb(7, func(_ uint64, _ *Region, _ bool) bool {
		return false
	})
	assert.False(t, removed)
	assert.Equal(t, 1, registry.Count())

	removed = registry.RemoveCb(7, func(_ uint64, region *Region, exists bool) bool {
		require.True(t, exists)
		require.Equal(t, uint64(7), region.StartPage)

		return true
	})
	assert.True(t, removed)
	assert.Equal(t, 0, registry.Count())
}

func TestRegistryItemsSnapshot(t *testing.T) {
	registry := NewRegistry()

	starts := []uint64{1, 16, 256, 1 << 40}
	for _, start := range starts {
		registry.InsertIfAbsent(start, &Region{StartPage: start, PageCount: 1, Handles: make([]Handle, 1)})
	}

	items := registry.Items()
	require.Len(t, items, len(starts))

	for _, start := range starts {
		region, ok := items[start]
		require.True(t, ok)
		assert.Equal(t, start, region.StartPage)
	}
}
