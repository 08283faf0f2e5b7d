package replacer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUVictimOrdering(t *testing.T) {
	lru := NewLRU(4)

	lru.Unpin(1)
	lru.Unpin(2)
	lru.Unpin(3)
	assert.Equal(t, 3, lru.Size())

	victim, ok := lru.Victim()
	require.True(t, ok)
	assert.Equal(t, FrameID(1), victim, "oldest-unpinned frame should be evicted first")

	victim, ok = lru.Victim()
	require.True(t, ok)
	assert.Equal(t, FrameID(2), victim)
}

func TestLRUPinRemovesFromEligibility(t *testing.T) {
	lru := NewLRU(4)
	lru.Unpin(1)
	lru.Unpin(2)

	lru.Pin(1)
	assert.Equal(t, 1, lru.Size())

	victim, ok := lru.Victim()
	require.True(t, ok)
	assert.Equal(t, FrameID(2), victim)
}

func TestLRUVictimEmpty(t *testing.T) {
	lru := NewLRU(2)
	_, ok := lru.Victim()
	assert.False(t, ok)
}

func TestLRUIdempotentUnpin(t *testing.T) {
	lru := NewLRU(2)
	lru.Unpin(1)
	lru.Unpin(1)
	assert.Equal(t, 1, lru.Size())
}
