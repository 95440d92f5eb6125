package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisitedSet_Basic(t *testing.T) {
	v := NewVisitedSet(64)

	ids := []uint32{0, 1, 63, 64, 100, 1000}

	for _, id := range ids {
		assert.False(t, v.Visited(id), "id %d visited before Visit", id)
	}

	for _, id := range ids {
		assert.True(t, v.Visit(id))
	}

	for _, id := range ids {
		assert.True(t, v.Visited(id), "id %d not visited", id)
	}

	assert.False(t, v.Visited(2))

	// Visiting again is a no-op
	assert.False(t, v.Visit(0))
	assert.Equal(t, len(ids), v.Count())
}

func TestVisitedSet_Reset(t *testing.T) {
	v := NewVisitedSet(10)

	v.Visit(5)
	v.Visit(5000) // beyond initial capacity
	v.Reset()

	assert.False(t, v.Visited(5))
	assert.False(t, v.Visited(5000))
	assert.Equal(t, 0, v.Count())

	v.Visit(6)
	assert.True(t, v.Visited(6))
}
