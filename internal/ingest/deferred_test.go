package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeferredSetContains(t *testing.T) {
	set := NewDeferredSet([][2]int{{118, 47}, {118, 50}})

	assert.True(t, set.Contains(118, 47))
	assert.True(t, set.Contains(118, 50))
	assert.False(t, set.Contains(118, 48))
	assert.False(t, set.Contains(117, 47))
}

func TestDeferredSetEmpty(t *testing.T) {
	set := NewDeferredSet(nil)
	assert.False(t, set.Contains(118, 1))
}
