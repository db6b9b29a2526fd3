package dedup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow_SecondSeenIsTrue(t *testing.T) {
	w := NewWindow(4)
	assert.False(t, w.Seen("a"))
	assert.True(t, w.Seen("a"))
}

func TestWindow_DistinctIDsIndependent(t *testing.T) {
	w := NewWindow(4)
	assert.False(t, w.Seen("a"))
	assert.False(t, w.Seen("b"))
	assert.True(t, w.Seen("a"))
	assert.True(t, w.Seen("b"))
}

func TestWindow_EvictsOldestOnceFull(t *testing.T) {
	w := NewWindow(2)
	assert.False(t, w.Seen("1"))
	assert.False(t, w.Seen("2"))
	assert.False(t, w.Seen("3")) // evicts "1"
	assert.False(t, w.Seen("1")) // no longer remembered, re-admitted; evicts "2"
	assert.True(t, w.Seen("3"))
	assert.False(t, w.Seen("2")) // evicted when "1" was re-admitted
}

func TestWindow_ZeroSizeStillWorks(t *testing.T) {
	w := NewWindow(0)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("id-%d", i)
		assert.False(t, w.Seen(id))
	}
}
