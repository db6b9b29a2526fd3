package enginepipe

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashWorker_SameKeySameWorker(t *testing.T) {
	a := hashWorker("1|1", 8)
	b := hashWorker("1|1", 8)
	assert.Equal(t, a, b)
}

func TestHashWorker_WithinRange(t *testing.T) {
	for _, key := range []string{"1", "2|3", "999|1"} {
		idx := hashWorker(key, 4)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 4)
	}
}

func TestHashWorker_DifferentKeysCanSpread(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 100; i++ {
		seen[hashWorker(fmt.Sprintf("event-%d", i), 8)] = true
	}
	assert.Greater(t, len(seen), 1, "100 distinct keys should not all collide on one worker")
}
