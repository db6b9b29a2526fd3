package singleflight

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroup_ConcurrentCallsAllGetResult(t *testing.T) {
	g := NewGroup[int]()
	var calls int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	results := make([]int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			v, _, err := g.Do("key", func() (int, error) {
				atomic.AddInt64(&calls, 1)
				return 42, nil
			})
			assert.NoError(t, err)
			results[idx] = v
		}(i)
	}
	close(start)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
	assert.LessOrEqual(t, atomic.LoadInt64(&calls), int64(20))
}

func TestGroup_DistinctKeysRunIndependently(t *testing.T) {
	g := NewGroup[string]()

	v1, _, err := g.Do("a", func() (string, error) { return "a-result", nil })
	assert.NoError(t, err)
	assert.Equal(t, "a-result", v1)

	v2, _, err := g.Do("b", func() (string, error) { return "b-result", nil })
	assert.NoError(t, err)
	assert.Equal(t, "b-result", v2)
}
