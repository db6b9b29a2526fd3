package workerpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tomb "gopkg.in/tomb.v2"
)

func TestPool_ProcessesSubmittedTasks(t *testing.T) {
	var processed int64
	var tb tomb.Tomb

	p := New(4)
	tb.Go(func() error {
		p.Run(&tb, func(_ *tomb.Tomb, task any) error {
			atomic.AddInt64(&processed, task.(int64))
			return nil
		})
		return nil
	})

	for i := int64(1); i <= 10; i++ {
		p.Submit(i)
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt64(&processed) == 55 }, time.Second, time.Millisecond)

	tb.Kill(nil)
	_ = tb.Wait()
}
