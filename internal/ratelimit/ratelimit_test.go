package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowsUpToLimitThenBlocks(t *testing.T) {
	l := New()
	l.AddRule("login", Rule{Limit: 2, Interval: time.Minute})

	assert.True(t, l.Allow("user1", "login"))
	assert.True(t, l.Allow("user1", "login"))
	assert.False(t, l.Allow("user1", "login"))
}

func TestLimiter_UnconfiguredPatternAlwaysAllowed(t *testing.T) {
	l := New()
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("user1", "unregistered"))
	}
}

func TestLimiter_SeparateKeysHaveSeparateBuckets(t *testing.T) {
	l := New()
	l.AddRule("login", Rule{Limit: 1, Interval: time.Minute})

	assert.True(t, l.Allow("user1", "login"))
	assert.True(t, l.Allow("user2", "login"))
	assert.False(t, l.Allow("user1", "login"))
}

func TestBucket_RefillsAfterInterval(t *testing.T) {
	rule := Rule{Limit: 1, Interval: time.Millisecond}
	now := time.Now().UnixMilli()
	b := newBucket(rule, now)

	assert.True(t, b.consume(now))
	assert.False(t, b.consume(now))
	assert.True(t, b.consume(now+5))
}
