package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterRefills(t *testing.T) {
	clock := time.Unix(0, 0)
	l := New(2, 1)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	clock = clock.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestLimiterDisabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("x"))
	}
}

func TestSweep(t *testing.T) {
	clock := time.Unix(0, 0)
	l := New(1, 1)
	l.now = func() time.Time { return clock }
	l.Allow("a")
	clock = clock.Add(time.Minute)
	l.Allow("b")
	assert.Equal(t, 1, l.Sweep(30*time.Second))
}

func TestSweeperDropsIdleBuckets(t *testing.T) {
	l := New(1, 1)
	assert.True(t, l.Allow("a"))

	s := NewSweeper(l, 5*time.Millisecond, 0)
	assert.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.m) == 0
	}, time.Second, 5*time.Millisecond)
	assert.NoError(t, s.Stop(context.Background()))
}
