package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUploadLimiter_Allow(t *testing.T) {
	l := NewUploadLimiter(2)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestUploadLimiter_Disabled(t *testing.T) {
	l := NewUploadLimiter(0)

	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.Empty(t, l.limiters)
}

func TestUploadLimiter_EvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewUploadLimiter(1)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.Len(t, l.limiters, 1)

	now = now.Add(limiterIdleTTL)
	assert.True(t, l.Allow("b"))
	assert.Len(t, l.limiters, 1)
	assert.Contains(t, l.limiters, "b")

	assert.True(t, l.Allow("a"))
	assert.Len(t, l.limiters, 2)
}
