package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		unit string
		want time.Duration
	}{
		{"1min", time.Minute},
		{"1h", time.Hour},
		{"6h", 6 * time.Hour},
		{"12h", 12 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"1mo", 30 * 24 * time.Hour},
	}

	for _, tc := range tests {
		got, err := parseUnit(tc.unit)
		require.NoError(t, err, tc.unit)
		assert.Equal(t, tc.want, got, tc.unit)
	}

	_, err := parseUnit("2min")
	assert.Error(t, err)
}

func TestTokenBucketConsume(t *testing.T) {
	tb := &tokenBucket{
		tokens:         3,
		lastRefill:     time.Now(),
		capacity:       3,
		refillRate:     3 / time.Hour.Seconds(),
		windowDuration: time.Hour,
	}

	assert.True(t, tb.consume(1))
	assert.True(t, tb.consume(1))
	assert.True(t, tb.consume(1))
	assert.False(t, tb.consume(1), "bucket should be exhausted")
}

func TestTokenBucketRefill(t *testing.T) {
	tb := &tokenBucket{
		tokens:         0,
		lastRefill:     time.Now().Add(-time.Minute),
		capacity:       60,
		refillRate:     1, // one token per second
		windowDuration: time.Minute,
	}

	// A minute has passed, the bucket should be full again.
	assert.True(t, tb.consume(60))
	assert.False(t, tb.consume(1))
}

func TestTokenBucketRefillCappedAtCapacity(t *testing.T) {
	tb := &tokenBucket{
		tokens:         5,
		lastRefill:     time.Now().Add(-time.Hour),
		capacity:       5,
		refillRate:     100,
		windowDuration: time.Minute,
	}

	assert.True(t, tb.consume(5))
	assert.False(t, tb.consume(1), "refill must not exceed capacity")
}

func TestInMemoryStorageAllow(t *testing.T) {
	s := NewInMemoryStorage()
	defer s.Stop()

	ctx := context.Background()
	limit := Limit{Unit: "1h", Limit: 2}

	allowed, err := s.Allow(ctx, "key-a", limit)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = s.Allow(ctx, "key-a", limit)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = s.Allow(ctx, "key-a", limit)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Buckets are per key.
	allowed, err = s.Allow(ctx, "key-b", limit)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestInMemoryStorageSeparateWindows(t *testing.T) {
	s := NewInMemoryStorage()
	defer s.Stop()

	ctx := context.Background()

	// Exhausting the minute window leaves the hour window untouched.
	allowed, err := s.Allow(ctx, "key-a", Limit{Unit: "1min", Limit: 1})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = s.Allow(ctx, "key-a", Limit{Unit: "1min", Limit: 1})
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = s.Allow(ctx, "key-a", Limit{Unit: "1h", Limit: 10})
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestInMemoryStorageInvalidUnit(t *testing.T) {
	s := NewInMemoryStorage()
	defer s.Stop()

	_, err := s.Allow(context.Background(), "key-a", Limit{Unit: "fortnight", Limit: 1})
	assert.Error(t, err)
}
