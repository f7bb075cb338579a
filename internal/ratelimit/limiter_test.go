package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderLimiterSharesBucketPerProvider(t *testing.T) {
	l := NewProviderLimiterWithDefaults()
	assert.Same(t, l.GetLimiter("upstream"), l.GetLimiter("upstream"))
	assert.NotSame(t, l.GetLimiter("upstream"), l.GetLimiter("fixture"))
}

func TestProviderLimiterWaitHonoursContext(t *testing.T) {
	l := NewProviderLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	require.NoError(t, l.Wait(context.Background(), "upstream"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "upstream"))
}

func TestSetProviderLimitRetunesExistingBucket(t *testing.T) {
	l := NewProviderLimiterWithDefaults()
	bucket := l.GetLimiter("upstream")

	l.SetProviderLimit("upstream", 2, 3)
	assert.Same(t, bucket, l.GetLimiter("upstream"))
	assert.Equal(t, 2.0, float64(bucket.Limit()))
	assert.Equal(t, 3, bucket.Burst())

	l.SetProviderLimit("upstream", 0, 0)
	assert.Equal(t, DefaultConfig().BurstSize, bucket.Burst())
}

func TestNilProviderLimiterDoesNotBlock(t *testing.T) {
	var l *ProviderLimiter
	assert.NoError(t, l.Wait(context.Background(), "upstream"))
}
