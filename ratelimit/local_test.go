package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgw/llmgateway/config"
)

func TestLocalLimiterUnconfiguredModelAlwaysAllowed(t *testing.T) {
	limiter := NewLocalLimiter(nil)
	allowed, err := limiter.CheckLimit(context.Background(), "gpt-4o", "tenant-a", 1_000_000)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLocalLimiterExhaustsBudget(t *testing.T) {
	limiter := NewLocalLimiter([]config.Ratelimit{
		{Model: "gpt-4o", Tokens: 10, Unit: config.UnitSecond},
	})

	allowed, err := limiter.CheckLimit(context.Background(), "gpt-4o", "tenant-a", 10)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.CheckLimit(context.Background(), "gpt-4o", "tenant-a", 5)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLocalLimiterIsolatesBudgetsBySelector(t *testing.T) {
	limiter := NewLocalLimiter([]config.Ratelimit{
		{Model: "gpt-4o", Tokens: 10, Unit: config.UnitSecond},
	})

	allowed, err := limiter.CheckLimit(context.Background(), "gpt-4o", "tenant-a", 10)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.CheckLimit(context.Background(), "gpt-4o", "tenant-b", 10)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLocalLimiterUnitConversion(t *testing.T) {
	limiter := NewLocalLimiter([]config.Ratelimit{
		{Model: "claude-3", Tokens: 3600, Unit: config.UnitHour},
	})
	allowed, err := limiter.CheckLimit(context.Background(), "claude-3", "", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}
