package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.Nil(t, client.Redis())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")
	limit := APIRateLimit("127.0.0.1", 20)

	allowed, remaining, err := limiter.Allow(context.Background(), limit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, limit.Limit, remaining)
	assert.False(t, limiter.Enabled())
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", TTLShort))

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "ReportKey",
			fn:       func() string { return ReportKey("0123456789abcdef0123", "fedcba") },
			expected: "report:0123456789abcdef:fedcba",
		},
		{
			name:     "RunReportKey",
			fn:       func() string { return RunReportKey("run-1") },
			expected: "report:run:run-1",
		},
		{
			name:     "LatestReportKey",
			fn:       LatestReportKey,
			expected: "report:latest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fn())
		})
	}
}

func TestAPIRateLimit_FloorsAtOne(t *testing.T) {
	assert.Equal(t, 1, APIRateLimit("c", 0.2).Limit)
	assert.Equal(t, "api:c", APIRateLimit("c", 5).Key)
}
