package github

import (
	"context"
	"testing"
	"time"

	"github.com/human-glitch/github-releaser/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMonitorDisabled(t *testing.T) {
	m := NewRateLimitMonitor(config.GitHubAPIConfig{EnableRateMonitoring: false})
	m.RecordRESTAPICall(5000, 1, time.Now())
	m.RecordGraphQLAPICall(5000, 1, 1, time.Now())

	stats := m.GetStatistics()
	assert.Zero(t, stats.RESTCalls)
	assert.Zero(t, stats.GraphQLCalls)
	assert.False(t, m.IsRateLimitCritical())
}

func TestRateLimitMonitorNilIsSafe(t *testing.T) {
	var m *RateLimitMonitor
	m.RecordRESTAPICall(5000, 1, time.Now())
	m.RecordGraphQLAPICall(5000, 1, 1, time.Now())
	m.LogStatistics()
	assert.NoError(t, m.WaitForRateLimit(context.Background(), time.Second))
}

func TestRateLimitMonitorCritical(t *testing.T) {
	m := NewRateLimitMonitor(config.GitHubAPIConfig{EnableRateMonitoring: true, RateLimitThreshold: 100})

	m.RecordRESTAPICall(5000, 4000, time.Now().Add(time.Hour))
	assert.False(t, m.IsRateLimitCritical())

	m.RecordGraphQLAPICall(5000, 400, 3, time.Now().Add(time.Hour))
	assert.True(t, m.IsRateLimitCritical())

	stats := m.GetStatistics()
	assert.Equal(t, int64(1), stats.RESTCalls)
	assert.Equal(t, int64(1), stats.GraphQLCalls)
	assert.Equal(t, int64(3), stats.GraphQLCost)
}

func TestWaitForRateLimit(t *testing.T) {
	m := NewRateLimitMonitor(config.GitHubAPIConfig{EnableRateMonitoring: true, RateLimitThreshold: 100})

	// 额度充足时不等待
	m.RecordRESTAPICall(5000, 4000, time.Now().Add(time.Hour))
	require.NoError(t, m.WaitForRateLimit(context.Background(), time.Minute))

	// 重置时间超过 maxWait 时不等待
	m.RecordRESTAPICall(5000, 5, time.Now().Add(time.Hour))
	require.NoError(t, m.WaitForRateLimit(context.Background(), time.Minute))

	m.RecordRESTAPICall(5000, 5, time.Now().Add(50*time.Millisecond))
	start := time.Now()
	require.NoError(t, m.WaitForRateLimit(context.Background(), time.Minute))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	m.RecordRESTAPICall(5000, 5, time.Now().Add(30*time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.WaitForRateLimit(ctx, time.Minute), context.Canceled)
}
