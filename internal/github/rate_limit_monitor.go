package github

import (
	"context"
	"sync"
	"time"

	"github.com/human-glitch/github-releaser/internal/config"
	"github.com/qiniu/x/log"
)

const (
	apiREST    = "REST"
	apiGraphQL = "GraphQL"
)

// RateLimitMonitor tracks the most recent GitHub rate limit headers seen by the clients.
type RateLimitMonitor struct {
	config     config.GitHubAPIConfig
	mutex      sync.RWMutex
	restLimit  RateLimitStatus
	graphLimit RateLimitStatus

	restCalls   int64
	graphCalls  int64
	graphPoints int64 // GraphQL cost spent
}

// RateLimitStatus represents the current rate limit status
type RateLimitStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	LastCheck time.Time `json:"last_check"`
}

// RateLimitStatistics is a snapshot of the monitor.
type RateLimitStatistics struct {
	RESTCalls    int64           `json:"rest_calls"`
	GraphQLCalls int64           `json:"graphql_calls"`
	GraphQLCost  int64           `json:"graphql_cost"`
	RESTLimit    RateLimitStatus `json:"rest_limit"`
	GraphQLLimit RateLimitStatus `json:"graphql_limit"`
}

func NewRateLimitMonitor(cfg config.GitHubAPIConfig) *RateLimitMonitor {
	return &RateLimitMonitor{config: cfg}
}

// RecordRESTAPICall records a REST API call and its rate limit info
func (m *RateLimitMonitor) RecordRESTAPICall(limit, remaining int, resetAt time.Time) {
	if m == nil || !m.config.EnableRateMonitoring {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.restCalls++
	if limit == 0 {
		// 响应里没有 rate 头（例如 httptest），只计数
		return
	}
	m.restLimit = RateLimitStatus{Limit: limit, Remaining: remaining, ResetAt: resetAt, LastCheck: time.Now()}
	m.checkAndWarnRateLimit(apiREST, m.restLimit)
	log.Debugf("REST API rate limit: %d/%d remaining, resets at %s",
		remaining, limit, resetAt.Format("15:04:05"))
}

// RecordGraphQLAPICall records a GraphQL API call and its rate limit info
func (m *RateLimitMonitor) RecordGraphQLAPICall(limit, remaining, cost int, resetAt time.Time) {
	if m == nil || !m.config.EnableRateMonitoring {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.graphCalls++
	m.graphPoints += int64(cost)
	if limit == 0 {
		return
	}
	m.graphLimit = RateLimitStatus{Limit: limit, Remaining: remaining, ResetAt: resetAt, LastCheck: time.Now()}
	m.checkAndWarnRateLimit(apiGraphQL, m.graphLimit)
	log.Debugf("GraphQL API call - Cost: %d, Remaining: %d/%d", cost, remaining, limit)
}

// checkAndWarnRateLimit checks if rate limit is below threshold and logs warning
func (m *RateLimitMonitor) checkAndWarnRateLimit(apiType string, status RateLimitStatus) {
	if status.Remaining > m.config.RateLimitThreshold {
		return
	}
	percentage := float64(status.Remaining) / float64(status.Limit) * 100
	log.Warnf("%s API rate limit warning: %d/%d remaining (%.1f%%), resets at %s",
		apiType, status.Remaining, status.Limit, percentage, status.ResetAt.Format("15:04:05"))

	if percentage < 10 {
		log.Errorf("%s API rate limit critically low: %d/%d remaining (%.1f%%)",
			apiType, status.Remaining, status.Limit, percentage)
	}
}

// GetStatistics returns current rate limit statistics
func (m *RateLimitMonitor) GetStatistics() RateLimitStatistics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return RateLimitStatistics{
		RESTCalls:    m.restCalls,
		GraphQLCalls: m.graphCalls,
		GraphQLCost:  m.graphPoints,
		RESTLimit:    m.restLimit,
		GraphQLLimit: m.graphLimit,
	}
}

// LogStatistics logs comprehensive rate limit statistics
func (m *RateLimitMonitor) LogStatistics() {
	if m == nil || !m.config.EnableRateMonitoring {
		return
	}

	stats := m.GetStatistics()
	log.Infof("GitHub API usage: %d REST calls, %d GraphQL calls (cost %d)",
		stats.RESTCalls, stats.GraphQLCalls, stats.GraphQLCost)

	if stats.RESTLimit.Limit > 0 {
		log.Infof("REST API rate limit: %d/%d remaining", stats.RESTLimit.Remaining, stats.RESTLimit.Limit)
	}
	if stats.GraphQLLimit.Limit > 0 {
		log.Infof("GraphQL API rate limit: %d/%d remaining", stats.GraphQLLimit.Remaining, stats.GraphQLLimit.Limit)
	}
}

// IsRateLimitCritical reports whether either API is under 10% of its limit.
func (m *RateLimitMonitor) IsRateLimitCritical() bool {
	if m == nil {
		return false
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, status := range []RateLimitStatus{m.restLimit, m.graphLimit} {
		if status.Limit > 0 && float64(status.Remaining)/float64(status.Limit) < 0.1 {
			return true
		}
	}
	return false
}

// WaitForRateLimit blocks until the REST window resets when the budget is at or below the threshold.
// Waits longer than maxWait are skipped.
func (m *RateLimitMonitor) WaitForRateLimit(ctx context.Context, maxWait time.Duration) error {
	if m == nil {
		return nil
	}

	m.mutex.RLock()
	status := m.restLimit
	m.mutex.RUnlock()

	if status.Limit == 0 || status.Remaining > m.config.RateLimitThreshold {
		return nil
	}

	waitDuration := time.Until(status.ResetAt)
	if waitDuration <= 0 || waitDuration > maxWait {
		return nil
	}

	log.Warnf("REST rate limit low (%d remaining), waiting %v for reset", status.Remaining, waitDuration)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(waitDuration):
		return nil
	}
}

// StartPeriodicLogging logs statistics every interval until ctx is done.
func (m *RateLimitMonitor) StartPeriodicLogging(ctx context.Context, interval time.Duration) {
	if m == nil || !m.config.EnableRateMonitoring || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.LogStatistics()
			}
		}
	}()
}
