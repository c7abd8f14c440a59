package service

import "time"

// ThreadSummary is one row of the thread list: enough to render the
// conversation list without shipping full histories.
type ThreadSummary struct {
	Number       string    `json:"number"`
	LastActivity time.Time `json:"last_activity"`
	Preview      string    `json:"preview"`
	Unread       int       `json:"unread"`
	MessageCount int       `json:"message_count"`
	CallCount    int       `json:"call_count"`
}

// ThreadListResult is the aggregated view for one business number,
// ordered by last activity descending.
type ThreadListResult struct {
	Threads     []ThreadSummary `json:"threads"`
	TotalUnread int             `json:"total_unread"`
}

type HealthStatus struct {
	Status            string `json:"status"`
	RedisStatus       string `json:"redis_status"`
	SweeperStatus     string `json:"sweeper_status"`
	PushBreakerState  string `json:"push_breaker_state"`
	PushBreakerDetail string `json:"push_breaker_detail,omitempty"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	RedisConnected    = "connected"
	RedisDisconnected = "disconnected"

	SweeperRunning = "running"
	SweeperStopped = "stopped"
)
