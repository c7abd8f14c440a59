package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"
)

type healthService struct {
	redisClient *redis.Client
	sweeper     SweeperService
	push        PushService
}

func NewHealthService(redisClient *redis.Client, sweeper SweeperService, push PushService) HealthService {
	return &healthService{
		redisClient: redisClient,
		sweeper:     sweeper,
		push:        push,
	}
}

func (s *healthService) GetHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status: StatusHealthy,
	}

	if s.sweeper.IsRunning() {
		status.SweeperStatus = SweeperRunning
	} else {
		status.SweeperStatus = SweeperStopped
	}

	status.RedisStatus = s.checkRedisHealth(ctx)

	state, requests, failures := s.push.BreakerStatus()
	status.PushBreakerState = state
	if requests > 0 {
		failureRate := float64(failures) / float64(requests) * 100
		status.PushBreakerDetail = fmt.Sprintf("Requests: %d, Failures: %d (%.1f%%)", requests, failures, failureRate)
	} else {
		status.PushBreakerDetail = "No requests yet"
	}

	if status.RedisStatus != RedisConnected {
		status.Status = StatusUnhealthy
	} else if state == gobreaker.StateOpen.String() {
		status.Status = StatusDegraded
	}

	return status
}

func (s *healthService) checkRedisHealth(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return RedisDisconnected
	}
	return RedisConnected
}
