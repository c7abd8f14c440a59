package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/scheduler"
)

type sweeperService struct {
	scheduler *scheduler.Scheduler
	push      PushService
	logger    *zap.Logger
}

// NewSweeperService wires the periodic subscription sweep onto the
// scheduler.
func NewSweeperService(cfg *config.Config, push PushService, logger *zap.Logger) SweeperService {
	interval := time.Duration(cfg.Sweeper.IntervalHours) * time.Hour

	svc := &sweeperService{
		push:   push,
		logger: logger,
	}
	svc.scheduler = scheduler.NewScheduler(logger, interval, svc.executeSweep)
	return svc
}

func (s *sweeperService) Start() error {
	return s.scheduler.Start(context.Background())
}

func (s *sweeperService) Stop() error {
	return s.scheduler.Stop()
}

func (s *sweeperService) IsRunning() bool {
	return s.scheduler.IsRunning()
}

func (s *sweeperService) executeSweep(ctx context.Context) error {
	return s.push.Sweep(ctx)
}
