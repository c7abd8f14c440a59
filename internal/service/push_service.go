package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/models"
	"github.com/costaleads/lead-relay/internal/push"
)

// ErrInvalidSubscription is returned when a subscribe request carries no
// usable endpoint URL.
var ErrInvalidSubscription = errors.New("subscription has no valid endpoint")

type pushService struct {
	cfg       *config.Config
	store     push.Store
	deliverer *push.Deliverer
	logger    *zap.Logger
}

func NewPushService(cfg *config.Config, store push.Store, deliverer *push.Deliverer, logger *zap.Logger) PushService {
	return &pushService{
		cfg:       cfg,
		store:     store,
		deliverer: deliverer,
		logger:    logger,
	}
}

func (s *pushService) VAPIDKey() string {
	return s.cfg.Push.VAPIDPublicKey
}

func (s *pushService) Subscribe(ctx context.Context, sub *models.PushSubscription) error {
	if !validEndpoint(sub.Endpoint) {
		return ErrInvalidSubscription
	}

	id, err := s.store.Save(ctx, sub)
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	s.logger.Info("Push subscription registered", zap.String("id", id))
	return nil
}

func (s *pushService) Broadcast(ctx context.Context, payload models.PushPayload) error {
	return s.deliverer.Broadcast(ctx, payload)
}

// Sweep drops stored subscriptions whose endpoint no longer parses as a
// URL. Redis TTLs handle expiry; this catches records corrupted by old
// clients.
func (s *pushService) Sweep(ctx context.Context) error {
	subs, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	removed := 0
	for _, sub := range subs {
		if validEndpoint(sub.Subscription.Endpoint) {
			continue
		}
		if err := s.store.Delete(ctx, sub.ID); err != nil {
			s.logger.Warn("Failed to remove invalid subscription",
				zap.String("id", sub.ID),
				zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Swept invalid subscriptions", zap.Int("removed", removed))
	}
	return nil
}

func (s *pushService) BreakerStatus() (state string, requests, failures uint32) {
	requests, failures = s.deliverer.BreakerCounts()
	return s.deliverer.BreakerState().String(), requests, failures
}

func validEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
