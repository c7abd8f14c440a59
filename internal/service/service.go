// Package service provides business logic implementation for the
// application.
package service

import (
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/push"
)

type Service struct {
	Gateway      Gateway
	Conversation ConversationService
	Push         PushService
	Webhook      WebhookService
	Sweeper      SweeperService
	Health       HealthService
}

func NewService(
	cfg *config.Config,
	gateway Gateway,
	redisClient *redis.Client,
	logger *zap.Logger,
) *Service {
	store := push.NewRedisStore(redisClient, cfg.SubscriptionTTL(), logger)
	deliverer := push.NewDeliverer(&cfg.Push, store, logger)

	pushService := NewPushService(cfg, store, deliverer, logger)
	conversationService := NewConversationService(gateway, logger)
	webhookService := NewWebhookService(cfg, gateway, pushService, logger)
	sweeperService := NewSweeperService(cfg, pushService, logger)
	healthService := NewHealthService(redisClient, sweeperService, pushService)

	return &Service{
		Gateway:      gateway,
		Conversation: conversationService,
		Push:         pushService,
		Webhook:      webhookService,
		Sweeper:      sweeperService,
		Health:       healthService,
	}
}
