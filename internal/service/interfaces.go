package service

import (
	"context"

	"github.com/costaleads/lead-relay/internal/models"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

// Gateway is the telephony provider client. Implemented by
// twilio.Client; mocked in handler and service tests.
type Gateway interface {
	FetchMessages(ctx context.Context, number string, limit int) ([]models.Message, error)
	FetchCalls(ctx context.Context, number string, limit int) ([]models.Call, error)
	SendMessage(ctx context.Context, from, to, body string) (*models.Message, error)
	InitiateCall(ctx context.Context, from, to string) (*models.Call, error)
}

// ConversationService aggregates provider records into per-contact
// threads for one business number.
type ConversationService interface {
	ListThreads(ctx context.Context, number string, limit int) (*ThreadListResult, error)
}

// PushService manages browser push subscriptions and fan-out.
type PushService interface {
	VAPIDKey() string
	Subscribe(ctx context.Context, sub *models.PushSubscription) error
	Broadcast(ctx context.Context, payload models.PushPayload) error
	Sweep(ctx context.Context) error
	BreakerStatus() (state string, requests, failures uint32)
}

// WebhookService reacts to provider status callbacks.
type WebhookService interface {
	HandleMissedCall(ctx context.Context, ev models.CallEvent) error
	HandleInboundSMS(ctx context.Context, ev models.MessageEvent) error
	HandleInboundCall(ctx context.Context, ev models.CallEvent) error
}

// SweeperService controls the periodic subscription sweep.
type SweeperService interface {
	Start() error
	Stop() error
	IsRunning() bool
}

// HealthService reports component health for monitoring.
type HealthService interface {
	GetHealth(ctx context.Context) *HealthStatus
}
