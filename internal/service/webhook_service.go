package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/models"
)

// Call statuses that mean the caller was not connected and should
// receive the canned auto-reply SMS.
var missedCallStatuses = map[string]bool{
	"no-answer": true,
	"busy":      true,
	"canceled":  true,
	"failed":    true,
}

const inboundSMSPreviewLen = 100

type webhookService struct {
	cfg     *config.Config
	gateway Gateway
	push    PushService
	logger  *zap.Logger
}

func NewWebhookService(cfg *config.Config, gateway Gateway, push PushService, logger *zap.Logger) WebhookService {
	return &webhookService{
		cfg:     cfg,
		gateway: gateway,
		push:    push,
		logger:  logger,
	}
}

// HandleMissedCall texts the caller back from the number they dialed,
// using that number's tailored message, then notifies subscribers.
// Statuses outside the missed set are acknowledged with no action.
func (s *webhookService) HandleMissedCall(ctx context.Context, ev models.CallEvent) error {
	if !missedCallStatuses[ev.Status] {
		s.logger.Debug("Ignoring non-missed call status",
			zap.String("status", ev.Status),
			zap.String("call_sid", ev.CallSID))
		return nil
	}

	body := s.cfg.AutoReplyFor(ev.To)

	// Reply from the same line the caller dialed, preserving per-line
	// identity.
	if _, err := s.gateway.SendMessage(ctx, ev.To, ev.From, body); err != nil {
		return fmt.Errorf("failed to send auto-reply: %w", err)
	}

	s.logger.Info("Missed-call auto-reply sent",
		zap.String("from", ev.To),
		zap.String("to", ev.From),
		zap.String("status", ev.Status))

	s.notify(ctx, models.PushPayload{
		Title: fmt.Sprintf("Missed call from %s", ev.From),
		Body:  fmt.Sprintf("Auto-text sent to %s", ev.From),
		Tag:   fmt.Sprintf("missed-%s-%d", ev.From, time.Now().UnixMilli()),
	})
	return nil
}

// HandleInboundSMS notifies subscribers only; auto-replies are reserved
// for missed calls.
func (s *webhookService) HandleInboundSMS(ctx context.Context, ev models.MessageEvent) error {
	body := ev.Body
	if body == "" {
		body = "New message"
	} else if len([]rune(body)) > inboundSMSPreviewLen {
		body = string([]rune(body)[:inboundSMSPreviewLen])
	}

	s.notify(ctx, models.PushPayload{
		Title: fmt.Sprintf("SMS from %s", ev.From),
		Body:  body,
		Tag:   fmt.Sprintf("sms-%s-%d", ev.From, time.Now().UnixMilli()),
	})
	return nil
}

// HandleInboundCall notifies subscribers while the call is ringing.
// Actual routing is configured with the provider, outside this system.
func (s *webhookService) HandleInboundCall(ctx context.Context, ev models.CallEvent) error {
	if ev.Status != "ringing" {
		return nil
	}

	s.notify(ctx, models.PushPayload{
		Title: fmt.Sprintf("Incoming call from %s", ev.From),
		Body:  "Tap to open Lead Manager",
		Tag:   fmt.Sprintf("call-%s-%d", ev.From, time.Now().UnixMilli()),
	})
	return nil
}

// notify is best-effort: push failures are logged and never propagate.
func (s *webhookService) notify(ctx context.Context, payload models.PushPayload) {
	if err := s.push.Broadcast(ctx, payload); err != nil {
		s.logger.Warn("Push broadcast failed",
			zap.String("tag", payload.Tag),
			zap.Error(err))
	}
}
