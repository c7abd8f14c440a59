package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/models"
)

// Deliverer posts payloads to every stored subscription endpoint with
// bounded concurrency. Each endpoint succeeds or fails independently; a
// failed endpoint has its subscription deleted on the spot, with no
// retry and no distinction between transient and permanent failures —
// except when the shared circuit breaker is open, which indicates an
// outage on our side rather than a dead endpoint.
//
// Delivery is the simplified unsigned form: a plain JSON POST without
// RFC 8291 payload encryption or a VAPID-signed authorization header.
// The key pair served at /push/vapid-key exists so a compliant
// implementation can be swapped in here.
type Deliverer struct {
	store       Store
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	concurrency int
	logger      *zap.Logger
}

func NewDeliverer(cfg *config.PushConfig, store Store, logger *zap.Logger) *Deliverer {
	cb := cfg.CircuitBreaker
	settings := gobreaker.Settings{
		Name:        "push-endpoints",
		MaxRequests: cb.MaxRequests,
		Interval:    time.Duration(cb.Interval) * time.Second,
		Timeout:     time.Duration(cb.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cb.ConsecutiveFails && failureRatio >= cb.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Push breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	concurrency := cfg.FanoutConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Deliverer{
		store: store,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		breaker:     gobreaker.NewCircuitBreaker(settings),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Broadcast fans the payload out to all stored subscriptions. The
// returned error covers listing only; per-endpoint failures are handled
// internally and never fail the batch.
func (d *Deliverer) Broadcast(ctx context.Context, payload models.PushPayload) error {
	subs, err := d.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			err := d.post(gctx, sub.Subscription.Endpoint, body)
			if err == nil {
				return nil
			}

			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				d.logger.Warn("Push breaker open, keeping subscription",
					zap.String("id", sub.ID))
				return nil
			}

			// Treat the subscription as expired and self-prune.
			d.logger.Info("Pruning failed subscription",
				zap.String("id", sub.ID),
				zap.Error(err))
			if delErr := d.store.Delete(gctx, sub.ID); delErr != nil {
				d.logger.Warn("Failed to prune subscription",
					zap.String("id", sub.ID),
					zap.Error(delErr))
			}
			return nil
		})
	}

	_ = g.Wait()

	d.logger.Info("Push broadcast complete",
		zap.Int("subscriptions", len(subs)),
		zap.String("tag", payload.Tag))
	return nil
}

func (d *Deliverer) post(ctx context.Context, endpoint string, body []byte) error {
	_, err := d.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				d.logger.Warn("Failed to close response body", zap.Error(err))
			}
		}()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

// BreakerState reports the endpoint breaker state for health checks.
func (d *Deliverer) BreakerState() gobreaker.State {
	return d.breaker.State()
}

// BreakerCounts reports total requests and failures seen by the breaker.
func (d *Deliverer) BreakerCounts() (requests, failures uint32) {
	counts := d.breaker.Counts()
	return counts.Requests, counts.TotalFailures
}
