package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/costaleads/lead-relay/internal/conversation"
	"github.com/costaleads/lead-relay/internal/models"
)

type conversationService struct {
	gateway Gateway
	logger  *zap.Logger
}

func NewConversationService(gateway Gateway, logger *zap.Logger) ConversationService {
	return &conversationService{
		gateway: gateway,
		logger:  logger,
	}
}

// ListThreads fetches messages and calls concurrently and aggregates
// them into a sorted thread list. Either fetch failing fails the whole
// aggregation: a messages-only view would present misleading recency
// ordering, so no partial result is ever produced.
func (s *conversationService) ListThreads(ctx context.Context, number string, limit int) (*ThreadListResult, error) {
	var (
		messages []models.Message
		calls    []models.Call
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		messages, err = s.gateway.FetchMessages(gctx, number, limit)
		return err
	})
	g.Go(func() error {
		var err error
		calls, err = s.gateway.FetchCalls(gctx, number, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	threads := conversation.Sorted(conversation.Aggregate(messages, calls, number))

	result := &ThreadListResult{
		Threads:     make([]ThreadSummary, 0, len(threads)),
		TotalUnread: conversation.TotalUnread(threads),
	}
	for _, t := range threads {
		result.Threads = append(result.Threads, ThreadSummary{
			Number:       t.Number,
			LastActivity: t.LastActivity,
			Preview:      t.Preview(),
			Unread:       t.Unread(),
			MessageCount: len(t.Messages),
			CallCount:    len(t.Calls),
		})
	}

	s.logger.Debug("Aggregated threads",
		zap.String("number", number),
		zap.Int("threads", len(result.Threads)),
		zap.Int("unread", result.TotalUnread))
	return result, nil
}
