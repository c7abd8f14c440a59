package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/costaleads/lead-relay/internal/models"
	"github.com/costaleads/lead-relay/internal/service"
	"github.com/costaleads/lead-relay/internal/service/mocks"
)

func pt(t *testing.T, value string) models.ProviderTime {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return models.ProviderTime{Time: parsed}
}

func TestListThreads_AggregatesBothSources(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	gateway.EXPECT().
		FetchMessages(gomock.Any(), tampaNumber, 50).
		Return([]models.Message{
			{
				SID:         "SM1",
				From:        callerNumber,
				To:          tampaNumber,
				Body:        "need a quote",
				Direction:   "inbound",
				Status:      "received",
				DateCreated: pt(t, "2026-08-01T10:00:00Z"),
			},
		}, nil)
	gateway.EXPECT().
		FetchCalls(gomock.Any(), tampaNumber, 50).
		Return([]models.Call{
			{
				SID:         "CA1",
				From:        "+15559990000",
				To:          tampaNumber,
				Direction:   "inbound",
				Status:      "no-answer",
				Duration:    "0",
				DateCreated: pt(t, "2026-08-01T11:00:00Z"),
			},
		}, nil)

	svc := service.NewConversationService(gateway, zap.NewNop())

	result, err := svc.ListThreads(context.Background(), tampaNumber, 50)
	require.NoError(t, err)
	require.Len(t, result.Threads, 2)

	// Missed call is more recent, so its thread leads.
	assert.Equal(t, "+15559990000", result.Threads[0].Number)
	assert.Equal(t, "📥 Call", result.Threads[0].Preview)
	assert.Equal(t, 1, result.Threads[0].CallCount)

	assert.Equal(t, callerNumber, result.Threads[1].Number)
	assert.Equal(t, "need a quote", result.Threads[1].Preview)
	assert.Equal(t, 1, result.Threads[1].Unread)

	assert.Equal(t, 1, result.TotalUnread)
}

func TestListThreads_CallFetchFailureFailsAggregation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	gateway.EXPECT().
		FetchMessages(gomock.Any(), tampaNumber, 50).
		Return([]models.Message{{SID: "SM1"}}, nil).
		AnyTimes()
	gateway.EXPECT().
		FetchCalls(gomock.Any(), tampaNumber, 50).
		Return(nil, errors.New("provider timeout"))

	svc := service.NewConversationService(gateway, zap.NewNop())

	result, err := svc.ListThreads(context.Background(), tampaNumber, 50)
	require.Error(t, err)
	assert.Nil(t, result, "no partial thread list on a failed fetch")
	assert.Contains(t, err.Error(), "failed to load conversations")
}

func TestListThreads_EmptySources(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	gateway.EXPECT().FetchMessages(gomock.Any(), tampaNumber, 50).Return(nil, nil)
	gateway.EXPECT().FetchCalls(gomock.Any(), tampaNumber, 50).Return(nil, nil)

	svc := service.NewConversationService(gateway, zap.NewNop())

	result, err := svc.ListThreads(context.Background(), tampaNumber, 50)
	require.NoError(t, err)
	assert.Empty(t, result.Threads)
	assert.Zero(t, result.TotalUnread)
}
