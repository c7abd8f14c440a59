package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/models"
	"github.com/costaleads/lead-relay/internal/service"
	"github.com/costaleads/lead-relay/internal/service/mocks"
)

const (
	tampaNumber   = "+18137059021"
	tampaReply    = "Hey, this is Costa with Tampa Concrete Pros. Sorry I missed you! Text me what you need done and your location and I'll get you a quote today."
	genericReply  = "Hey, I'm sorry I missed your call! Please reply with what you need and your location and I'll get right back to you. — Costa"
	unknownNumber = "+19998887777"
	callerNumber  = "+15551234567"
)

func webhookConfig() *config.Config {
	return &config.Config{
		AutoReply: config.AutoReplyConfig{
			Messages: map[string]string{
				tampaNumber: tampaReply,
			},
			Fallback: genericReply,
		},
	}
}

func TestHandleMissedCall_SendsTailoredAutoReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	push := mocks.NewMockPushService(ctrl)

	// Auto-reply goes out from the dialed line back to the caller.
	gateway.EXPECT().
		SendMessage(gomock.Any(), tampaNumber, callerNumber, tampaReply).
		Return(&models.Message{SID: "SM1"}, nil)
	push.EXPECT().
		Broadcast(gomock.Any(), gomock.Cond(func(x any) bool {
			p := x.(models.PushPayload)
			return p.Title == "Missed call from "+callerNumber &&
				strings.HasPrefix(p.Tag, "missed-"+callerNumber)
		})).
		Return(nil)

	svc := service.NewWebhookService(webhookConfig(), gateway, push, zap.NewNop())

	err := svc.HandleMissedCall(context.Background(), models.CallEvent{
		CallSID: "CA1",
		From:    callerNumber,
		To:      tampaNumber,
		Status:  "no-answer",
	})
	require.NoError(t, err)
}

func TestHandleMissedCall_FallsBackToGenericMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	push := mocks.NewMockPushService(ctrl)

	gateway.EXPECT().
		SendMessage(gomock.Any(), unknownNumber, callerNumber, genericReply).
		Return(&models.Message{SID: "SM1"}, nil)
	push.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil)

	svc := service.NewWebhookService(webhookConfig(), gateway, push, zap.NewNop())

	err := svc.HandleMissedCall(context.Background(), models.CallEvent{
		CallSID: "CA1",
		From:    callerNumber,
		To:      unknownNumber,
		Status:  "busy",
	})
	require.NoError(t, err)
}

func TestHandleMissedCall_MissedStatuses(t *testing.T) {
	missed := []string{"no-answer", "busy", "canceled", "failed"}

	for _, status := range missed {
		t.Run(status, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			gateway := mocks.NewMockGateway(ctrl)
			push := mocks.NewMockPushService(ctrl)

			gateway.EXPECT().
				SendMessage(gomock.Any(), tampaNumber, callerNumber, tampaReply).
				Return(&models.Message{SID: "SM1"}, nil)
			push.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil)

			svc := service.NewWebhookService(webhookConfig(), gateway, push, zap.NewNop())

			err := svc.HandleMissedCall(context.Background(), models.CallEvent{
				From:   callerNumber,
				To:     tampaNumber,
				Status: status,
			})
			require.NoError(t, err)
		})
	}
}

func TestHandleMissedCall_IgnoresConnectedCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No SendMessage, no Broadcast: a completed call is not missed.
	gateway := mocks.NewMockGateway(ctrl)
	push := mocks.NewMockPushService(ctrl)

	svc := service.NewWebhookService(webhookConfig(), gateway, push, zap.NewNop())

	err := svc.HandleMissedCall(context.Background(), models.CallEvent{
		From:   callerNumber,
		To:     tampaNumber,
		Status: "completed",
	})
	require.NoError(t, err)
}

func TestHandleMissedCall_SendFailureSkipsNotification(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	push := mocks.NewMockPushService(ctrl)

	gateway.EXPECT().
		SendMessage(gomock.Any(), tampaNumber, callerNumber, tampaReply).
		Return(nil, errors.New("provider rejected"))

	svc := service.NewWebhookService(webhookConfig(), gateway, push, zap.NewNop())

	err := svc.HandleMissedCall(context.Background(), models.CallEvent{
		From:   callerNumber,
		To:     tampaNumber,
		Status: "no-answer",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send auto-reply")
}

func TestHandleMissedCall_PushFailureIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	push := mocks.NewMockPushService(ctrl)

	gateway.EXPECT().
		SendMessage(gomock.Any(), tampaNumber, callerNumber, tampaReply).
		Return(&models.Message{SID: "SM1"}, nil)
	push.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	svc := service.NewWebhookService(webhookConfig(), gateway, push, zap.NewNop())

	assert.NoError(t, svc.HandleMissedCall(context.Background(), models.CallEvent{
		From:   callerNumber,
		To:     tampaNumber,
		Status: "no-answer",
	}))
}

func TestHandleInboundSMS_NotifiesWithBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	push := mocks.NewMockPushService(ctrl)

	push.EXPECT().
		Broadcast(gomock.Any(), gomock.Cond(func(x any) bool {
			p := x.(models.PushPayload)
			return p.Title == "SMS from "+callerNumber && p.Body == "need a quote"
		})).
		Return(nil)

	svc := service.NewWebhookService(webhookConfig(), gateway, push, zap.NewNop())

	require.NoError(t, svc.HandleInboundSMS(context.Background(), models.MessageEvent{
		From: callerNumber,
		To:   tampaNumber,
		Body: "need a quote",
	}))
}

func TestHandleInboundSMS_TruncatesLongBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	push := mocks.NewMockPushService(ctrl)

	long := strings.Repeat("x", 150)
	push.EXPECT().
		Broadcast(gomock.Any(), gomock.Cond(func(x any) bool {
			p := x.(models.PushPayload)
			return len([]rune(p.Body)) == 100
		})).
		Return(nil)

	svc := service.NewWebhookService(webhookConfig(), gateway, push, zap.NewNop())

	require.NoError(t, svc.HandleInboundSMS(context.Background(), models.MessageEvent{
		From: callerNumber,
		Body: long,
	}))
}

func TestHandleInboundSMS_EmptyBodyPlaceholder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	push := mocks.NewMockPushService(ctrl)

	push.EXPECT().
		Broadcast(gomock.Any(), gomock.Cond(func(x any) bool {
			p := x.(models.PushPayload)
			return p.Body == "New message"
		})).
		Return(nil)

	svc := service.NewWebhookService(webhookConfig(), gateway, push, zap.NewNop())

	require.NoError(t, svc.HandleInboundSMS(context.Background(), models.MessageEvent{
		From: callerNumber,
	}))
}

func TestHandleInboundCall_NotifiesOnlyWhileRinging(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gateway := mocks.NewMockGateway(ctrl)
	push := mocks.NewMockPushService(ctrl)

	push.EXPECT().
		Broadcast(gomock.Any(), gomock.Cond(func(x any) bool {
			p := x.(models.PushPayload)
			return p.Title == "Incoming call from "+callerNumber
		})).
		Return(nil)

	svc := service.NewWebhookService(webhookConfig(), gateway, push, zap.NewNop())

	require.NoError(t, svc.HandleInboundCall(context.Background(), models.CallEvent{
		From:   callerNumber,
		To:     tampaNumber,
		Status: "ringing",
	}))

	// Subsequent lifecycle callbacks stay silent.
	for _, status := range []string{"in-progress", "completed", "no-answer"} {
		require.NoError(t, svc.HandleInboundCall(context.Background(), models.CallEvent{
			From:   callerNumber,
			To:     tampaNumber,
			Status: status,
		}))
	}
}
