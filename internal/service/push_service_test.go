package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/models"
	"github.com/costaleads/lead-relay/internal/push"
	pushmocks "github.com/costaleads/lead-relay/internal/push/mocks"
	"github.com/costaleads/lead-relay/internal/service"
)

func pushTestConfig() *config.Config {
	return &config.Config{
		Push: config.PushConfig{
			VAPIDPublicKey: "test-public-key",
		},
	}
}

func TestSubscribe_StoresValidSubscription(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := pushmocks.NewMockStore(ctrl)
	sub := &models.PushSubscription{
		Endpoint: "https://fcm.googleapis.com/fcm/send/abc",
		Keys:     models.SubscriptionKeys{P256dh: "k1", Auth: "k2"},
	}
	store.EXPECT().Save(gomock.Any(), sub).Return("id-1", nil)

	svc := service.NewPushService(pushTestConfig(), store, nil, zap.NewNop())

	require.NoError(t, svc.Subscribe(context.Background(), sub))
}

func TestSubscribe_RejectsInvalidEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Save is never reached for a bad endpoint.
	store := pushmocks.NewMockStore(ctrl)
	svc := service.NewPushService(pushTestConfig(), store, nil, zap.NewNop())

	for _, endpoint := range []string{"", "not a url", "ftp://example.com/x", "https://"} {
		err := svc.Subscribe(context.Background(), &models.PushSubscription{Endpoint: endpoint})
		assert.ErrorIs(t, err, service.ErrInvalidSubscription, "endpoint %q", endpoint)
	}
}

func TestSubscribe_StoreFailurePropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := pushmocks.NewMockStore(ctrl)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return("", errors.New("redis down"))

	svc := service.NewPushService(pushTestConfig(), store, nil, zap.NewNop())

	err := svc.Subscribe(context.Background(), &models.PushSubscription{
		Endpoint: "https://push.example.com/sub",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrInvalidSubscription)
}

func TestVAPIDKey(t *testing.T) {
	svc := service.NewPushService(pushTestConfig(), nil, nil, zap.NewNop())
	assert.Equal(t, "test-public-key", svc.VAPIDKey())
}

func TestSweep_RemovesOnlyInvalidRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := pushmocks.NewMockStore(ctrl)
	store.EXPECT().List(gomock.Any()).Return([]push.StoredSubscription{
		{ID: "good", Subscription: models.PushSubscription{Endpoint: "https://push.example.com/a"}},
		{ID: "bad", Subscription: models.PushSubscription{Endpoint: "::not-a-url::"}},
	}, nil)
	store.EXPECT().Delete(gomock.Any(), "bad").Return(nil)

	svc := service.NewPushService(pushTestConfig(), store, nil, zap.NewNop())

	require.NoError(t, svc.Sweep(context.Background()))
}

func TestSweep_ListErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := pushmocks.NewMockStore(ctrl)
	store.EXPECT().List(gomock.Any()).Return(nil, errors.New("scan failed"))

	svc := service.NewPushService(pushTestConfig(), store, nil, zap.NewNop())

	assert.Error(t, svc.Sweep(context.Background()))
}
