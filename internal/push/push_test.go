package push

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/choviet/choviet-api/internal/config"
	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Failure
	}{
		{"nil error", nil, FailureTransient},
		{"network error", errors.New("connection refused"), FailureTransient},
		{"server error", errors.New("FCM returned status 503: unavailable"), FailureTransient},
		{"wrapped permanent sentinel", fmt.Errorf("attempt 1: %w", Permanent(errors.New("gone"))), FailurePermanent},
		{"legacy invalid registration", errors.New("FCM returned status 400: InvalidRegistration"), FailurePermanent},
		{"legacy not registered", errors.New("FCM returned status 404: NotRegistered"), FailurePermanent},
		{"apns bad device token", errors.New("BadDeviceToken"), FailurePermanent},
		{"v1 unregistered", errors.New(`FCM returned status 404: {"error":{"status":"NOT_FOUND","details":[{"errorCode":"UNREGISTERED"}]}}`), FailurePermanent},
		{"v1 invalid argument", errors.New(`FCM returned status 400: {"error":{"status":"INVALID_ARGUMENT"}}`), FailurePermanent},
		{"messaging error code", errors.New("registration-token-not-registered"), FailurePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestPermanentNilPassthrough(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestBuildSelection(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Run("fake flag wins", func(t *testing.T) {
		client := Build(config.PushConfig{
			Fake:           true,
			VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv",
		}, rdb)
		assert.Equal(t, "fake", client.Name())
	})

	t.Run("web push when VAPID keys set", func(t *testing.T) {
		client := Build(config.PushConfig{
			VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv",
		}, rdb)
		assert.Equal(t, "webpush", client.Name())
	})

	t.Run("fake when nothing configured", func(t *testing.T) {
		client := Build(config.PushConfig{}, rdb)
		assert.Equal(t, "fake", client.Name())
	})

	t.Run("broken FCM credentials fall back", func(t *testing.T) {
		client := Build(config.PushConfig{
			FCMProjectID:          "demo",
			FCMServiceAccountJSON: "not json",
		}, rdb)
		assert.Equal(t, "fake", client.Name())
	})
}

func TestFakeClientRecordsDeliveries(t *testing.T) {
	client := NewFakeClient()
	endpoint := &model.PushEndpoint{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Platform: model.PlatformAndroid,
		Token:    "tok-1",
	}

	err := client.Deliver(context.Background(), endpoint, "Tin nhắn mới từ An", "xin chào", map[string]string{"type": "dm_message"})
	require.NoError(t, err)

	deliveries := client.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, endpoint.ID, deliveries[0].EndpointID)
	assert.Equal(t, "Tin nhắn mới từ An", deliveries[0].Title)
	assert.Equal(t, "dm_message", deliveries[0].Data["type"])

	client.Reset()
	assert.Empty(t, client.Deliveries())
}

func TestWebPushClientRejectsNonWebEndpoints(t *testing.T) {
	client := NewWebPushClient(config.PushConfig{
		VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv",
	})
	endpoint := &model.PushEndpoint{
		ID:       uuid.New(),
		Platform: model.PlatformAndroid,
		Token:    "tok",
	}
	err := client.Deliver(context.Background(), endpoint, "t", "b", nil)
	require.Error(t, err)
	assert.Equal(t, FailureTransient, Classify(err))
}

func TestWebPushClientMissingKeysIsPermanent(t *testing.T) {
	client := NewWebPushClient(config.PushConfig{
		VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv",
	})
	endpoint := &model.PushEndpoint{
		ID:          uuid.New(),
		Platform:    model.PlatformWeb,
		EndpointURL: "https://push.example.com/sub/1",
	}
	err := client.Deliver(context.Background(), endpoint, "t", "b", nil)
	require.Error(t, err)
	assert.Equal(t, FailurePermanent, Classify(err))
}

func TestCurrentDefaultsToFake(t *testing.T) {
	ResetCurrent()
	assert.Equal(t, "fake", Current().Name())

	fake := NewFakeClient()
	SetCurrent(fake)
	assert.Same(t, Client(fake), Current())
	ResetCurrent()
}
