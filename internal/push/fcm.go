package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/choviet/choviet-api/internal/config"
	"github.com/choviet/choviet-api/internal/model"
	"github.com/redis/go-redis/v9"
)

const fcmSendURLFormat = "https://fcm.googleapis.com/v1/projects/%s/messages:send"

// FCMClient delivers through the FCM HTTP v1 API for Android and iOS
// endpoints (APNS rides behind FCM). Authorization uses access tokens
// from a ServiceAccountTokenSource.
type FCMClient struct {
	projectID string
	tokens    *ServiceAccountTokenSource
	http      *http.Client
	sendURL   string
}

func NewFCMClient(cfg config.PushConfig, rdb *redis.Client) (*FCMClient, error) {
	tokens, err := NewServiceAccountTokenSource(cfg.FCMServiceAccountJSON, rdb, cfg.TokenCacheTTL)
	if err != nil {
		return nil, err
	}
	return &FCMClient{
		projectID: cfg.FCMProjectID,
		tokens:    tokens,
		http:      &http.Client{Timeout: 10 * time.Second},
		sendURL:   fmt.Sprintf(fcmSendURLFormat, cfg.FCMProjectID),
	}, nil
}

func (c *FCMClient) Name() string {
	return "fcm"
}

func (c *FCMClient) Deliver(ctx context.Context, endpoint *model.PushEndpoint, title, body string, data map[string]string) error {
	accessToken, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain FCM access token: %w", err)
	}

	payload := map[string]interface{}{
		"message": map[string]interface{}{
			"token": endpoint.Token,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
			"android": map[string]interface{}{
				"priority": "high",
				"notification": map[string]string{
					"sound":        "default",
					"click_action": "OPEN_CONVERSATION",
				},
			},
			"apns": map[string]interface{}{
				"payload": map[string]interface{}{
					"aps": map[string]interface{}{
						"sound": "default",
						"badge": 1,
					},
				},
			},
		},
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode FCM message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build FCM request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("FCM request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	sendErr := fmt.Errorf("FCM returned status %d: %s", resp.StatusCode, respBody)
	if Classify(sendErr) == FailurePermanent {
		return Permanent(sendErr)
	}
	return sendErr
}
