package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/choviet/choviet-api/internal/config"
	"github.com/choviet/choviet-api/internal/model"
)

// WebPushClient delivers VAPID-signed Web Push messages to browser
// subscriptions (PWA endpoints).
type WebPushClient struct {
	publicKey  string
	privateKey string
	subject    string
	urlHost    string
}

func NewWebPushClient(cfg config.PushConfig) *WebPushClient {
	return &WebPushClient{
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subject:    cfg.VAPIDSubject,
		urlHost:    cfg.URLHost,
	}
}

func (c *WebPushClient) Name() string {
	return "webpush"
}

func (c *WebPushClient) Deliver(ctx context.Context, endpoint *model.PushEndpoint, title, body string, data map[string]string) error {
	if !endpoint.Web() {
		return fmt.Errorf("web push client cannot deliver to platform %s", endpoint.Platform)
	}
	if endpoint.EndpointURL == "" || !endpoint.HasWebPushKeys() {
		return Permanent(fmt.Errorf("web endpoint %s is missing subscription keys", endpoint.ID))
	}

	payload := map[string]interface{}{
		"title": title,
		"body":  body,
		"icon":  "/icon-192.png",
		"badge": "/icon-72.png",
		"data":  data,
	}
	if url, ok := data["url"]; ok {
		payload["url"] = url
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode web push payload: %w", err)
	}

	sub := &webpush.Subscription{
		Endpoint: endpoint.EndpointURL,
		Keys: webpush.Keys{
			Auth:   endpoint.KeyAuth,
			P256dh: endpoint.KeyP256dh,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, encoded, sub, &webpush.Options{
		Subscriber:      c.subject,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             60,
	})
	if err != nil {
		return fmt.Errorf("web push request failed: %w", err)
	}
	defer resp.Body.Close()

	// 404/410 mean the browser dropped the subscription
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return Permanent(fmt.Errorf("web push subscription gone (status %d)", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("web push returned status %d", resp.StatusCode)
	}
	return nil
}
