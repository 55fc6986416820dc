// Package push abstracts over the delivery backends: a fake client for
// non-production contexts, FCM for mobile, and Web Push for browsers.
// The variant is chosen once at construction from configuration, never
// per message.
package push

import (
	"context"
	"log"
	"sync"

	"github.com/choviet/choviet-api/internal/config"
	"github.com/choviet/choviet-api/internal/model"
	"github.com/redis/go-redis/v9"
)

// Client delivers one message to one endpoint. Implementations return
// nil on success, a *PermanentError when the endpoint itself is gone,
// and any other error for transient conditions.
type Client interface {
	Deliver(ctx context.Context, endpoint *model.PushEndpoint, title, body string, data map[string]string) error
	Name() string
}

// Build selects the client for this deployment: FCM when its
// credentials are configured, else web push, else the fake client.
// PUSH_FAKE=1 short-circuits to the fake client for test/CI.
func Build(cfg config.PushConfig, rdb *redis.Client) Client {
	if cfg.Fake {
		log.Println("📵 PUSH_FAKE set, using fake push client")
		return NewFakeClient()
	}

	if cfg.FCMConfigured() {
		client, err := NewFCMClient(cfg, rdb)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM client: %v (falling back)", err)
		} else {
			log.Printf("✅ FCM push client initialized (project=%s)", cfg.FCMProjectID)
			return client
		}
	}

	if cfg.WebPushConfigured() {
		log.Println("✅ Web push client initialized")
		return NewWebPushClient(cfg)
	}

	log.Println("⚠️  No push service configured, using fake client")
	return NewFakeClient()
}

var (
	currentMu sync.RWMutex
	current   Client
)

// Current returns the process-wide client set by SetCurrent. It is a
// convenience over explicit construction; the dispatcher takes the
// client as a dependency and does not read this.
func Current() Client {
	currentMu.RLock()
	defer currentMu.RUnlock()
	if current == nil {
		return NewFakeClient()
	}
	return current
}

// SetCurrent installs the process-wide client
func SetCurrent(c Client) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = c
}

// ResetCurrent clears the process-wide client; used by tests
func ResetCurrent() {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = nil
}
