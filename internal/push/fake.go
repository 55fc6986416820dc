package push

import (
	"context"
	"log"
	"sync"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
)

// FakeDelivery records one Deliver call made against the fake client
type FakeDelivery struct {
	EndpointID uuid.UUID
	UserID     uuid.UUID
	Platform   model.Platform
	Token      string
	Title      string
	Body       string
	Data       map[string]string
}

// FakeClient accepts every delivery and records it in memory. It is the
// default when no provider is configured and the backend for tests.
type FakeClient struct {
	mu         sync.Mutex
	deliveries []FakeDelivery
}

func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (c *FakeClient) Name() string {
	return "fake"
}

func (c *FakeClient) Deliver(_ context.Context, endpoint *model.PushEndpoint, title, body string, data map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = append(c.deliveries, FakeDelivery{
		EndpointID: endpoint.ID,
		UserID:     endpoint.UserID,
		Platform:   endpoint.Platform,
		Token:      endpoint.Token,
		Title:      title,
		Body:       body,
		Data:       data,
	})
	log.Printf("📦 [fake push] user=%s platform=%s title=%q", endpoint.UserID, endpoint.Platform, title)
	return nil
}

// Deliveries returns a copy of everything delivered so far
func (c *FakeClient) Deliveries() []FakeDelivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FakeDelivery, len(c.deliveries))
	copy(out, c.deliveries)
	return out
}

// Reset clears recorded deliveries
func (c *FakeClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = nil
}
