// Package ws delivers stored messages and presence changes to the
// recipients' open connections. Every event goes through one Redis
// Pub/Sub channel, so a user connected to another instance is reachable
// all the same.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "choviet:events"

// envelope is the wire form on the Redis channel. A zero Target means
// the event is for every connected client.
type envelope struct {
	Target uuid.UUID      `json:"target,omitempty"`
	Event  *model.WSEvent `json:"event"`
}

// Hub tracks which users are connected to this instance and routes
// events to them. One user may hold several connections (tabs, devices).
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	rdb *redis.Client
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
	}
}

// Run owns the client registry until ctx is cancelled. Call in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	go h.subscribe(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register queues a client for registration with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// SendToUser delivers an event to every connection the user holds, on
// this instance or any other subscribed to the channel.
func (h *Hub) SendToUser(userID uuid.UUID, event *model.WSEvent) {
	h.publish(userID, event)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	first := false
	if _, ok := h.clients[c.UserID]; !ok {
		h.clients[c.UserID] = make(map[*Client]bool)
		first = true
	}
	h.clients[c.UserID][c] = true
	total := len(h.clients[c.UserID])
	h.mu.Unlock()

	log.Printf("✅ Client connected: %s (connections: %d)", c.UserID, total)
	if first {
		h.publish(uuid.Nil, &model.WSEvent{
			Type:    model.WSEventOnline,
			Payload: model.OnlineEvent{UserID: c.UserID, IsOnline: true},
		})
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	last := false
	if conns, ok := h.clients[c.UserID]; ok {
		if _, ok := conns[c]; ok {
			delete(conns, c)
			close(c.send)
		}
		if len(conns) == 0 {
			delete(h.clients, c.UserID)
			last = true
		}
	}
	h.mu.Unlock()

	log.Printf("❌ Client disconnected: %s", c.UserID)
	if last {
		h.publish(uuid.Nil, &model.WSEvent{
			Type:    model.WSEventOffline,
			Payload: model.OnlineEvent{UserID: c.UserID, IsOnline: false},
		})
	}
}

func (h *Hub) publish(target uuid.UUID, event *model.WSEvent) {
	data, err := json.Marshal(envelope{Target: target, Event: event})
	if err != nil {
		log.Printf("⚠️  Failed to encode ws event: %v", err)
		return
	}
	if err := h.rdb.Publish(context.Background(), redisChannel, data).Err(); err != nil {
		log.Printf("⚠️  Failed to publish ws event: %v", err)
	}
}

// subscribe feeds events from the Redis channel to the local clients
func (h *Hub) subscribe(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Println("📡 Redis Pub/Sub subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("⚠️  Dropping malformed ws event: %v", err)
				continue
			}
			h.deliverLocal(env)
		}
	}
}

func (h *Hub) deliverLocal(env envelope) {
	data, err := json.Marshal(env.Event)
	if err != nil {
		log.Printf("⚠️  Failed to encode ws event for delivery: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID, conns := range h.clients {
		if env.Target != uuid.Nil && userID != env.Target {
			continue
		}
		for c := range conns {
			select {
			case c.send <- data:
			default:
				// slow consumer; drop the event rather than block the hub
			}
		}
	}
}
