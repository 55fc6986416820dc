// Package dispatch runs the asynchronous delivery worker: it picks up
// pending notifications, applies the recipient's preferences and trust
// state, fans out to the recipient's active endpoints through the push
// client, and writes exactly one terminal status per notification.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/choviet/choviet-api/internal/push"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationStore is the slice of the notification repository the
// dispatcher needs
type NotificationStore interface {
	FindByID(id uuid.UUID) (*model.Notification, error)
	MarkDelivered(id uuid.UUID) error
	MarkSkipped(id uuid.UUID, reason string) error
	MarkFailed(id uuid.UUID, reason string) error
}

// EndpointStore is the slice of the endpoint repository the dispatcher
// needs
type EndpointStore interface {
	ActiveForUser(userID uuid.UUID) ([]model.PushEndpoint, error)
	Deactivate(id uuid.UUID) error
	TouchLastSeen(id uuid.UUID) error
}

// UserStore looks up recipients and actors
type UserStore interface {
	FindByID(id uuid.UUID) (*model.User, error)
}

// BlockChecker answers whether either user blocks the other
type BlockChecker interface {
	Blocked(userA, userB uuid.UUID) (bool, error)
}

// Alerter notifies operators when a notification exhausts its retries
type Alerter interface {
	SendDispatchAlert(notificationID uuid.UUID, errMsg string) error
}

const (
	maxAttempts  = 3
	queueSize    = 256
	numWorkers   = 4
	baseInterval = 2 * time.Second
)

// Dispatcher consumes enqueued notification ids and drives each one to
// a terminal status.
type Dispatcher struct {
	notifications NotificationStore
	endpoints     EndpointStore
	users         UserStore
	blocks        BlockChecker
	client        push.Client
	alerter       Alerter

	urlHost string
	queue   chan uuid.UUID

	// overridable in tests to avoid real sleeps
	retryInterval time.Duration
	workers       int
}

func New(
	notifications NotificationStore,
	endpoints EndpointStore,
	users UserStore,
	blocks BlockChecker,
	client push.Client,
	alerter Alerter,
	urlHost string,
) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		endpoints:     endpoints,
		users:         users,
		blocks:        blocks,
		client:        client,
		alerter:       alerter,
		urlHost:       urlHost,
		queue:         make(chan uuid.UUID, queueSize),
		retryInterval: baseInterval,
		workers:       numWorkers,
	}
}

// Enqueue hands a notification to the worker pool without blocking the
// caller. A full queue drops the id; the notification stays pending and
// is visible in the database for reconciliation.
func (d *Dispatcher) Enqueue(id uuid.UUID) {
	select {
	case d.queue <- id:
	default:
		log.Printf("⚠️  Dispatch queue full, notification %s left pending", id)
	}
}

// Run consumes the queue until ctx is cancelled. Call in a goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("🚀 Delivery dispatcher started (%d workers)", d.workers)
	for i := 0; i < d.workers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-d.queue:
					d.Dispatch(ctx, id)
				}
			}
		}()
	}
	<-ctx.Done()
	log.Println("📴 Delivery dispatcher stopped")
}

// Dispatch processes one notification with retries. Transient failures
// back off exponentially for up to maxAttempts; a permanent failure
// stops immediately. Exhausted retries page the ops mailbox.
func (d *Dispatcher) Dispatch(ctx context.Context, id uuid.UUID) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = d.deliver(ctx, id)
		if lastErr == nil {
			return
		}
		if push.Classify(lastErr) == push.FailurePermanent {
			log.Printf("❌ Notification %s failed permanently: %v", id, lastErr)
			return
		}
		if attempt < maxAttempts {
			delay := d.retryInterval * (1 << (attempt - 1))
			log.Printf("⚠️  Notification %s attempt %d/%d failed: %v (retrying in %s)",
				id, attempt, maxAttempts, lastErr, delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}

	log.Printf("❌ Notification %s failed after %d attempts: %v", id, maxAttempts, lastErr)
	if d.alerter != nil {
		if err := d.alerter.SendDispatchAlert(id, lastErr.Error()); err != nil {
			log.Printf("⚠️  Failed to send dispatch alert: %v", err)
		}
	}
}

// deliver runs one full delivery attempt. It returns nil when the
// notification reached a terminal status (including skips) and an error
// only when the attempt should be retried or abandoned.
func (d *Dispatcher) deliver(ctx context.Context, id uuid.UUID) error {
	n, err := d.notifications.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return push.Permanent(fmt.Errorf("notification %s not found", id))
		}
		return fmt.Errorf("failed to load notification: %w", err)
	}
	if n.Terminal() {
		// already handled, e.g. a duplicate enqueue
		return nil
	}

	recipient, err := d.users.FindByID(n.RecipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return push.Permanent(fmt.Errorf("recipient %s not found", n.RecipientID))
		}
		return fmt.Errorf("failed to load recipient: %w", err)
	}

	eligible, err := d.shouldDeliver(n, recipient)
	if err != nil {
		return err
	}
	if !eligible {
		reason := d.determineSkipReason(n, recipient)
		log.Printf("⏭️  Notification %s skipped (%s)", n.ID, reason)
		return d.notifications.MarkSkipped(n.ID, reason)
	}

	endpoints, err := d.endpoints.ActiveForUser(n.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to load endpoints: %w", err)
	}
	if len(endpoints) == 0 {
		log.Printf("⏭️  Notification %s skipped (%s)", n.ID, model.SkipReasonNoActiveEndpoints)
		return d.notifications.MarkSkipped(n.ID, model.SkipReasonNoActiveEndpoints)
	}

	title, body, data := d.buildMessage(n, recipient)

	delivered, failed := 0, 0
	for i := range endpoints {
		endpoint := &endpoints[i]
		sendErr := d.client.Deliver(ctx, endpoint, title, body, data)
		if sendErr == nil {
			delivered++
			if err := d.endpoints.TouchLastSeen(endpoint.ID); err != nil {
				log.Printf("⚠️  Failed to touch endpoint %s: %v", endpoint.ID, err)
			}
			continue
		}

		failed++
		if push.Classify(sendErr) == push.FailurePermanent {
			log.Printf("🗑️  Deactivating dead endpoint %s (%s): %v", endpoint.ID, endpoint.Platform, sendErr)
			if err := d.endpoints.Deactivate(endpoint.ID); err != nil {
				log.Printf("⚠️  Failed to deactivate endpoint %s: %v", endpoint.ID, err)
			}
		} else {
			log.Printf("⚠️  Delivery to endpoint %s failed: %v", endpoint.ID, sendErr)
		}
	}

	switch {
	case delivered > 0:
		return d.notifications.MarkDelivered(n.ID)
	case failed > 0:
		return d.notifications.MarkFailed(n.ID, model.FailReasonAllEndpoints)
	default:
		return d.notifications.MarkSkipped(n.ID, model.SkipReasonNoneProcessed)
	}
}

// shouldDeliver applies the recipient's settings and the block list
func (d *Dispatcher) shouldDeliver(n *model.Notification, recipient *model.User) (bool, error) {
	if !recipient.PushEnabled {
		return false, nil
	}
	if n.Kind == model.NotificationKindDMMessage && !recipient.DMEnabled {
		return false, nil
	}
	if n.ActorID != nil {
		blocked, err := d.blocks.Blocked(*n.ActorID, n.RecipientID)
		if err != nil {
			return false, fmt.Errorf("failed to check block state: %w", err)
		}
		if blocked {
			return false, nil
		}
	}
	return true, nil
}

// determineSkipReason mirrors shouldDeliver's checks in order so the
// recorded reason names the first gate that closed. The unknown fallback
// keeps the two functions safe to evolve independently.
func (d *Dispatcher) determineSkipReason(n *model.Notification, recipient *model.User) string {
	if !recipient.PushEnabled {
		return model.SkipReasonPushDisabled
	}
	if n.Kind == model.NotificationKindDMMessage && !recipient.DMEnabled {
		return model.SkipReasonDMDisabled
	}
	if n.ActorID != nil {
		if blocked, err := d.blocks.Blocked(*n.ActorID, n.RecipientID); err == nil && blocked {
			return model.SkipReasonBlocked
		}
	}
	return model.SkipReasonUnknown
}

// buildMessage localizes title/body and flattens the payload into the
// string map push providers expect
func (d *Dispatcher) buildMessage(n *model.Notification, recipient *model.User) (string, string, map[string]string) {
	actorName := ""
	if n.ActorID != nil {
		if actor, err := d.users.FindByID(*n.ActorID); err == nil {
			actorName = actor.Name
		}
	}

	data := map[string]string{"type": string(n.Kind)}
	for k, v := range n.Payload {
		data[k] = fmt.Sprint(v)
	}
	if convID, ok := data["conversation_id"]; ok && n.Kind == model.NotificationKindDMMessage {
		data["url"] = fmt.Sprintf("http://%s/chat/%s", d.urlHost, convID)
	}

	return n.LocalizedTitle(recipient, actorName), n.LocalizedBody(), data
}
