package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/choviet/choviet-api/internal/push"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ---- in-memory stores -------------------------------------------------

type memNotificationStore struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*model.Notification
}

func newMemNotificationStore(ns ...*model.Notification) *memNotificationStore {
	s := &memNotificationStore{notifications: map[uuid.UUID]*model.Notification{}}
	for _, n := range ns {
		s.notifications[n.ID] = n
	}
	return s
}

func (s *memNotificationStore) FindByID(id uuid.UUID) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *n
	return &clone, nil
}

func (s *memNotificationStore) mark(id uuid.UUID, status model.NotificationStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.Status != model.NotificationStatusPending {
		return nil
	}
	n.Status = status
	n.FailureReason = reason
	return nil
}

func (s *memNotificationStore) MarkDelivered(id uuid.UUID) error {
	return s.mark(id, model.NotificationStatusDelivered, "")
}

func (s *memNotificationStore) MarkSkipped(id uuid.UUID, reason string) error {
	return s.mark(id, model.NotificationStatusSkipped, reason)
}

func (s *memNotificationStore) MarkFailed(id uuid.UUID, reason string) error {
	return s.mark(id, model.NotificationStatusFailed, reason)
}

func (s *memNotificationStore) get(id uuid.UUID) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.notifications[id]
}

type memEndpointStore struct {
	mu        sync.Mutex
	endpoints map[uuid.UUID]*model.PushEndpoint
	touched   []uuid.UUID
}

func newMemEndpointStore(eps ...*model.PushEndpoint) *memEndpointStore {
	s := &memEndpointStore{endpoints: map[uuid.UUID]*model.PushEndpoint{}}
	for _, ep := range eps {
		s.endpoints[ep.ID] = ep
	}
	return s
}

func (s *memEndpointStore) ActiveForUser(userID uuid.UUID) ([]model.PushEndpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PushEndpoint
	for _, ep := range s.endpoints {
		if ep.UserID == userID && ep.Active {
			out = append(out, *ep)
		}
	}
	return out, nil
}

func (s *memEndpointStore) Deactivate(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ep, ok := s.endpoints[id]; ok {
		ep.Active = false
	}
	return nil
}

func (s *memEndpointStore) TouchLastSeen(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, id)
	return nil
}

func (s *memEndpointStore) active(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoints[id].Active
}

type memUserStore struct {
	users map[uuid.UUID]*model.User
}

func (s *memUserStore) FindByID(id uuid.UUID) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *u
	return &clone, nil
}

type memBlockChecker struct {
	blocked bool
}

func (s *memBlockChecker) Blocked(_, _ uuid.UUID) (bool, error) {
	return s.blocked, nil
}

type memAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (a *memAlerter) SendDispatchAlert(_ uuid.UUID, errMsg string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, errMsg)
	return nil
}

// scriptedClient fails per token according to its script
type scriptedClient struct {
	mu     sync.Mutex
	errs   map[string]error // token -> error, missing means success
	calls  int
	tokens []string
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Deliver(_ context.Context, endpoint *model.PushEndpoint, _, _ string, _ map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.tokens = append(c.tokens, endpoint.Token)
	return c.errs[endpoint.Token]
}

// ---- fixtures ---------------------------------------------------------

type fixture struct {
	dispatcher    *Dispatcher
	notifications *memNotificationStore
	endpoints     *memEndpointStore
	users         *memUserStore
	blocks        *memBlockChecker
	client        *scriptedClient
	alerter       *memAlerter

	recipient *model.User
	actor     *model.User
}

func newFixture(t *testing.T, client push.Client, ns ...*model.Notification) *fixture {
	t.Helper()
	recipient := &model.User{ID: uuid.New(), Name: "Minh", Locale: "vi", PushEnabled: true, DMEnabled: true}
	actor := &model.User{ID: uuid.New(), Name: "An", Locale: "vi", PushEnabled: true, DMEnabled: true}

	f := &fixture{
		notifications: newMemNotificationStore(ns...),
		endpoints:     newMemEndpointStore(),
		users:         &memUserStore{users: map[uuid.UUID]*model.User{recipient.ID: recipient, actor.ID: actor}},
		blocks:        &memBlockChecker{},
		alerter:       &memAlerter{},
		recipient:     recipient,
		actor:         actor,
	}
	if sc, ok := client.(*scriptedClient); ok {
		f.client = sc
	}
	f.dispatcher = New(f.notifications, f.endpoints, f.users, f.blocks, client, f.alerter, "localhost:3000")
	f.dispatcher.retryInterval = time.Millisecond
	return f
}

func dmNotification(recipient, actor uuid.UUID, convID uuid.UUID) *model.Notification {
	return &model.Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		ActorID:     &actor,
		Kind:        model.NotificationKindDMMessage,
		Body:        "bạn còn bán cái tủ lạnh không?",
		Payload:     map[string]interface{}{"conversation_id": convID.String()},
		Status:      model.NotificationStatusPending,
	}
}

func endpoint(userID uuid.UUID, platform model.Platform, token string) *model.PushEndpoint {
	return &model.PushEndpoint{ID: uuid.New(), UserID: userID, Platform: platform, Token: token, Active: true}
}

// ---- tests ------------------------------------------------------------

func TestDispatchDeliversToAllActiveEndpoints(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	f.notifications.notifications[n.ID] = n

	android := endpoint(f.recipient.ID, model.PlatformAndroid, "tok-android")
	web := endpoint(f.recipient.ID, model.PlatformWeb, "tok-web")
	f.endpoints.endpoints[android.ID] = android
	f.endpoints.endpoints[web.ID] = web

	f.dispatcher.Dispatch(context.Background(), n.ID)

	assert.Equal(t, model.NotificationStatusDelivered, f.notifications.get(n.ID).Status)
	assert.ElementsMatch(t, []string{"tok-android", "tok-web"}, f.client.tokens)
	assert.Len(t, f.endpoints.touched, 2)
}

func TestDispatchSkipsWhenPushDisabled(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)
	f.recipient.PushEnabled = false
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	f.notifications.notifications[n.ID] = n
	ep := endpoint(f.recipient.ID, model.PlatformAndroid, "tok")
	f.endpoints.endpoints[ep.ID] = ep

	f.dispatcher.Dispatch(context.Background(), n.ID)

	got := f.notifications.get(n.ID)
	assert.Equal(t, model.NotificationStatusSkipped, got.Status)
	assert.Equal(t, model.SkipReasonPushDisabled, got.FailureReason)
	assert.Zero(t, f.client.calls, "no provider call for an ineligible recipient")
}

func TestDispatchSkipsWhenDMDisabled(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)
	f.recipient.DMEnabled = false
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	f.notifications.notifications[n.ID] = n

	f.dispatcher.Dispatch(context.Background(), n.ID)

	got := f.notifications.get(n.ID)
	assert.Equal(t, model.NotificationStatusSkipped, got.Status)
	assert.Equal(t, model.SkipReasonDMDisabled, got.FailureReason)
}

func TestDispatchSkipsWhenBlocked(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)
	f.blocks.blocked = true
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	f.notifications.notifications[n.ID] = n

	f.dispatcher.Dispatch(context.Background(), n.ID)

	got := f.notifications.get(n.ID)
	assert.Equal(t, model.NotificationStatusSkipped, got.Status)
	assert.Equal(t, model.SkipReasonBlocked, got.FailureReason)
	assert.Zero(t, f.client.calls)
}

func TestDispatchSkipsWithoutActiveEndpoints(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	f.notifications.notifications[n.ID] = n

	f.dispatcher.Dispatch(context.Background(), n.ID)

	got := f.notifications.get(n.ID)
	assert.Equal(t, model.NotificationStatusSkipped, got.Status)
	assert.Equal(t, model.SkipReasonNoActiveEndpoints, got.FailureReason)
}

func TestDispatchPartialSuccessDeactivatesDeadEndpoint(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{
		"tok-ios": errors.New("FCM returned status 400: BadDeviceToken"),
	}}
	f := newFixture(t, client)
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	f.notifications.notifications[n.ID] = n

	android := endpoint(f.recipient.ID, model.PlatformAndroid, "tok-android")
	ios := endpoint(f.recipient.ID, model.PlatformIOS, "tok-ios")
	f.endpoints.endpoints[android.ID] = android
	f.endpoints.endpoints[ios.ID] = ios

	f.dispatcher.Dispatch(context.Background(), n.ID)

	// one success makes the whole notification delivered
	assert.Equal(t, model.NotificationStatusDelivered, f.notifications.get(n.ID).Status)
	assert.False(t, f.endpoints.active(ios.ID), "dead endpoint should be deactivated")
	assert.True(t, f.endpoints.active(android.ID))
	assert.Equal(t, []uuid.UUID{android.ID}, f.endpoints.touched)
}

func TestDispatchAllEndpointsFailed(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{
		"tok-1": errors.New("connection refused"),
		"tok-2": errors.New("FCM returned status 503: unavailable"),
	}}
	f := newFixture(t, client)
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	f.notifications.notifications[n.ID] = n
	for _, tok := range []string{"tok-1", "tok-2"} {
		ep := endpoint(f.recipient.ID, model.PlatformAndroid, tok)
		f.endpoints.endpoints[ep.ID] = ep
	}

	f.dispatcher.Dispatch(context.Background(), n.ID)

	got := f.notifications.get(n.ID)
	assert.Equal(t, model.NotificationStatusFailed, got.Status)
	assert.Equal(t, model.FailReasonAllEndpoints, got.FailureReason)
	// transient failures keep the endpoints active
	for id := range f.endpoints.endpoints {
		assert.True(t, f.endpoints.active(id))
	}
}

func TestDispatchTerminalNotificationIsUntouched(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	n.Status = model.NotificationStatusDelivered
	f.notifications.notifications[n.ID] = n
	ep := endpoint(f.recipient.ID, model.PlatformAndroid, "tok")
	f.endpoints.endpoints[ep.ID] = ep

	f.dispatcher.Dispatch(context.Background(), n.ID)

	assert.Equal(t, model.NotificationStatusDelivered, f.notifications.get(n.ID).Status)
	assert.Zero(t, f.client.calls, "terminal notifications must not be redelivered")
}

func TestDispatchMissingNotificationDoesNotRetry(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)

	f.dispatcher.Dispatch(context.Background(), uuid.New())

	assert.Zero(t, f.client.calls)
	assert.Empty(t, f.alerter.alerts, "missing records are permanent, not retryable")
}

// failNTimesStore fails FindByID transiently before succeeding
type failNTimesStore struct {
	*memNotificationStore
	mu       sync.Mutex
	failures int
}

func (s *failNTimesStore) FindByID(id uuid.UUID) (*model.Notification, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, errors.New("db connection reset")
	}
	s.mu.Unlock()
	return s.memNotificationStore.FindByID(id)
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	f.notifications.notifications[n.ID] = n
	ep := endpoint(f.recipient.ID, model.PlatformAndroid, "tok")
	f.endpoints.endpoints[ep.ID] = ep

	flaky := &failNTimesStore{memNotificationStore: f.notifications, failures: 2}
	f.dispatcher.notifications = flaky

	f.dispatcher.Dispatch(context.Background(), n.ID)

	assert.Equal(t, model.NotificationStatusDelivered, f.notifications.get(n.ID).Status)
	assert.Empty(t, f.alerter.alerts)
}

func TestDispatchAlertsAfterExhaustedRetries(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	f.notifications.notifications[n.ID] = n

	flaky := &failNTimesStore{memNotificationStore: f.notifications, failures: 10}
	f.dispatcher.notifications = flaky

	f.dispatcher.Dispatch(context.Background(), n.ID)

	require.Len(t, f.alerter.alerts, 1)
	assert.Contains(t, f.alerter.alerts[0], "db connection reset")
	assert.Equal(t, model.NotificationStatusPending, f.notifications.get(n.ID).Status)
}

func TestDispatchBuildsLocalizedMessageAndDeepLink(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)
	convID := uuid.New()
	n := dmNotification(f.recipient.ID, f.actor.ID, convID)
	f.notifications.notifications[n.ID] = n

	title, body, data := f.dispatcher.buildMessage(n, f.recipient)
	assert.Equal(t, "Tin nhắn mới từ An", title)
	assert.Equal(t, "bạn còn bán cái tủ lạnh không?", body)
	assert.Equal(t, string(model.NotificationKindDMMessage), data["type"])
	assert.Equal(t, convID.String(), data["conversation_id"])
	assert.Equal(t, "http://localhost:3000/chat/"+convID.String(), data["url"])
}

func TestEnqueueAndRunDrainQueue(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{}}
	f := newFixture(t, client)
	n := dmNotification(f.recipient.ID, f.actor.ID, uuid.New())
	f.notifications.notifications[n.ID] = n
	ep := endpoint(f.recipient.ID, model.PlatformAndroid, "tok")
	f.endpoints.endpoints[ep.ID] = ep

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.dispatcher.Run(ctx)

	f.dispatcher.Enqueue(n.ID)

	assert.Eventually(t, func() bool {
		return f.notifications.get(n.ID).Status == model.NotificationStatusDelivered
	}, 2*time.Second, 10*time.Millisecond)
}
