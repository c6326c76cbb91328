package notifications

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/notifykit/pkg/email"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testTrigger is a configurable trigger that counts capability calls.
type testTrigger struct {
	Tag  string `json:"-"`
	Key  string `json:"id"`
	Body string `json:"body"`

	link        string
	description string
	template    string
	skip        bool
	delay       time.Duration

	mu         sync.Mutex
	skipErr    error
	resolveErr error
	emailErr   error

	canEmail         atomic.Bool
	skipCalls        atomic.Int64
	linkCalls        atomic.Int64
	descriptionCalls atomic.Int64
	emailChecks      atomic.Int64
}

func newTestTrigger(id string) *testTrigger {
	t := &testTrigger{
		Tag:         "message",
		Key:         id,
		Body:        "hello",
		link:        "/messages/" + id,
		description: "alice@example.com sent you a message.",
		template:    "new_message",
	}
	t.canEmail.Store(true)
	return t
}

func (t *testTrigger) TypeTag() string { return t.Tag }
func (t *testTrigger) ID() string      { return t.Key }

func (t *testTrigger) SkipPredicate(ctx context.Context) (bool, error) {
	t.skipCalls.Add(1)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skip, t.skipErr
}

func (t *testTrigger) ResolveLink(ctx context.Context) (string, error) {
	t.linkCalls.Add(1)
	if err := t.wait(ctx); err != nil {
		return "", err
	}
	if err := t.getResolveErr(); err != nil {
		return "", err
	}
	return t.link, nil
}

func (t *testTrigger) ResolveDescription(ctx context.Context) (string, error) {
	t.descriptionCalls.Add(1)
	if err := t.wait(ctx); err != nil {
		return "", err
	}
	if err := t.getResolveErr(); err != nil {
		return "", err
	}
	return t.description, nil
}

func (t *testTrigger) wait(ctx context.Context) error {
	if t.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(t.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *testTrigger) EmailTemplateName() string { return t.template }

func (t *testTrigger) CanSendEmail(ctx context.Context) (bool, error) {
	t.emailChecks.Add(1)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.emailErr != nil {
		return false, t.emailErr
	}
	return t.canEmail.Load(), nil
}

func (t *testTrigger) setResolveErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolveErr = err
}

func (t *testTrigger) getResolveErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolveErr
}

// registryWith registers a loader per trigger type serving the given triggers.
func registryWith(triggers ...*testTrigger) *Registry {
	byType := make(map[string]map[string]*testTrigger)
	for _, t := range triggers {
		if byType[t.Tag] == nil {
			byType[t.Tag] = make(map[string]*testTrigger)
		}
		byType[t.Tag][t.Key] = t
	}

	r := NewRegistry()
	for tag, items := range byType {
		r.Register(tag, func(ctx context.Context, id string) (Trigger, error) {
			t, ok := items[id]
			if !ok {
				return nil, ErrTriggerNotFound
			}
			return t, nil
		})
	}
	return r
}

// storedNotification creates an unread notification for trigger in storage.
func storedNotification(s Storage, t *testTrigger) *Notification {
	n := Notification{
		ID:          "notif-" + t.Key,
		Trigger:     RefOf(t),
		RecipientID: "user-1",
		SenderID:    "user-2",
		Unread:      true,
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Create(context.Background(), n); err != nil {
		panic(err)
	}
	return &n
}

// MockStorage for error paths the memory storage cannot produce.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Create(ctx context.Context, notif Notification) error {
	args := m.Called(ctx, notif)
	return args.Error(0)
}

func (m *MockStorage) Get(ctx context.Context, notifID string) (*Notification, error) {
	args := m.Called(ctx, notifID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notification), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	args := m.Called(ctx, recipientID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Notification), args.Error(1)
}

func (m *MockStorage) SetCache(ctx context.Context, notifID string, field CacheField, value string) (string, error) {
	args := m.Called(ctx, notifID, field, value)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) MarkRead(ctx context.Context, notifID string) error {
	args := m.Called(ctx, notifID)
	return args.Error(0)
}

func (m *MockStorage) MarkAllRead(ctx context.Context, recipientID string, trigger *TriggerRef) (int64, error) {
	args := m.Called(ctx, recipientID, trigger)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

// MockPublisher records realtime messages.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockMailer records email requests.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendNotificationEmail(ctx context.Context, req EmailRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockSender implements email.TemplateSender.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendTemplate(ctx context.Context, params email.TemplateParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

var errBoom = errors.New("boom")
