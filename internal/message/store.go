package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// ErrIDMismatch is returned when an ingested message body names another message.
var ErrIDMismatch = errors.New("message: body id does not match event id")

// Store fetches messages by id.
type Store interface {
	GetMessage(ctx context.Context, id string) (*Message, error)
}

// Register binds the message loader to registry.
func Register(registry *notifications.Registry, store Store) {
	registry.Register(TypeTag, func(ctx context.Context, id string) (notifications.Trigger, error) {
		msg, err := store.GetMessage(ctx, id)
		if err != nil {
			return nil, err
		}
		return msg, nil
	})
}

// MemoryStore keeps messages in memory. Reads return copies so callers
// always observe the state at load time.
type MemoryStore struct {
	messages map[string]Message
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory message store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string]Message)}
}

// Save inserts or replaces a message.
func (s *MemoryStore) Save(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.MessageID] = msg
}

// Ingest decodes a JSON message body announced under id and saves it.
// A body without an id takes the announced one.
func (s *MemoryStore) Ingest(ctx context.Context, id string, body json.RawMessage) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to decode message %s: %w", id, err)
	}
	if msg.MessageID == "" {
		msg.MessageID = id
	}
	if msg.MessageID != id {
		return fmt.Errorf("%w: %s != %s", ErrIDMismatch, msg.MessageID, id)
	}
	s.Save(msg)
	return nil
}

// UpdateContent replaces the content of a stored message.
func (s *MemoryStore) UpdateContent(id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return fmt.Errorf("%w: message %s", notifications.ErrTriggerNotFound, id)
	}
	msg.Content = content
	s.messages[id] = msg
	return nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", notifications.ErrTriggerNotFound, id)
	}
	return &msg, nil
}

// DB is the subset of *pgxpool.Pool used by PgStore.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore reads messages from a PostgreSQL "messages" table owned by the
// messaging service.
type PgStore struct {
	db DB
}

// NewPgStore creates a PostgreSQL message store.
func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

const getMessageQuery = `SELECT id::text, author_id::text, author_email, recipient_id::text, content, created_at
	FROM messages WHERE id::text = $1`

func (s *PgStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	var msg Message
	err := s.db.QueryRow(ctx, getMessageQuery, id).Scan(
		&msg.MessageID,
		&msg.Author.ID,
		&msg.Author.Email,
		&msg.RecipientID,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: message %s", notifications.ErrTriggerNotFound, id)
		}
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return &msg, nil
}
