package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Config configures the SQLite storage.
type Config struct {
	Path string `env:"SQLITE_PATH" envDefault:"notifykit.db"` // Path is the database file, or ":memory:".
}

// Storage implements notifications.Storage using a local SQLite database.
type Storage struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at cfg.Path, enables WAL mode
// and applies pending schema migrations.
func Open(cfg Config) (*Storage, error) {
	db, err := sqlx.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if cfg.Path == ":memory:" || strings.Contains(cfg.Path, "mode=memory") {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Storage{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS notifications (
    id                TEXT PRIMARY KEY,
    trigger_type      TEXT    NOT NULL,
    trigger_id        TEXT    NOT NULL,
    recipient_id      TEXT    NOT NULL DEFAULT '',
    sender_id         TEXT    NOT NULL DEFAULT '',
    unread            INTEGER NOT NULL DEFAULT 1,
    link_cache        TEXT,
    description_cache TEXT,
    use_default_email INTEGER NOT NULL DEFAULT 0,
    created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_recipient_created_idx ON notifications (recipient_id, created_at DESC);
CREATE INDEX IF NOT EXISTS notifications_trigger_idx ON notifications (trigger_type, trigger_id);
INSERT INTO schema_version (version) VALUES (1);`,
	},
}

func (s *Storage) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// notificationRow mirrors the notifications table; created_at is unix nanoseconds.
type notificationRow struct {
	ID               string  `db:"id"`
	TriggerType      string  `db:"trigger_type"`
	TriggerID        string  `db:"trigger_id"`
	RecipientID      string  `db:"recipient_id"`
	SenderID         string  `db:"sender_id"`
	Unread           bool    `db:"unread"`
	LinkCache        *string `db:"link_cache"`
	DescriptionCache *string `db:"description_cache"`
	UseDefaultEmail  bool    `db:"use_default_email"`
	CreatedAt        int64   `db:"created_at"`
}

func toRow(n notifications.Notification) notificationRow {
	return notificationRow{
		ID:               n.ID,
		TriggerType:      n.Trigger.Type,
		TriggerID:        n.Trigger.ID,
		RecipientID:      n.RecipientID,
		SenderID:         n.SenderID,
		Unread:           n.Unread,
		LinkCache:        n.LinkCache,
		DescriptionCache: n.DescriptionCache,
		UseDefaultEmail:  n.UseDefaultEmail,
		CreatedAt:        n.CreatedAt.UnixNano(),
	}
}

func (r notificationRow) toNotification() notifications.Notification {
	return notifications.Notification{
		ID:               r.ID,
		Trigger:          notifications.TriggerRef{Type: r.TriggerType, ID: r.TriggerID},
		RecipientID:      r.RecipientID,
		SenderID:         r.SenderID,
		Unread:           r.Unread,
		LinkCache:        r.LinkCache,
		DescriptionCache: r.DescriptionCache,
		UseDefaultEmail:  r.UseDefaultEmail,
		CreatedAt:        time.Unix(0, r.CreatedAt).UTC(),
	}
}

func (s *Storage) Create(ctx context.Context, notif notifications.Notification) error {
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, trigger_type, trigger_id, recipient_id, sender_id, unread,
			link_cache, description_cache, use_default_email, created_at)
		VALUES (:id, :trigger_type, :trigger_id, :recipient_id, :sender_id, :unread,
			:link_cache, :description_cache, :use_default_email, :created_at)`,
		toRow(notif),
	)
	if err != nil {
		return fmt.Errorf("inserting notification %s: %w", notif.ID, err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, notifID string) (*notifications.Notification, error) {
	var row notificationRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM notifications WHERE id = ?`, notifID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notifications.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("getting notification %s: %w", notifID, err)
	}
	n := row.toNotification()
	return &n, nil
}

func (s *Storage) List(ctx context.Context, recipientID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	query := `SELECT * FROM notifications WHERE recipient_id = ?`
	args := []any{recipientID}

	if opts.OnlyUnread {
		query += ` AND unread = 1`
	}
	if opts.TriggerType != "" {
		query += ` AND trigger_type = ?`
		args = append(args, opts.TriggerType)
	}
	if opts.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, opts.Since.UnixNano())
	}
	query += ` ORDER BY created_at DESC, id`
	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit == 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, opts.Offset)
	}

	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	result := make([]notifications.Notification, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toNotification())
	}
	return result, nil
}

func (s *Storage) SetCache(ctx context.Context, notifID string, field notifications.CacheField, value string) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("invalid cache field %q", field)
	}

	query := fmt.Sprintf(
		`UPDATE notifications SET %[1]s = COALESCE(%[1]s, ?) WHERE id = ? RETURNING %[1]s`,
		string(field),
	)

	var stored string
	if err := s.db.GetContext(ctx, &stored, query, value, notifID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", notifications.ErrNotificationNotFound
		}
		return "", fmt.Errorf("setting %s for notification %s: %w", field, notifID, err)
	}
	return stored, nil
}

func (s *Storage) MarkRead(ctx context.Context, notifID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET unread = 0 WHERE id = ?`, notifID)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", notifID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", notifID, err)
	}
	if n == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

func (s *Storage) MarkAllRead(ctx context.Context, recipientID string, trigger *notifications.TriggerRef) (int64, error) {
	query := `UPDATE notifications SET unread = 0 WHERE recipient_id = ? AND unread = 1`
	args := []any{recipientID}
	if trigger != nil {
		query += ` AND trigger_type = ? AND trigger_id = ?`
		args = append(args, trigger.Type, trigger.ID)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("marking notifications as read: %w", err)
	}
	return res.RowsAffected()
}

func (s *Storage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND unread = 1`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}
