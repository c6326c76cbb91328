package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// DB is the subset of *pgxpool.Pool used by Storage.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Storage is a PostgreSQL implementation of notifications.Storage.
type Storage struct {
	db DB
}

// NewStorage creates a PostgreSQL-backed notification storage.
func NewStorage(db DB) *Storage {
	return &Storage{db: db}
}

const selectColumns = `id::text, trigger_type, trigger_id, recipient_id, sender_id, unread,
	link_cache, description_cache, use_default_email, created_at`

func (s *Storage) Create(ctx context.Context, notif notifications.Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, trigger_type, trigger_id, recipient_id, sender_id, unread,
			link_cache, description_cache, use_default_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		notif.ID, notif.Trigger.Type, notif.Trigger.ID, notif.RecipientID, notif.SenderID, notif.Unread,
		notif.LinkCache, notif.DescriptionCache, notif.UseDefaultEmail, notif.CreatedAt,
	)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return errors.Join(ErrDuplicateNotification, err)
		}
		return fmt.Errorf("failed to insert notification %s: %w", notif.ID, err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, notifID string) (*notifications.Notification, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM notifications WHERE id = $1`, notifID)
	notif, err := scanNotification(row)
	if err != nil {
		if IsNotFoundError(err) || isInvalidID(err) {
			return nil, notifications.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification %s: %w", notifID, err)
	}
	return &notif, nil
}

func (s *Storage) List(ctx context.Context, recipientID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	query, args := buildListQuery(recipientID, opts)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	result := []notifications.Notification{}
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		result = append(result, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return result, nil
}

// SetCache uses COALESCE so the first committed value wins under concurrent writers.
func (s *Storage) SetCache(ctx context.Context, notifID string, field notifications.CacheField, value string) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("invalid cache field %q", field)
	}

	query := fmt.Sprintf(
		`UPDATE notifications SET %[1]s = COALESCE(%[1]s, $2) WHERE id = $1 RETURNING %[1]s`,
		string(field),
	)

	var stored string
	if err := s.db.QueryRow(ctx, query, notifID, value).Scan(&stored); err != nil {
		if IsNotFoundError(err) || isInvalidID(err) {
			return "", notifications.ErrNotificationNotFound
		}
		return "", fmt.Errorf("failed to set %s for notification %s: %w", field, notifID, err)
	}
	return stored, nil
}

func (s *Storage) MarkRead(ctx context.Context, notifID string) error {
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET unread = FALSE WHERE id = $1`, notifID)
	if err != nil {
		if isInvalidID(err) {
			return notifications.ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification %s as read: %w", notifID, err)
	}
	if tag.RowsAffected() == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

func (s *Storage) MarkAllRead(ctx context.Context, recipientID string, trigger *notifications.TriggerRef) (int64, error) {
	query := `UPDATE notifications SET unread = FALSE WHERE recipient_id = $1 AND unread`
	args := []any{recipientID}
	if trigger != nil {
		query += ` AND trigger_type = $2 AND trigger_id = $3`
		args = append(args, trigger.Type, trigger.ID)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Storage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND unread`, recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func buildListQuery(recipientID string, opts notifications.ListOptions) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + selectColumns + ` FROM notifications WHERE recipient_id = $1`)
	args := []any{recipientID}

	if opts.OnlyUnread {
		sb.WriteString(` AND unread`)
	}
	if opts.TriggerType != "" {
		args = append(args, opts.TriggerType)
		fmt.Fprintf(&sb, ` AND trigger_type = $%d`, len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		fmt.Fprintf(&sb, ` AND created_at >= $%d`, len(args))
	}

	sb.WriteString(` ORDER BY created_at DESC, id`)

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))
	}

	return sb.String(), args
}

func scanNotification(row pgx.Row) (notifications.Notification, error) {
	var n notifications.Notification
	err := row.Scan(
		&n.ID, &n.Trigger.Type, &n.Trigger.ID, &n.RecipientID, &n.SenderID, &n.Unread,
		&n.LinkCache, &n.DescriptionCache, &n.UseDefaultEmail, &n.CreatedAt,
	)
	return n, err
}

// isInvalidID detects malformed uuid input (SQLSTATE 22P02); such ids cannot exist.
func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
