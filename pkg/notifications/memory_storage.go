package notifications

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	notifications map[string]Notification // notifID -> notification
	mu            sync.RWMutex
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[string]Notification),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, notif Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if notif.ID == "" {
		return errors.New("notification ID is required")
	}
	if _, exists := s.notifications[notif.ID]; exists {
		return fmt.Errorf("notification %s already exists", notif.ID)
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}

	s.notifications[notif.ID] = cloneNotification(notif)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, notifID string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[notifID]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	// Return a copy to prevent external mutation of stored data
	notif := cloneNotification(n)
	return &notif, nil
}

func (s *MemoryStorage) List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Notification
	for _, n := range s.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if opts.OnlyUnread && !n.Unread {
			continue
		}
		if opts.TriggerType != "" && n.Trigger.Type != opts.TriggerType {
			continue
		}
		if opts.Since != nil && n.CreatedAt.Before(*opts.Since) {
			continue
		}
		filtered = append(filtered, cloneNotification(n))
	}

	slices.SortFunc(filtered, func(a, b Notification) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Notification{}, nil
	}

	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end], nil
}

func (s *MemoryStorage) SetCache(ctx context.Context, notifID string, field CacheField, value string) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("invalid cache field %q", field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[notifID]
	if !ok {
		return "", ErrNotificationNotFound
	}

	target := &n.LinkCache
	if field == CacheDescription {
		target = &n.DescriptionCache
	}
	if *target == nil {
		v := value
		*target = &v
		s.notifications[notifID] = n
	}
	return **target, nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, notifID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[notifID]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Unread = false
	s.notifications[notifID] = n
	return nil
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, recipientID string, trigger *TriggerRef) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for id, n := range s.notifications {
		if n.RecipientID != recipientID || !n.Unread {
			continue
		}
		if trigger != nil && n.Trigger != *trigger {
			continue
		}
		n.Unread = false
		s.notifications[id] = n
		updated++
	}
	return updated, nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && n.Unread {
			count++
		}
	}
	return count, nil
}

// cloneNotification copies the cache pointers so callers never share them with the store.
func cloneNotification(n Notification) Notification {
	if n.LinkCache != nil {
		v := *n.LinkCache
		n.LinkCache = &v
	}
	if n.DescriptionCache != nil {
		v := *n.DescriptionCache
		n.DescriptionCache = &v
	}
	return n
}
