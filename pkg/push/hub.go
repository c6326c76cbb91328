package push

import (
	"context"
	"sync"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Subscriber receives realtime messages for one channel.
type Subscriber interface {
	// Receive returns the message stream. It is closed after Close or when
	// the subscription context ends.
	Receive() <-chan notifications.Message

	// Close is idempotent.
	Close() error
}

type subscriber struct {
	ch     chan notifications.Message
	closed bool
	mu     sync.RWMutex
}

func newSubscriber(bufferSize int) *subscriber {
	return &subscriber{ch: make(chan notifications.Message, bufferSize)}
}

func (s *subscriber) Receive() <-chan notifications.Message {
	return s.ch
}

func (s *subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send never blocks; a full buffer drops the message for this subscriber.
func (s *subscriber) send(msg notifications.Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

// Hub is an in-process realtime transport keyed by channel name.
// Slow subscribers lose messages instead of blocking publishers.
// All methods are safe for concurrent use.
type Hub struct {
	channels   map[string]map[*subscriber]struct{}
	bufferSize int
	closed     bool
	done       chan struct{}
	mu         sync.RWMutex
	cleanupWg  sync.WaitGroup
}

// NewHub creates a hub. bufferSize is the per-subscriber buffer, at least 1.
func NewHub(bufferSize int) *Hub {
	return &Hub{
		channels:   make(map[string]map[*subscriber]struct{}),
		bufferSize: max(bufferSize, 1),
		done:       make(chan struct{}),
	}
}

// Subscribe registers a subscriber on channel until ctx ends or Close is called.
// Subscribing to a closed hub returns an already closed subscriber.
func (h *Hub) Subscribe(ctx context.Context, channel string) Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := newSubscriber(h.bufferSize)
	if h.closed {
		_ = sub.Close()
		return sub
	}

	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.channels[channel] = subs
	}
	subs[sub] = struct{}{}

	if ctx.Done() != nil {
		h.cleanupWg.Add(1)
		go func() {
			defer h.cleanupWg.Done()
			select {
			case <-ctx.Done():
				h.unsubscribe(channel, sub)
			case <-h.done:
			}
		}()
	}

	return sub
}

// Publish implements notifications.Publisher.
// A message for a channel without subscribers is dropped.
func (h *Hub) Publish(ctx context.Context, msg notifications.Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}

	for sub := range h.channels[msg.Channel] {
		if !sub.send(msg) {
			go h.unsubscribe(msg.Channel, sub)
		}
	}
	return nil
}

// SubscriberCount returns the number of active subscribers on channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Close closes every subscriber. Publish fails with ErrHubClosed afterwards.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.done)
	for channel, subs := range h.channels {
		for sub := range subs {
			_ = sub.Close()
		}
		delete(h.channels, channel)
	}
	h.mu.Unlock()

	h.cleanupWg.Wait()
	return nil
}

func (h *Hub) unsubscribe(channel string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.channels[channel]; ok {
		if _, exists := subs[sub]; exists {
			delete(subs, sub)
			_ = sub.Close()
		}
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}
