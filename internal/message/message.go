// Package message implements the "message" trigger: a direct message from
// one user to another.
package message

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// TypeTag is the trigger type of messages.
const TypeTag = "message"

// Content markers understood by the trigger.
const (
	SkipMarker    = "[SKIP]"
	DelayedMarker = "[DELAYED]"
)

const (
	linkTemplate        = "/messages/{id}"
	descriptionTemplate = "{author.email} sent you a message."
	emailTemplate       = "new_message"
)

// Author is the sender of a message.
type Author struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Message is a direct message. It implements notifications.Trigger.
type Message struct {
	MessageID   string    `json:"id"`
	Author      Author    `json:"author"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

var _ notifications.Trigger = (*Message)(nil)

func (m *Message) TypeTag() string { return TypeTag }
func (m *Message) ID() string      { return m.MessageID }

// SkipPredicate skips messages whose content starts with the skip marker.
func (m *Message) SkipPredicate(ctx context.Context) (bool, error) {
	return strings.HasPrefix(m.Content, SkipMarker), nil
}

func (m *Message) ResolveLink(ctx context.Context) (string, error) {
	return notifications.Interpolate(linkTemplate, m.lookup)
}

func (m *Message) ResolveDescription(ctx context.Context) (string, error) {
	return notifications.Interpolate(descriptionTemplate, m.lookup)
}

func (m *Message) EmailTemplateName() string { return emailTemplate }

// CanSendEmail holds back email for delayed messages.
func (m *Message) CanSendEmail(ctx context.Context) (bool, error) {
	return !strings.HasPrefix(m.Content, DelayedMarker), nil
}

func (m *Message) lookup(key string) (string, bool) {
	switch key {
	case "id":
		return m.MessageID, true
	case "author.id":
		return m.Author.ID, true
	case "author.email":
		return m.Author.Email, m.Author.Email != ""
	case "recipient_id":
		return m.RecipientID, true
	}
	return "", false
}
