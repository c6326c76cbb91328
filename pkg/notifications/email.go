package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/email"
)

// EmailRequest is handed to a Mailer once a notification passes the send-time check.
type EmailRequest struct {
	TemplateName    string `json:"template_name"`
	NotificationID  string `json:"notification_id"`
	UseDefaultEmail bool   `json:"use_default_email"`
}

// Mailer sends notification emails.
type Mailer interface {
	SendNotificationEmail(ctx context.Context, req EmailRequest) error
}

// EmailAdapter selects the template and decides send eligibility for the email channel.
// Eligibility is never cached: every check loads the trigger's current state.
type EmailAdapter struct {
	registry *Registry
	mailer   Mailer
}

// NewEmailAdapter creates an email adapter. mailer may be nil when only
// template selection and eligibility checks are needed.
func NewEmailAdapter(registry *Registry, mailer Mailer) *EmailAdapter {
	return &EmailAdapter{
		registry: registry,
		mailer:   mailer,
	}
}

// TemplateName returns the email template registered for the trigger type.
func (a *EmailAdapter) TemplateName(ctx context.Context, notif *Notification) (string, error) {
	trigger, err := a.registry.Load(ctx, notif.Trigger)
	if err != nil {
		return "", err
	}
	return trigger.EmailTemplateName(), nil
}

// CanSendEmail evaluates the trigger's live state.
func (a *EmailAdapter) CanSendEmail(ctx context.Context, notif *Notification) (bool, error) {
	trigger, err := a.registry.Load(ctx, notif.Trigger)
	if err != nil {
		return false, err
	}
	return trigger.CanSendEmail(ctx)
}

// BuildRequest returns the dispatch request without checking eligibility.
func (a *EmailAdapter) BuildRequest(ctx context.Context, notif *Notification) (EmailRequest, error) {
	template, err := a.TemplateName(ctx, notif)
	if err != nil {
		return EmailRequest{}, err
	}
	return newEmailRequest(notif, template), nil
}

// Deliver sends the notification email if the trigger currently allows it.
// It reports whether an email was handed to the mailer.
func (a *EmailAdapter) Deliver(ctx context.Context, notif *Notification) (bool, error) {
	if a.mailer == nil {
		return false, errors.Join(ErrEmailDispatchFailed, errors.New("no mailer configured"))
	}

	trigger, err := a.registry.Load(ctx, notif.Trigger)
	if err != nil {
		return false, errors.Join(ErrEmailDispatchFailed, err)
	}

	ok, err := trigger.CanSendEmail(ctx)
	if err != nil {
		return false, errors.Join(ErrEmailDispatchFailed, err)
	}
	if !ok {
		return false, nil
	}

	req := newEmailRequest(notif, trigger.EmailTemplateName())
	if err := a.mailer.SendNotificationEmail(ctx, req); err != nil {
		return false, errors.Join(ErrEmailDispatchFailed, err)
	}
	return true, nil
}

func newEmailRequest(notif *Notification, template string) EmailRequest {
	return EmailRequest{
		TemplateName:    template,
		NotificationID:  notif.ID,
		UseDefaultEmail: notif.UseDefaultEmail,
	}
}

// Addresses are the envelope addresses of a notification email.
// An empty From selects the sender's default address.
type Addresses struct {
	To   string
	From string
}

// AddressResolver maps a notification's recipient and sender to email addresses.
type AddressResolver interface {
	ResolveAddresses(ctx context.Context, notif *Notification) (Addresses, error)
}

// AddressResolverFunc adapts a function to AddressResolver.
type AddressResolverFunc func(ctx context.Context, notif *Notification) (Addresses, error)

func (f AddressResolverFunc) ResolveAddresses(ctx context.Context, notif *Notification) (Addresses, error) {
	return f(ctx, notif)
}

// TemplateMailer sends notification emails through an email.TemplateSender.
// The template model carries the notification id and its resolved link and description.
type TemplateMailer struct {
	storage   Storage
	resolver  *Resolver
	addresses AddressResolver
	sender    email.TemplateSender
}

// NewTemplateMailer creates a Mailer backed by a template email sender.
func NewTemplateMailer(storage Storage, resolver *Resolver, addresses AddressResolver, sender email.TemplateSender) *TemplateMailer {
	return &TemplateMailer{
		storage:   storage,
		resolver:  resolver,
		addresses: addresses,
		sender:    sender,
	}
}

func (m *TemplateMailer) SendNotificationEmail(ctx context.Context, req EmailRequest) error {
	notif, err := m.storage.Get(ctx, req.NotificationID)
	if err != nil {
		return err
	}

	addrs, err := m.addresses.ResolveAddresses(ctx, notif)
	if err != nil {
		return fmt.Errorf("failed to resolve email addresses for notification %s: %w", notif.ID, err)
	}

	link, err := m.resolver.ResolveLink(ctx, notif)
	if err != nil {
		return err
	}
	description, err := m.resolver.ResolveDescription(ctx, notif)
	if err != nil {
		return err
	}

	from := addrs.From
	if req.UseDefaultEmail {
		from = ""
	}

	return m.sender.SendTemplate(ctx, email.TemplateParams{
		Template: req.TemplateName,
		SendTo:   addrs.To,
		From:     from,
		Tag:      req.TemplateName,
		Model: map[string]any{
			"notification_id": notif.ID,
			"link":            link,
			"description":     description,
		},
	})
}
