package email

import (
	"context"
	"fmt"
	"regexp"
)

// emailRegex is a pragmatic address check, not a full RFC 5322 parser.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// TemplateSender sends emails rendered by the provider from a named template.
type TemplateSender interface {
	SendTemplate(ctx context.Context, params TemplateParams) error
}

// TemplateParams represents the parameters for sending a templated email.
type TemplateParams struct {
	Template string         `json:"template"`       // Template alias, e.g. "new_message"
	SendTo   string         `json:"send_to"`        // Email address of the recipient
	From     string         `json:"from,omitempty"` // Optional, defaults to Config.SenderEmail
	Tag      string         `json:"tag,omitempty"`  // Optional
	Model    map[string]any `json:"model,omitempty"`
}

// Validate checks the required fields and address formats.
func (p TemplateParams) Validate() error {
	if p.Template == "" {
		return fmt.Errorf("%w: template is required", ErrInvalidParams)
	}
	if p.SendTo == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidParams)
	}
	if !emailRegex.MatchString(p.SendTo) {
		return fmt.Errorf("%w: recipient must be a valid email address", ErrInvalidParams)
	}
	if p.From != "" && !emailRegex.MatchString(p.From) {
		return fmt.Errorf("%w: sender must be a valid email address", ErrInvalidParams)
	}
	return nil
}

// New returns a Postmark sender when tokens are configured and a DevSender otherwise.
func New(cfg Config) (TemplateSender, error) {
	if cfg.UsePostmark() {
		return NewPostmarkClient(cfg)
	}
	if cfg.SenderEmail == "" || !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	return NewDevSender(cfg.DevOutputDir, cfg.SenderEmail), nil
}
