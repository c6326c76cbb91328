package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

type postmarkClient struct {
	client *postmark.Client
	config Config
}

// NewPostmarkClient creates a Postmark-backed template sender.
// Templates are addressed by alias, so each trigger type's template name must
// exist as a Postmark template alias.
func NewPostmarkClient(cfg Config) (TemplateSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if cfg.SupportEmail == "" {
		return nil, fmt.Errorf("%w: SupportEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}

	return &postmarkClient{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

// SendTemplate implements TemplateSender using Postmark's template API.
// Reply-To is the support address so that replies reach a person.
func (c *postmarkClient) SendTemplate(ctx context.Context, params TemplateParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	from := params.From
	if from == "" {
		from = c.config.SenderEmail
	}

	resp, err := c.client.SendTemplatedEmail(ctx, postmark.TemplatedEmail{
		TemplateAlias: params.Template,
		TemplateModel: params.Model,
		From:          from,
		ReplyTo:       c.config.SupportEmail,
		To:            params.SendTo,
		Tag:           params.Tag,
		TrackOpens:    true,
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
