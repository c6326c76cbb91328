// Package email sends template-based transactional emails.
//
// Senders implement TemplateSender: the provider renders the template named in
// TemplateParams.Template with TemplateParams.Model. Two implementations exist:
//   - the Postmark client, addressing templates by alias
//   - DevSender, which writes an HTML preview and a JSON record to disk
//
// New picks Postmark when both tokens are configured and DevSender otherwise:
//
//	var cfg email.Config
//	// load cfg with caarlos0/env
//	sender, err := email.New(cfg)
//	if err != nil {
//	    return err
//	}
//	err = sender.SendTemplate(ctx, email.TemplateParams{
//	    Template: "new_message",
//	    SendTo:   "user@example.com",
//	    Model:    map[string]any{"link": "/messages/7"},
//	})
//
// Errors are sentinel values (ErrInvalidConfig, ErrInvalidParams,
// ErrFailedToSendEmail) joined with the underlying cause.
package email
