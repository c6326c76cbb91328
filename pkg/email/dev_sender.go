package email

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// DevSender implements TemplateSender for local development.
// It saves an HTML preview and the JSON request to a directory
// instead of sending them through an email service.
type DevSender struct {
	dir         string
	defaultFrom string
	now         func() time.Time
}

// NewDevSender creates a development email sender that saves emails to disk.
// The directory will be created if it doesn't exist.
func NewDevSender(dir, defaultFrom string) *DevSender {
	return &DevSender{dir: dir, defaultFrom: defaultFrom, now: time.Now}
}

// emailMetadata is the JSON file written next to each preview.
type emailMetadata struct {
	Timestamp string         `json:"timestamp"`
	Template  string         `json:"template"`
	SendTo    string         `json:"send_to"`
	From      string         `json:"from"`
	Tag       string         `json:"tag,omitempty"`
	Model     map[string]any `json:"model,omitempty"`
}

// SendTemplate writes <timestamp>_<template>.html and .json into the configured directory.
func (d *DevSender) SendTemplate(ctx context.Context, params TemplateParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrFailedToSendEmail, err)
	}

	from := params.From
	if from == "" {
		from = d.defaultFrom
	}

	now := d.now()
	baseFilename := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405.000000"), sanitizeFilename(params.Template))

	var html strings.Builder
	if err := preview(params, from).Render(ctx, &html); err != nil {
		return fmt.Errorf("%w: failed to render preview: %v", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, baseFilename+".html"), []byte(html.String()), 0o644); err != nil {
		return fmt.Errorf("%w: failed to write HTML file: %v", ErrFailedToSendEmail, err)
	}

	jsonData, err := json.MarshalIndent(emailMetadata{
		Timestamp: now.Format(time.RFC3339),
		Template:  params.Template,
		SendTo:    params.SendTo,
		From:      from,
		Tag:       params.Tag,
		Model:     params.Model,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal metadata: %v", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, baseFilename+".json"), jsonData, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write JSON file: %v", ErrFailedToSendEmail, err)
	}

	return nil
}

// preview renders a plain listing of the template model; the real layout lives at the provider.
func preview(params TemplateParams, from string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString("<!doctype html><html><head><meta charset=\"utf-8\"><title>")
		sb.WriteString(templ.EscapeString(params.Template))
		sb.WriteString("</title></head><body><dl>")
		writeRow(&sb, "template", params.Template)
		writeRow(&sb, "from", from)
		writeRow(&sb, "to", params.SendTo)

		keys := make([]string, 0, len(params.Model))
		for k := range params.Model {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			writeRow(&sb, k, fmt.Sprint(params.Model[k]))
		}
		sb.WriteString("</dl></body></html>")

		_, err := io.WriteString(w, sb.String())
		return err
	})
}

func writeRow(sb *strings.Builder, key, value string) {
	sb.WriteString("<dt>")
	sb.WriteString(templ.EscapeString(key))
	sb.WriteString("</dt><dd>")
	sb.WriteString(templ.EscapeString(value))
	sb.WriteString("</dd>")
}

// sanitizeRegex matches characters that are not alphanumeric, dash, underscore, or dot
var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename converts a string into a safe, lowercase filename.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
