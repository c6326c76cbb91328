package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/email"
)

func TestTemplateParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  email.TemplateParams
		wantErr bool
	}{
		{
			name:   "valid params",
			params: email.TemplateParams{Template: "new_message", SendTo: "user@example.com"},
		},
		{
			name:   "valid params with sender",
			params: email.TemplateParams{Template: "new_message", SendTo: "user@example.com", From: "a@b.com"},
		},
		{
			name:    "empty template",
			params:  email.TemplateParams{SendTo: "user@example.com"},
			wantErr: true,
		},
		{
			name:    "empty recipient",
			params:  email.TemplateParams{Template: "new_message"},
			wantErr: true,
		},
		{
			name:    "invalid recipient",
			params:  email.TemplateParams{Template: "new_message", SendTo: "not-an-email"},
			wantErr: true,
		},
		{
			name:    "invalid sender",
			params:  email.TemplateParams{Template: "new_message", SendTo: "user@example.com", From: "nope"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, email.ErrInvalidParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPostmarkClient(t *testing.T) {
	t.Parallel()

	valid := email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "noreply@example.com",
		SupportEmail:         "support@example.com",
	}

	client, err := email.NewPostmarkClient(valid)
	require.NoError(t, err)
	assert.NotNil(t, client)

	tests := []struct {
		name   string
		mutate func(*email.Config)
		errMsg string
	}{
		{"missing server token", func(c *email.Config) { c.PostmarkServerToken = "" }, "PostmarkServerToken is required"},
		{"missing account token", func(c *email.Config) { c.PostmarkAccountToken = "" }, "PostmarkAccountToken is required"},
		{"invalid sender", func(c *email.Config) { c.SenderEmail = "bad" }, "SenderEmail must be a valid email address"},
		{"missing support", func(c *email.Config) { c.SupportEmail = "" }, "SupportEmail is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)
			client, err := email.NewPostmarkClient(cfg)
			assert.Nil(t, client)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNew_FallsBackToDevSender(t *testing.T) {
	t.Parallel()

	sender, err := email.New(email.Config{SenderEmail: "noreply@example.com", DevOutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, sender)

	_, err = email.New(email.Config{})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
}

func TestDevSender_SendTemplate(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "emails")
	sender := email.NewDevSender(dir, "noreply@example.com")

	err := sender.SendTemplate(context.Background(), email.TemplateParams{
		Template: "new_message",
		SendTo:   "user@example.com",
		Tag:      "new_message",
		Model: map[string]any{
			"description": "<b>a@b.com</b> sent you a message.",
			"link":        "/messages/7",
		},
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var htmlFile, jsonFile string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".html":
			htmlFile = filepath.Join(dir, e.Name())
		case ".json":
			jsonFile = filepath.Join(dir, e.Name())
		}
	}
	require.NotEmpty(t, htmlFile)
	require.NotEmpty(t, jsonFile)
	assert.True(t, strings.HasSuffix(htmlFile, "_new_message.html"))

	html, err := os.ReadFile(htmlFile)
	require.NoError(t, err)
	assert.Contains(t, string(html), "/messages/7")
	assert.Contains(t, string(html), "&lt;b&gt;a@b.com&lt;/b&gt;")

	raw, err := os.ReadFile(jsonFile)
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "new_message", meta["template"])
	assert.Equal(t, "user@example.com", meta["send_to"])
	assert.Equal(t, "noreply@example.com", meta["from"])
}

func TestDevSender_RejectsInvalidParams(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "emails")
	err := email.NewDevSender(dir, "noreply@example.com").SendTemplate(context.Background(), email.TemplateParams{})
	assert.ErrorIs(t, err, email.ErrInvalidParams)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}
