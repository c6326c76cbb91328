package push

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRelayed(t *testing.T) {
	t.Parallel()

	const prefix = "notifykit:realtime:"

	tests := []struct {
		name        string
		channel     string
		payload     string
		wantChannel string
		wantErr     bool
	}{
		{
			name:        "realtime message",
			channel:     prefix + "presence-message-7",
			payload:     `{"channel":"presence-message-7","event":"new-message-7","data":{"isChat":true}}`,
			wantChannel: "presence-message-7",
		},
		{
			name:        "channel taken from redis channel",
			channel:     prefix + "presence-message-8",
			payload:     `{"event":"new-message-8"}`,
			wantChannel: "presence-message-8",
		},
		{
			name:    "trigger event",
			channel: prefix + "triggers",
			payload: `{"type":"message","id":"7","recipient_id":"u1","data":{"secret":"x"}}`,
			wantErr: true,
		},
		{name: "malformed", channel: prefix + "x", payload: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, err := decodeRelayed(prefix, &redis.Message{Channel: tt.channel, Payload: tt.payload})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotRealtimeMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantChannel, msg.Channel)
			assert.NotEmpty(t, msg.Event)
		})
	}
}
