package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		publishErr   error
		mailErr      error
		canEmail     bool
		wantRealtime bool
		wantSent     bool
		wantEmailErr bool
	}{
		{name: "both channels", canEmail: true, wantRealtime: true, wantSent: true},
		{name: "realtime fails, email still sent", publishErr: errBoom, canEmail: true, wantSent: true},
		{name: "email fails, realtime still sent", mailErr: errBoom, canEmail: true, wantRealtime: true, wantEmailErr: true},
		{name: "email not allowed", canEmail: false, wantRealtime: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			storage := NewMemoryStorage()
			trig := newTestTrigger("7")
			trig.canEmail.Store(tt.canEmail)
			reg := registryWith(trig)
			notif := storedNotification(storage, trig)

			pub := new(MockPublisher)
			pub.On("Publish", mock.Anything, mock.Anything).Return(tt.publishErr)
			mailer := new(MockMailer)
			mailer.On("SendNotificationEmail", mock.Anything, mock.Anything).Return(tt.mailErr)

			d := NewDispatcher(
				NewRealtimeAdapter(reg, pub),
				NewEmailAdapter(reg, mailer),
				WithDispatcherLogger(discardLogger()),
			)
			res := d.Dispatch(ctx, notif, map[string]any{"text": "hi"})

			if tt.wantRealtime {
				assert.NoError(t, res.RealtimeErr)
			} else {
				assert.ErrorIs(t, res.RealtimeErr, ErrRealtimeDispatchFailed)
			}
			assert.Equal(t, tt.wantSent, res.EmailSent)
			if tt.wantEmailErr {
				assert.ErrorIs(t, res.EmailErr, ErrEmailDispatchFailed)
			} else {
				assert.NoError(t, res.EmailErr)
			}
			assert.Equal(t, tt.wantRealtime && !tt.wantEmailErr, res.OK())

			pub.AssertNumberOfCalls(t, "Publish", 1)

			// Dispatch outcomes never alter the stored notification.
			stored, err := storage.Get(ctx, notif.ID)
			require.NoError(t, err)
			assert.True(t, stored.Unread)
		})
	}
}

func TestDispatcher_DisabledChannels(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, nil, WithDispatcherLogger(discardLogger()))
	res := d.Dispatch(context.Background(), &Notification{ID: "n1"}, nil)
	assert.True(t, res.OK())
	assert.False(t, res.EmailSent)
}
