package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// stream relays hub messages for one channel as server-sent events.
// Each event is named after the message event and carries the realtime payload.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming is not supported")
		return
	}

	ctx := r.Context()
	channel := chi.URLParam(r, "channel")
	sub := s.hub.Subscribe(ctx, channel)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Receive():
			if !ok {
				return
			}
			if err := writeEvent(w, msg); err != nil {
				s.logger.LogAttrs(ctx, slog.LevelDebug, "Realtime stream closed",
					logger.Channel(channel),
					logger.Error(err),
				)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, msg notifications.Message) error {
	body, err := json.Marshal(map[string]any{
		notifications.PayloadNotification: msg.Notification,
		notifications.PayloadTrigger:      msg.Trigger,
		notifications.PayloadData:         msg.Data,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, body)
	return err
}
