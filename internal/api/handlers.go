package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// notificationView is a notification with its presentation resolved.
type notificationView struct {
	notifications.Notification
	Link        string `json:"link"`
	Description string `json:"description"`
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recipientID := chi.URLParam(r, "recipientID")

	opts, err := parseListOptions(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	list, err := s.engine.List(ctx, recipientID, opts)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "Failed to list notifications",
			logger.RecipientID(recipientID),
			logger.Error(err),
		)
		writeErr(w, err)
		return
	}

	views := make([]notificationView, 0, len(list))
	for i := range list {
		views = append(views, s.view(ctx, &list[i]))
	}

	writeJSON(w, http.StatusOK, Response{
		Data: views,
		Meta: map[string]any{"limit": opts.Limit, "offset": opts.Offset, "count": len(views)},
	})
}

// view resolves link and description. A failed resolution leaves the
// field empty; the next request retries it.
func (s *Server) view(ctx context.Context, notif *notifications.Notification) notificationView {
	resolver := s.engine.Resolver()
	link, _ := resolver.ResolveLink(ctx, notif)
	description, _ := resolver.ResolveDescription(ctx, notif)
	return notificationView{
		Notification: *notif,
		Link:         link,
		Description:  description,
	}
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.engine.ReadState().CountUnread(r.Context(), chi.URLParam(r, "recipientID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, map[string]int{"count": count})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ReadState().MarkRead(r.Context(), chi.URLParam(r, "notificationID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// markAllRead marks every unread notification of the recipient as read, or
// only those of one trigger when trigger_type and trigger_id are given.
func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recipientID := chi.URLParam(r, "recipientID")
	q := r.URL.Query()
	triggerType, triggerID := q.Get("trigger_type"), q.Get("trigger_id")

	var (
		updated int64
		err     error
	)
	switch {
	case triggerType == "" && triggerID == "":
		updated, err = s.engine.ReadState().MarkAllRead(ctx, recipientID)
	case triggerType != "" && triggerID != "":
		ref := notifications.TriggerRef{Type: triggerType, ID: triggerID}
		updated, err = s.engine.ReadState().MarkReadForTrigger(ctx, recipientID, ref)
	default:
		err = fmt.Errorf("%w: trigger_type and trigger_id go together", errBadRequest)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, map[string]int64{"updated": updated})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "Health check failed",
				slog.String("check", name),
				logger.Error(err),
			)
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, Response{Data: results})
}

func parseListOptions(r *http.Request) (notifications.ListOptions, error) {
	q := r.URL.Query()
	opts := notifications.ListOptions{
		Limit:       50,
		TriggerType: q.Get("type"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: invalid limit %q", errBadRequest, v)
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: invalid offset %q", errBadRequest, v)
		}
		opts.Offset = n
	}
	if v := q.Get("unread"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%w: invalid unread %q", errBadRequest, v)
		}
		opts.OnlyUnread = b
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, fmt.Errorf("%w: since must be RFC 3339", errBadRequest)
		}
		opts.Since = &t
	}
	return opts, nil
}
