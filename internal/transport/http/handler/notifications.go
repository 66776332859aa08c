package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/waveradio/realtime-api/internal/application/feed"
	"github.com/waveradio/realtime-api/internal/domain"
	"github.com/waveradio/realtime-api/internal/transport/http/middleware"
)

// NotificationRepository is the interface the handler requires from the notification store.
type NotificationRepository interface {
	ListRecent(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error)
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, recipientID string, limit int) error
}

// NotificationHandler serves the recent notification window over plain HTTP,
// for clients that poll instead of holding a socket.
type NotificationHandler struct {
	repo   NotificationRepository
	dec    *feed.Decorator
	window int
}

func NewNotificationHandler(repo NotificationRepository, dec *feed.Decorator, window int) *NotificationHandler {
	if window <= 0 {
		window = feed.DefaultWindow
	}
	return &NotificationHandler{repo: repo, dec: dec, window: window}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	notifications, err := h.repo.ListRecent(r.Context(), claims.UserID, h.window)
	if err != nil {
		httpError(w, err)
		return
	}
	for i := range notifications {
		h.dec.Decorate(r.Context(), &notifications[i])
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	n, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpError(w, err)
		return
	}
	if n.RecipientID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := h.repo.MarkRead(r.Context(), id); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.repo.MarkAllRead(r.Context(), claims.UserID, h.window); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "all notifications marked as read"})
}
