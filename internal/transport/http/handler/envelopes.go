package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/waveradio/realtime-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BroadcastEnvelope wraps station broadcast responses.
type BroadcastEnvelope struct {
	Created int    `json:"created"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors onto HTTP statuses. Storage failures
// stay opaque; the wrapped detail is for logs, not clients.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrFetch), errors.Is(err, domain.ErrSend):
		writeError(w, http.StatusInternalServerError, "storage error")
	case errors.Is(err, domain.ErrChannel):
		writeError(w, http.StatusBadGateway, "push channel unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
