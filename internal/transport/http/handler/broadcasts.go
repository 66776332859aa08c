package handler

import (
	"encoding/json"
	"net/http"

	"github.com/waveradio/realtime-api/internal/application/broadcast"
)

// BroadcastHandler handles admin station broadcasts.
type BroadcastHandler struct {
	svc broadcast.Service
}

func NewBroadcastHandler(svc broadcast.Service) *BroadcastHandler {
	return &BroadcastHandler{svc: svc}
}

func (h *BroadcastHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req broadcast.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.svc.Send(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, BroadcastEnvelope{Created: len(created)})
}
