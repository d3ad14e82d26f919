package handler

import (
	"encoding/json"
	"net/http"

	"github.com/empire-parts-api/internal/application/push"
	"github.com/empire-parts-api/internal/application/subscription"
	"github.com/empire-parts-api/internal/domain"
	"github.com/empire-parts-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// PushHandler handles notification dispatch and subscription management.
type PushHandler struct {
	dispatcher push.Dispatcher
	subs       subscription.Service
}

func NewPushHandler(dispatcher push.Dispatcher, subs subscription.Service) *PushHandler {
	return &PushHandler{dispatcher: dispatcher, subs: subs}
}

// Send persists a notification and fans it out. The response reports the
// delivery breakdown; delivery failures do not fail the request.
func (h *PushHandler) Send(w http.ResponseWriter, r *http.Request) {
	var ev push.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.dispatcher.Dispatch(r.Context(), ev)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PushHandler) RegisterSubscription(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RegisterSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := h.subs.Register(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *PushHandler) UnregisterSubscription(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.subs.Unregister(r.Context(), chi.URLParam(r, "id"), claims.UserID, claims.Role); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "subscription removed"})
}
