package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/empire-parts-api/internal/application/notification"
	"github.com/empire-parts-api/internal/domain"
	jwtinfra "github.com/empire-parts-api/internal/infrastructure/jwt"
	"github.com/empire-parts-api/internal/realtime"
	"github.com/empire-parts-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// sseHeartbeat keeps idle stream connections from being reaped by proxies.
const sseHeartbeat = 30 * time.Second

// NotificationHandler handles notification listing, read-state changes,
// purge and the live stream.
type NotificationHandler struct {
	svc notification.Service
	hub *realtime.Hub
}

func NewNotificationHandler(svc notification.Service, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{svc: svc, hub: hub}
}

// recipientScope derives the notification scope from the caller's role:
// back-office roles share the admin feed, customers see broadcasts plus
// rows targeted at them personally.
func recipientScope(claims *jwtinfra.Claims) (recipientType string, recipientID *string) {
	if claims.Role == domain.RoleAdmin || claims.Role == domain.RoleStaff {
		return domain.RecipientAdmin, nil
	}
	uid := claims.UserID
	return domain.RecipientCustomer, &uid
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	recipientType, recipientID := recipientScope(claims)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.svc.ListForRecipient(r.Context(), recipientType, limit, unreadOnly, recipientID)
	if err != nil {
		httpError(w, err)
		return
	}
	unread, err := h.svc.CountUnread(r.Context(), recipientType, recipientID)
	if err != nil {
		httpError(w, err)
		return
	}

	views := make([]NotificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, NewNotificationView(n))
	}
	writeJSON(w, http.StatusOK, NotificationsEnvelope{Notifications: views, UnreadCount: unread})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	recipientType, recipientID := recipientScope(claims)
	unread, err := h.svc.CountUnread(r.Context(), recipientType, recipientID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": unread})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	recipientType, recipientID := recipientScope(claims)
	n, err := h.svc.MarkRead(r.Context(), chi.URLParam(r, "id"), recipientType, recipientID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewNotificationView(*n))
}

func (h *NotificationHandler) MarkManyRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}
	recipientType, recipientID := recipientScope(claims)
	count, err := h.svc.MarkManyRead(r.Context(), req.IDs, recipientType, recipientID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked_read": count})
}

func (h *NotificationHandler) PurgeRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	recipientType, recipientID := recipientScope(claims)
	deleted, err := h.svc.PurgeRead(r.Context(), recipientType, recipientID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// Stream pushes new notifications to the client as server-sent events until
// the connection drops. Only fresh changes flow here; history comes from List.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	recipientType, recipientID := recipientScope(claims)
	userID := ""
	if recipientID != nil {
		userID = *recipientID
	}
	sub := h.hub.Subscribe(recipientType, userID)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case n, open := <-sub.C:
			if !open {
				return
			}
			data, err := json.Marshal(NewNotificationView(n))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
