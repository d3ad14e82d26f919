package handler

import (
	"encoding/json"
	"net/http"

	"github.com/empire-parts-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Bearer       string          `json:"Bearer,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
}

// NotificationsEnvelope wraps notification list responses. The unread count
// rides along so clients can render a badge without a second request.
type NotificationsEnvelope struct {
	Notifications []NotificationView `json:"notifications"`
	UnreadCount   int                `json:"unread_count"`
}

// NotificationView is a notification plus its severity presentation hints.
type NotificationView struct {
	domain.Notification
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func NewNotificationView(n domain.Notification) NotificationView {
	p := n.Type.Presentation()
	return NotificationView{Notification: n, Icon: p.Icon, Color: p.Color}
}

// PaginatedUsersEnvelope wraps cursor-paginated user list responses.
type PaginatedUsersEnvelope struct {
	Data       []domain.User `json:"data"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ProductEnvelope wraps a product plus its resolved image links.
type ProductEnvelope struct {
	domain.Product
	ImageURLs []string `json:"image_urls,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
