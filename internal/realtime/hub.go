package realtime

import (
	"sync"

	"github.com/empire-parts-api/internal/domain"
)

// subscriptionBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind loses events; the hub is a hint channel, not the
// source of truth, and clients refetch from the store on reconnect.
const subscriptionBuffer = 16

// Hub fans notification rows out to connected foreground clients. It is
// constructed once per process and injected; there is no package-level
// instance.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscription is an explicit handle on the hub. Callers must Close it when
// the client disconnects; Close is idempotent and safe to defer alongside an
// explicit call.
type Subscription struct {
	C <-chan domain.Notification

	hub           *Hub
	ch            chan domain.Notification
	recipientType string
	userID        string
	once          sync.Once
}

// Subscribe registers a listener for one recipient type. userID scopes
// targeted notifications; broadcast rows reach every listener of the type.
func (h *Hub) Subscribe(recipientType, userID string) *Subscription {
	s := &Subscription{
		hub:           h,
		ch:            make(chan domain.Notification, subscriptionBuffer),
		recipientType: recipientType,
		userID:        userID,
	}
	s.C = s.ch
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Close releases the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

// Publish delivers n to every matching subscriber without blocking. A full
// subscriber buffer drops the event for that subscriber only.
func (h *Hub) Publish(n domain.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.recipientType != n.RecipientType {
			continue
		}
		if n.RecipientID != nil && *n.RecipientID != s.userID {
			continue
		}
		select {
		case s.ch <- n:
		default:
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
