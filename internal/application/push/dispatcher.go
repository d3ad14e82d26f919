package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/empire-parts-api/internal/domain"
	"github.com/empire-parts-api/internal/pkg/id"
	"github.com/empire-parts-api/internal/pkg/validate"
	"github.com/hashicorp/go-multierror"
)

// Event describes one domain event to notify about.
type Event struct {
	Title         string                  `json:"title" validate:"required"`
	Message       string                  `json:"message" validate:"required"`
	Type          domain.NotificationType `json:"type" validate:"omitempty,oneof=info success warning error"`
	Category      string                  `json:"category"`
	Link          string                  `json:"url"`
	RecipientType string                  `json:"user_type" validate:"required,oneof=admin customer"`
	RecipientID   *string                 `json:"recipient_id"`
}

// Result aggregates the per-endpoint outcomes of one dispatch. It is
// informational only: nothing retries based on it.
type Result struct {
	NotificationID string `json:"notification_id"`
	Total          int    `json:"total"`
	Delivered      int    `json:"success"`
	Pruned         int    `json:"permanent_failures"`
	Recoverable    int    `json:"recoverable_failures"`

	// Errors collects the recoverable delivery errors for logging and tests.
	Errors error `json:"-"`
}

// Payload is the wire shape handed to the delivery channel and parsed by the
// device-side receiver.
type Payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category,omitempty"`
	URL      string `json:"url,omitempty"`
	Tag      string `json:"tag"`
	Renotify bool   `json:"renotify,omitempty"`
}

type notificationStore interface {
	Append(ctx context.Context, n *domain.Notification) error
}

type registry interface {
	ListByRecipient(ctx context.Context, recipientType string, userID *string) ([]domain.PushSubscription, error)
	Prune(ctx context.Context, subscriptionID string) error
}

// Channel is the push delivery boundary. nil means delivered;
// domain.ErrEndpointGone means the endpoint is permanently dead; any other
// error is a transient condition worth nothing more than a log line.
type Channel interface {
	Deliver(ctx context.Context, sub domain.PushSubscription, payload []byte) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) (*Result, error)
}

type dispatcher struct {
	store          notificationStore
	registry       registry
	channel        Channel
	attemptTimeout time.Duration
}

type DispatcherDeps struct {
	Store          notificationStore
	Registry       registry
	Channel        Channel
	AttemptTimeout time.Duration
}

func NewDispatcher(deps DispatcherDeps) Dispatcher {
	timeout := deps.AttemptTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &dispatcher{
		store:          deps.Store,
		registry:       deps.Registry,
		channel:        deps.Channel,
		attemptTimeout: timeout,
	}
}

// Dispatch persists the notification, then fans it out to every matching
// subscription. The append is the only fatal step: once the row exists, any
// combination of delivery failures still yields a Result, never an error.
// Delivery is at-most-once per subscription; recoverable failures are not
// retried here.
func (d *dispatcher) Dispatch(ctx context.Context, ev Event) (*Result, error) {
	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if ev.Type == "" {
		ev.Type = domain.TypeInfo
	}

	now := time.Now().UTC()
	nid := id.New()
	n := &domain.Notification{
		NotificationID: nid,
		Title:          ev.Title,
		Message:        ev.Message,
		Type:           ev.Type,
		Category:       ev.Category,
		Link:           ev.Link,
		RecipientType:  ev.RecipientType,
		RecipientID:    ev.RecipientID,
		IsRead:         false,
		CreatedAt:      now,
		CreatedSort:    domain.CreatedSortKey(now, nid),
	}
	// Durability first. Even with zero working endpoints the row must exist
	// so polling and realtime clients can discover the event later.
	if err := d.store.Append(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	subs, err := d.registry.ListByRecipient(ctx, ev.RecipientType, ev.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("resolve subscriptions: %w", err)
	}

	result := &Result{NotificationID: nid, Total: len(subs)}
	if len(subs) == 0 {
		return result, nil
	}

	// Startup may have fallen back to no delivery channel. Every attempt
	// then counts as recoverable: the row is durable and the realtime
	// bridge still runs, so nothing is lost for good.
	if d.channel == nil {
		result.Recoverable = len(subs)
		result.Errors = multierror.Append(result.Errors, errors.New("push channel unavailable"))
		slog.Warn("push channel unavailable, skipping delivery",
			"notification_id", nid, "subscriptions", len(subs))
		return result, nil
	}

	payload, err := json.Marshal(Payload{
		Title:    ev.Title,
		Body:     ev.Message,
		Category: ev.Category,
		URL:      ev.Link,
		// The notification id doubles as the dedup tag: a re-delivered
		// payload replaces the prior alert instead of stacking.
		Tag: nid,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range subs {
		sub := subs[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := d.attempt(ctx, sub, payload)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome == nil:
				result.Delivered++
			case errors.Is(outcome, domain.ErrEndpointGone):
				result.Pruned++
			default:
				result.Recoverable++
				result.Errors = multierror.Append(result.Errors, fmt.Errorf("subscription %s: %w", sub.SubscriptionID, outcome))
			}
		}()
	}
	wg.Wait()

	if result.Errors != nil {
		slog.Warn("push dispatch completed with recoverable failures",
			"notification_id", nid,
			"recoverable", result.Recoverable,
			"err", result.Errors)
	}
	return result, nil
}

// attempt delivers to one subscription with its own timeout. A timeout is a
// recoverable failure by definition; only an explicit gone signal from the
// channel prunes, and the prune is scoped to this subscription alone so
// concurrent attempts never interfere.
func (d *dispatcher) attempt(ctx context.Context, sub domain.PushSubscription, payload []byte) error {
	attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	err := d.channel.Deliver(attemptCtx, sub, payload)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEndpointGone) {
		if pruneErr := d.registry.Prune(ctx, sub.SubscriptionID); pruneErr != nil {
			slog.Warn("failed to prune dead subscription",
				"subscription_id", sub.SubscriptionID, "err", pruneErr)
		}
		return err
	}
	return err
}
