package subscription

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/empire-parts-api/internal/domain"
	"github.com/empire-parts-api/internal/pkg/validate"
)

// Service is the push subscription registry: one row per (user, device)
// endpoint.
type Service interface {
	// Register is idempotent by endpoint: re-registering the same endpoint
	// updates the existing row instead of creating a duplicate.
	Register(ctx context.Context, userID string, req domain.RegisterSubscriptionRequest) (*domain.PushSubscription, error)
	// Unregister removes the caller's own subscription. Admins may remove any.
	Unregister(ctx context.Context, subscriptionID, requesterID, requesterRole string) error
	// ListByRecipient resolves the fan-out candidate set for a recipient
	// type. A nil userID means every user holding a matching role.
	ListByRecipient(ctx context.Context, recipientType string, userID *string) ([]domain.PushSubscription, error)
	// Prune deletes a subscription whose endpoint the delivery channel
	// reported permanently gone. Safe to call concurrently and on ids that
	// are already gone.
	Prune(ctx context.Context, subscriptionID string) error
}

type subscriptionStore interface {
	Put(ctx context.Context, s *domain.PushSubscription) error
	Get(ctx context.Context, subscriptionID string) (*domain.PushSubscription, error)
	GetByEndpoint(ctx context.Context, endpoint string) (*domain.PushSubscription, error)
	ListByUser(ctx context.Context, userID string) ([]domain.PushSubscription, error)
	UpdateOwner(ctx context.Context, subscriptionID, userID, p256dh, auth string) error
	Delete(ctx context.Context, subscriptionID string) error
}

type userDirectory interface {
	ListByRoles(ctx context.Context, roles []string) ([]domain.User, error)
}

type service struct {
	repo  subscriptionStore
	users userDirectory
}

func NewService(repo subscriptionStore, users userDirectory) Service {
	return &service{repo: repo, users: users}
}

// endpointID derives the subscription id from the endpoint itself. Two
// concurrent registrations of the same endpoint therefore write the same
// row instead of racing get-then-put into duplicates; the table key enforces
// the one-row-per-endpoint invariant that a read-then-write cannot.
func endpointID(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:16])
}

func (s *service) Register(ctx context.Context, userID string, req domain.RegisterSubscriptionRequest) (*domain.PushSubscription, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	existing, err := s.repo.GetByEndpoint(ctx, req.Endpoint)
	switch {
	case err == nil:
		// Same endpoint, possibly a new owner or rotated keys.
		if err := s.repo.UpdateOwner(ctx, existing.SubscriptionID, userID, req.Keys.P256dh, req.Keys.Auth); err != nil {
			return nil, err
		}
		existing.UserID = userID
		existing.P256dh = req.Keys.P256dh
		existing.Auth = req.Keys.Auth
		return existing, nil
	case errors.Is(err, domain.ErrNotFound):
		sub := &domain.PushSubscription{
			SubscriptionID: endpointID(req.Endpoint),
			UserID:         userID,
			Endpoint:       req.Endpoint,
			P256dh:         req.Keys.P256dh,
			Auth:           req.Keys.Auth,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.repo.Put(ctx, sub); err != nil {
			return nil, err
		}
		return sub, nil
	default:
		return nil, err
	}
}

func (s *service) Unregister(ctx context.Context, subscriptionID, requesterID, requesterRole string) error {
	sub, err := s.repo.Get(ctx, subscriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		// Already gone; unsubscribing twice is not an error.
		return nil
	}
	if err != nil {
		return err
	}
	if sub.UserID != requesterID && requesterRole != domain.RoleAdmin {
		return fmt.Errorf("subscription belongs to another user: %w", domain.ErrForbidden)
	}
	return s.repo.Delete(ctx, subscriptionID)
}

func (s *service) ListByRecipient(ctx context.Context, recipientType string, userID *string) ([]domain.PushSubscription, error) {
	if userID != nil {
		return s.repo.ListByUser(ctx, *userID)
	}
	users, err := s.users.ListByRoles(ctx, domain.RolesForRecipient(recipientType))
	if err != nil {
		return nil, err
	}
	var subs []domain.PushSubscription
	for _, u := range users {
		userSubs, err := s.repo.ListByUser(ctx, u.UserID)
		if err != nil {
			return nil, err
		}
		subs = append(subs, userSubs...)
	}
	return subs, nil
}

// Prune is only ever driven by a permanent delivery failure. Transient
// failures must not reach this path: deleting on a timeout would silently
// disable notifications for a live device.
func (s *service) Prune(ctx context.Context, subscriptionID string) error {
	return s.repo.Delete(ctx, subscriptionID)
}
