package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/empire-parts-api/internal/domain"
)

const defaultListLimit = 50

// Service exposes the notification store operations clients drive: listing,
// read-state transitions and the purge of already-read rows. Appending is
// the dispatcher's job, not this service's. Every operation is bounded by
// the caller's recipient scope; rows outside it behave as if they do not
// exist.
type Service interface {
	ListForRecipient(ctx context.Context, recipientType string, limit int, unreadOnly bool, recipientID *string) ([]domain.Notification, error)
	CountUnread(ctx context.Context, recipientType string, recipientID *string) (int, error)
	MarkRead(ctx context.Context, notificationID, recipientType string, recipientID *string) (*domain.Notification, error)
	MarkManyRead(ctx context.Context, notificationIDs []string, recipientType string, recipientID *string) (int, error)
	PurgeRead(ctx context.Context, recipientType string, recipientID *string) (int, error)
}

type notificationStore interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListForRecipient(ctx context.Context, recipientType string, limit int32, unreadOnly bool, recipientID *string) ([]domain.Notification, error)
	CountUnread(ctx context.Context, recipientType string, recipientID *string) (int, error)
	MarkRead(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListReadIDs(ctx context.Context, recipientType string, recipientID *string) ([]string, error)
	DeleteIfRead(ctx context.Context, notificationID string) (bool, error)
}

type service struct {
	repo notificationStore
}

func NewService(repo notificationStore) Service {
	return &service{repo: repo}
}

// visibleTo reports whether a notification falls inside a caller's scope:
// matching recipient type, and either a broadcast row or one targeted at the
// caller. A nil recipientID scope (back office) sees every row of its type.
// Recipient attributes are immutable, so a check against a freshly fetched
// row cannot go stale.
func visibleTo(n *domain.Notification, recipientType string, recipientID *string) bool {
	if n.RecipientType != recipientType {
		return false
	}
	if n.RecipientID == nil || recipientID == nil {
		return true
	}
	return *n.RecipientID == *recipientID
}

func (s *service) ListForRecipient(ctx context.Context, recipientType string, limit int, unreadOnly bool, recipientID *string) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListForRecipient(ctx, recipientType, int32(limit), unreadOnly, recipientID)
}

func (s *service) CountUnread(ctx context.Context, recipientType string, recipientID *string) (int, error) {
	return s.repo.CountUnread(ctx, recipientType, recipientID)
}

// MarkRead is idempotent: the flag only ever moves false -> true, so
// concurrent calls from multiple devices resolve trivially. Rows outside the
// caller's scope are reported as missing, mirroring the row-level visibility
// the store enforces on reads.
func (s *service) MarkRead(ctx context.Context, notificationID, recipientType string, recipientID *string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(n, recipientType, recipientID) {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	return s.repo.MarkRead(ctx, notificationID)
}

// MarkManyRead marks each in-scope id read and returns how many rows were
// touched. Ids that no longer exist or fall outside the caller's scope are
// skipped rather than failing the batch.
func (s *service) MarkManyRead(ctx context.Context, notificationIDs []string, recipientType string, recipientID *string) (int, error) {
	count := 0
	for _, nid := range notificationIDs {
		n, err := s.repo.Get(ctx, nid)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return count, err
		}
		if !visibleTo(n, recipientType, recipientID) {
			continue
		}
		if _, err := s.repo.MarkRead(ctx, nid); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return count, err
		}
		count++
	}
	return count, nil
}

// PurgeRead deletes every row currently marked read inside the caller's
// recipient scope. The read check is re-evaluated per row at delete time, so
// a markRead racing the purge can never lose an unread row.
func (s *service) PurgeRead(ctx context.Context, recipientType string, recipientID *string) (int, error) {
	ids, err := s.repo.ListReadIDs(ctx, recipientType, recipientID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, nid := range ids {
		ok, err := s.repo.DeleteIfRead(ctx, nid)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}
