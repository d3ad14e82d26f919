package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/empire-parts-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *mockStore) ListForRecipient(ctx context.Context, recipientType string, limit int32, unreadOnly bool, recipientID *string) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientType, limit, unreadOnly, recipientID)
	ns, _ := args.Get(0).([]domain.Notification)
	return ns, args.Error(1)
}

func (m *mockStore) CountUnread(ctx context.Context, recipientType string, recipientID *string) (int, error) {
	args := m.Called(ctx, recipientType, recipientID)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) MarkRead(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *mockStore) ListReadIDs(ctx context.Context, recipientType string, recipientID *string) ([]string, error) {
	args := m.Called(ctx, recipientType, recipientID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockStore) DeleteIfRead(ctx context.Context, notificationID string) (bool, error) {
	args := m.Called(ctx, notificationID)
	return args.Bool(0), args.Error(1)
}

func notFoundErr(nid string) error {
	return fmt.Errorf("notification %s: %w", nid, domain.ErrNotFound)
}

func broadcastRow(nid, recipientType string) *domain.Notification {
	return &domain.Notification{NotificationID: nid, RecipientType: recipientType}
}

func targetedRow(nid, recipientType, userID string) *domain.Notification {
	return &domain.Notification{NotificationID: nid, RecipientType: recipientType, RecipientID: &userID}
}

func TestListForRecipient_DefaultsLimit(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	store.On("ListForRecipient", mock.Anything, domain.RecipientAdmin, int32(defaultListLimit), false, (*string)(nil)).
		Return([]domain.Notification{}, nil)

	_, err := svc.ListForRecipient(context.Background(), domain.RecipientAdmin, 0, false, nil)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestMarkRead_BroadcastRowVisibleToCustomer(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	uid := "cust-1"
	store.On("Get", mock.Anything, "n1").Return(broadcastRow("n1", domain.RecipientCustomer), nil)
	store.On("MarkRead", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", IsRead: true}, nil)

	n, err := svc.MarkRead(context.Background(), "n1", domain.RecipientCustomer, &uid)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
}

func TestMarkRead_OtherCustomersRowIsInvisible(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	uid := "cust-1"
	store.On("Get", mock.Anything, "n1").Return(targetedRow("n1", domain.RecipientCustomer, "cust-2"), nil)

	_, err := svc.MarkRead(context.Background(), "n1", domain.RecipientCustomer, &uid)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	store.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestMarkRead_AdminFeedInvisibleToCustomer(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	uid := "cust-1"
	store.On("Get", mock.Anything, "n1").Return(broadcastRow("n1", domain.RecipientAdmin), nil)

	_, err := svc.MarkRead(context.Background(), "n1", domain.RecipientCustomer, &uid)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	store.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestMarkManyRead_SkipsMissingRows(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	store.On("Get", mock.Anything, "n1").Return(broadcastRow("n1", domain.RecipientAdmin), nil)
	store.On("Get", mock.Anything, "gone").Return(nil, notFoundErr("gone"))
	store.On("Get", mock.Anything, "n2").Return(broadcastRow("n2", domain.RecipientAdmin), nil)
	store.On("MarkRead", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", IsRead: true}, nil)
	store.On("MarkRead", mock.Anything, "n2").Return(&domain.Notification{NotificationID: "n2", IsRead: true}, nil)

	count, err := svc.MarkManyRead(context.Background(), []string{"n1", "gone", "n2"}, domain.RecipientAdmin, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMarkManyRead_SkipsOutOfScopeRows(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	uid := "cust-1"
	store.On("Get", mock.Anything, "mine").Return(targetedRow("mine", domain.RecipientCustomer, "cust-1"), nil)
	store.On("Get", mock.Anything, "theirs").Return(targetedRow("theirs", domain.RecipientCustomer, "cust-2"), nil)
	store.On("MarkRead", mock.Anything, "mine").Return(&domain.Notification{NotificationID: "mine", IsRead: true}, nil)

	count, err := svc.MarkManyRead(context.Background(), []string{"mine", "theirs"}, domain.RecipientCustomer, &uid)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	store.AssertNotCalled(t, "MarkRead", mock.Anything, "theirs")
}

// Marking an already-read row again is a harmless no-op at the row level;
// the batch still succeeds and both rows end up read.
func TestMarkManyRead_AlreadyReadRowsAreIdempotent(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	store.On("Get", mock.Anything, "seen").Return(broadcastRow("seen", domain.RecipientAdmin), nil)
	store.On("Get", mock.Anything, "fresh").Return(broadcastRow("fresh", domain.RecipientAdmin), nil)
	store.On("MarkRead", mock.Anything, "seen").Return(&domain.Notification{NotificationID: "seen", IsRead: true}, nil)
	store.On("MarkRead", mock.Anything, "fresh").Return(&domain.Notification{NotificationID: "fresh", IsRead: true}, nil)

	count, err := svc.MarkManyRead(context.Background(), []string{"seen", "fresh"}, domain.RecipientAdmin, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMarkManyRead_StopsOnRealError(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	store.On("Get", mock.Anything, "n1").Return(broadcastRow("n1", domain.RecipientAdmin), nil)
	store.On("Get", mock.Anything, "n2").Return(nil, errors.New("throttled"))
	store.On("MarkRead", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1"}, nil)

	count, err := svc.MarkManyRead(context.Background(), []string{"n1", "n2", "n3"}, domain.RecipientAdmin, nil)
	require.Error(t, err)
	assert.Equal(t, 1, count)
	store.AssertNotCalled(t, "Get", mock.Anything, "n3")
}

// A row that flips to unread (or gets marked read concurrently) between the
// listing and the delete is decided by the per-row conditional delete, not
// by the stale listing.
func TestPurgeRead_CountsOnlyRowsActuallyDeleted(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	store.On("ListReadIDs", mock.Anything, domain.RecipientAdmin, (*string)(nil)).Return([]string{"n1", "n2", "n3"}, nil)
	store.On("DeleteIfRead", mock.Anything, "n1").Return(true, nil)
	store.On("DeleteIfRead", mock.Anything, "n2").Return(false, nil)
	store.On("DeleteIfRead", mock.Anything, "n3").Return(true, nil)

	deleted, err := svc.PurgeRead(context.Background(), domain.RecipientAdmin, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
}

// The purge candidate list carries the caller's own scope, so one customer's
// purge can never enumerate (let alone delete) another customer's rows.
func TestPurgeRead_ScopedToCaller(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	uid := "cust-1"
	store.On("ListReadIDs", mock.Anything, domain.RecipientCustomer, &uid).Return([]string{"mine"}, nil)
	store.On("DeleteIfRead", mock.Anything, "mine").Return(true, nil)

	deleted, err := svc.PurgeRead(context.Background(), domain.RecipientCustomer, &uid)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	store.AssertExpectations(t)
}

func TestPurgeRead_NothingRead(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	store.On("ListReadIDs", mock.Anything, domain.RecipientCustomer, (*string)(nil)).Return([]string{}, nil)

	deleted, err := svc.PurgeRead(context.Background(), domain.RecipientCustomer, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	store.AssertNotCalled(t, "DeleteIfRead", mock.Anything, mock.Anything)
}
