package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/empire-parts-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Append(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

type mockRegistry struct{ mock.Mock }

func (m *mockRegistry) ListByRecipient(ctx context.Context, recipientType string, userID *string) ([]domain.PushSubscription, error) {
	args := m.Called(ctx, recipientType, userID)
	subs, _ := args.Get(0).([]domain.PushSubscription)
	return subs, args.Error(1)
}

func (m *mockRegistry) Prune(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

type mockChannel struct{ mock.Mock }

func (m *mockChannel) Deliver(ctx context.Context, sub domain.PushSubscription, payload []byte) error {
	return m.Called(ctx, sub, payload).Error(0)
}

// --- helpers ---

func subs(ids ...string) []domain.PushSubscription {
	out := make([]domain.PushSubscription, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.PushSubscription{SubscriptionID: id, Endpoint: "arn:" + id})
	}
	return out
}

func newTestDispatcher(store *mockStore, reg *mockRegistry, ch *mockChannel) Dispatcher {
	return NewDispatcher(DispatcherDeps{
		Store:          store,
		Registry:       reg,
		Channel:        ch,
		AttemptTimeout: time.Second,
	})
}

func adminEvent() Event {
	return Event{
		Title:         "New Order",
		Message:       "Someone placed an order",
		Category:      "order",
		RecipientType: domain.RecipientAdmin,
	}
}

// --- tests ---

func TestDispatch_ZeroSubscriptions_StillPersists(t *testing.T) {
	store := &mockStore{}
	reg := &mockRegistry{}
	ch := &mockChannel{}

	store.On("Append", mock.Anything, mock.Anything).Return(nil)
	reg.On("ListByRecipient", mock.Anything, domain.RecipientAdmin, (*string)(nil)).Return([]domain.PushSubscription{}, nil)

	res, err := newTestDispatcher(store, reg, ch).Dispatch(context.Background(), adminEvent())
	require.NoError(t, err)
	assert.NotEmpty(t, res.NotificationID)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 0, res.Delivered)

	store.AssertExpectations(t)
	ch.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_MixedOutcomes(t *testing.T) {
	store := &mockStore{}
	reg := &mockRegistry{}
	ch := &mockChannel{}

	store.On("Append", mock.Anything, mock.Anything).Return(nil)
	reg.On("ListByRecipient", mock.Anything, domain.RecipientAdmin, (*string)(nil)).Return(subs("ok", "gone", "flaky"), nil)
	reg.On("Prune", mock.Anything, "gone").Return(nil)

	ch.On("Deliver", mock.Anything, mock.MatchedBy(func(s domain.PushSubscription) bool { return s.SubscriptionID == "ok" }), mock.Anything).Return(nil)
	ch.On("Deliver", mock.Anything, mock.MatchedBy(func(s domain.PushSubscription) bool { return s.SubscriptionID == "gone" }), mock.Anything).
		Return(domain.ErrEndpointGone)
	ch.On("Deliver", mock.Anything, mock.MatchedBy(func(s domain.PushSubscription) bool { return s.SubscriptionID == "flaky" }), mock.Anything).
		Return(errors.New("push service 5xx"))

	res, err := newTestDispatcher(store, reg, ch).Dispatch(context.Background(), adminEvent())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, res.Pruned)
	assert.Equal(t, 1, res.Recoverable)
	assert.Error(t, res.Errors)

	// Only the permanently dead endpoint gets pruned.
	reg.AssertCalled(t, "Prune", mock.Anything, "gone")
	reg.AssertNumberOfCalls(t, "Prune", 1)
}

func TestDispatch_RecoverableFailureDoesNotPrune(t *testing.T) {
	store := &mockStore{}
	reg := &mockRegistry{}
	ch := &mockChannel{}

	store.On("Append", mock.Anything, mock.Anything).Return(nil)
	reg.On("ListByRecipient", mock.Anything, domain.RecipientAdmin, (*string)(nil)).Return(subs("flaky"), nil)
	ch.On("Deliver", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("timeout"))

	res, err := newTestDispatcher(store, reg, ch).Dispatch(context.Background(), adminEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recoverable)
	reg.AssertNotCalled(t, "Prune", mock.Anything, mock.Anything)
}

func TestDispatch_PersistFailureAborts(t *testing.T) {
	store := &mockStore{}
	reg := &mockRegistry{}
	ch := &mockChannel{}

	store.On("Append", mock.Anything, mock.Anything).Return(errors.New("table unavailable"))

	res, err := newTestDispatcher(store, reg, ch).Dispatch(context.Background(), adminEvent())
	require.Error(t, err)
	assert.Nil(t, res)

	// No delivery may happen for an event that was never persisted.
	reg.AssertNotCalled(t, "ListByRecipient", mock.Anything, mock.Anything, mock.Anything)
	ch.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_ValidationRejectsBeforePersist(t *testing.T) {
	store := &mockStore{}
	reg := &mockRegistry{}
	ch := &mockChannel{}

	_, err := newTestDispatcher(store, reg, ch).Dispatch(context.Background(), Event{
		Title:         "missing recipient type",
		Message:       "x",
		RecipientType: "everyone",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestDispatch_DefaultsTypeToInfo(t *testing.T) {
	store := &mockStore{}
	reg := &mockRegistry{}
	ch := &mockChannel{}

	var captured *domain.Notification
	store.On("Append", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(*domain.Notification)
	}).Return(nil)
	reg.On("ListByRecipient", mock.Anything, domain.RecipientAdmin, (*string)(nil)).Return([]domain.PushSubscription{}, nil)

	_, err := newTestDispatcher(store, reg, ch).Dispatch(context.Background(), adminEvent())
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, domain.TypeInfo, captured.Type)
	assert.False(t, captured.IsRead)
	assert.NotEmpty(t, captured.CreatedSort)
}

func TestDispatch_TargetedEventResolvesSubscriptionsForUser(t *testing.T) {
	store := &mockStore{}
	reg := &mockRegistry{}
	ch := &mockChannel{}

	uid := "user-1"
	store.On("Append", mock.Anything, mock.Anything).Return(nil)
	reg.On("ListByRecipient", mock.Anything, domain.RecipientCustomer, &uid).Return(subs("a"), nil)
	ch.On("Deliver", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ev := Event{
		Title:         "Order shipped",
		Message:       "Your order is on the way",
		RecipientType: domain.RecipientCustomer,
		RecipientID:   &uid,
	}
	res, err := newTestDispatcher(store, reg, ch).Dispatch(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)
	reg.AssertExpectations(t)
}

func TestDispatch_PruneFailureDoesNotChangeOutcome(t *testing.T) {
	store := &mockStore{}
	reg := &mockRegistry{}
	ch := &mockChannel{}

	store.On("Append", mock.Anything, mock.Anything).Return(nil)
	reg.On("ListByRecipient", mock.Anything, domain.RecipientAdmin, (*string)(nil)).Return(subs("gone"), nil)
	reg.On("Prune", mock.Anything, "gone").Return(errors.New("conditional check failed"))
	ch.On("Deliver", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrEndpointGone)

	res, err := newTestDispatcher(store, reg, ch).Dispatch(context.Background(), adminEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pruned)
	assert.Equal(t, 0, res.Recoverable)
}

// Startup may leave the dispatcher without a delivery channel. Dispatch still
// persists and returns, counting every candidate as a recoverable failure.
func TestDispatch_MissingChannelDegradesToRecoverable(t *testing.T) {
	store := &mockStore{}
	reg := &mockRegistry{}
	d := NewDispatcher(DispatcherDeps{Store: store, Registry: reg})

	store.On("Append", mock.Anything, mock.Anything).Return(nil)
	reg.On("ListByRecipient", mock.Anything, domain.RecipientAdmin, (*string)(nil)).Return(subs("s1", "s2"), nil)

	res, err := d.Dispatch(context.Background(), adminEvent())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Recoverable)
	assert.Equal(t, 0, res.Delivered)
	assert.Error(t, res.Errors)
	store.AssertExpectations(t)
	reg.AssertNotCalled(t, "Prune", mock.Anything, mock.Anything)
}
