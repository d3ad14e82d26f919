package subscription

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/empire-parts-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Put(ctx context.Context, s *domain.PushSubscription) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockRepo) Get(ctx context.Context, subscriptionID string) (*domain.PushSubscription, error) {
	args := m.Called(ctx, subscriptionID)
	sub, _ := args.Get(0).(*domain.PushSubscription)
	return sub, args.Error(1)
}

func (m *mockRepo) GetByEndpoint(ctx context.Context, endpoint string) (*domain.PushSubscription, error) {
	args := m.Called(ctx, endpoint)
	sub, _ := args.Get(0).(*domain.PushSubscription)
	return sub, args.Error(1)
}

func (m *mockRepo) ListByUser(ctx context.Context, userID string) ([]domain.PushSubscription, error) {
	args := m.Called(ctx, userID)
	subs, _ := args.Get(0).([]domain.PushSubscription)
	return subs, args.Error(1)
}

func (m *mockRepo) UpdateOwner(ctx context.Context, subscriptionID, userID, p256dh, auth string) error {
	return m.Called(ctx, subscriptionID, userID, p256dh, auth).Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) ListByRoles(ctx context.Context, roles []string) ([]domain.User, error) {
	args := m.Called(ctx, roles)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}

func registerReq(endpoint string) domain.RegisterSubscriptionRequest {
	req := domain.RegisterSubscriptionRequest{}
	req.Endpoint = endpoint
	req.Keys.P256dh = "p256dh-key"
	req.Keys.Auth = "auth-secret"
	return req
}

// --- tests ---

func TestRegister_NewEndpoint(t *testing.T) {
	repo := &mockRepo{}
	users := &mockUsers{}
	svc := NewService(repo, users)

	repo.On("GetByEndpoint", mock.Anything, "https://push.example/ep1").
		Return(nil, fmt.Errorf("subscription not found: %w", domain.ErrNotFound))
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	sub, err := svc.Register(context.Background(), "user-1", registerReq("https://push.example/ep1"))
	require.NoError(t, err)
	assert.NotEmpty(t, sub.SubscriptionID)
	assert.Equal(t, "user-1", sub.UserID)
	assert.Equal(t, "https://push.example/ep1", sub.Endpoint)
	repo.AssertCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_ExistingEndpointIsIdempotent(t *testing.T) {
	repo := &mockRepo{}
	users := &mockUsers{}
	svc := NewService(repo, users)

	existing := &domain.PushSubscription{
		SubscriptionID: "sub-1",
		UserID:         "old-user",
		Endpoint:       "https://push.example/ep1",
		CreatedAt:      time.Now().UTC(),
	}
	repo.On("GetByEndpoint", mock.Anything, "https://push.example/ep1").Return(existing, nil)
	repo.On("UpdateOwner", mock.Anything, "sub-1", "new-user", "p256dh-key", "auth-secret").Return(nil)

	sub, err := svc.Register(context.Background(), "new-user", registerReq("https://push.example/ep1"))
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.SubscriptionID)
	assert.Equal(t, "new-user", sub.UserID)

	// No second row for the same endpoint.
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// The subscription id is a function of the endpoint, so two racing
// registrations that both miss the endpoint lookup still land on the same
// row key instead of creating duplicates.
func TestRegister_RacingRegistrationsShareRowKey(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &mockUsers{})

	repo.On("GetByEndpoint", mock.Anything, "https://push.example/ep1").
		Return(nil, fmt.Errorf("subscription not found: %w", domain.ErrNotFound))
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	first, err := svc.Register(context.Background(), "user-1", registerReq("https://push.example/ep1"))
	require.NoError(t, err)
	second, err := svc.Register(context.Background(), "user-2", registerReq("https://push.example/ep1"))
	require.NoError(t, err)
	assert.Equal(t, first.SubscriptionID, second.SubscriptionID)
}

func TestRegister_DistinctEndpointsGetDistinctIDs(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &mockUsers{})

	for _, ep := range []string{"https://push.example/ep1", "https://push.example/ep2"} {
		repo.On("GetByEndpoint", mock.Anything, ep).
			Return(nil, fmt.Errorf("subscription not found: %w", domain.ErrNotFound))
	}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	a, err := svc.Register(context.Background(), "user-1", registerReq("https://push.example/ep1"))
	require.NoError(t, err)
	b, err := svc.Register(context.Background(), "user-1", registerReq("https://push.example/ep2"))
	require.NoError(t, err)
	assert.NotEqual(t, a.SubscriptionID, b.SubscriptionID)
}

func TestRegister_InvalidRequest(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &mockUsers{})

	_, err := svc.Register(context.Background(), "user-1", domain.RegisterSubscriptionRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	repo.AssertNotCalled(t, "GetByEndpoint", mock.Anything, mock.Anything)
}

func TestUnregister_AlreadyGoneIsNoop(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &mockUsers{})

	repo.On("Get", mock.Anything, "sub-1").Return(nil, domain.ErrNotFound)

	err := svc.Unregister(context.Background(), "sub-1", "user-1", domain.RoleCustomer)
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUnregister_OtherUsersSubscriptionForbidden(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &mockUsers{})

	repo.On("Get", mock.Anything, "sub-1").
		Return(&domain.PushSubscription{SubscriptionID: "sub-1", UserID: "owner"}, nil)

	err := svc.Unregister(context.Background(), "sub-1", "intruder", domain.RoleCustomer)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUnregister_AdminMayRemoveAny(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, &mockUsers{})

	repo.On("Get", mock.Anything, "sub-1").
		Return(&domain.PushSubscription{SubscriptionID: "sub-1", UserID: "owner"}, nil)
	repo.On("Delete", mock.Anything, "sub-1").Return(nil)

	err := svc.Unregister(context.Background(), "sub-1", "some-admin", domain.RoleAdmin)
	assert.NoError(t, err)
	repo.AssertCalled(t, "Delete", mock.Anything, "sub-1")
}

func TestListByRecipient_BroadcastGathersAllRoleHolders(t *testing.T) {
	repo := &mockRepo{}
	users := &mockUsers{}
	svc := NewService(repo, users)

	users.On("ListByRoles", mock.Anything, []string{domain.RoleAdmin, domain.RoleStaff}).
		Return([]domain.User{{UserID: "a1"}, {UserID: "s1"}}, nil)
	repo.On("ListByUser", mock.Anything, "a1").
		Return([]domain.PushSubscription{{SubscriptionID: "sub-a"}}, nil)
	repo.On("ListByUser", mock.Anything, "s1").
		Return([]domain.PushSubscription{{SubscriptionID: "sub-s1"}, {SubscriptionID: "sub-s2"}}, nil)

	subs, err := svc.ListByRecipient(context.Background(), domain.RecipientAdmin, nil)
	require.NoError(t, err)
	assert.Len(t, subs, 3)
}

func TestListByRecipient_TargetedSkipsDirectory(t *testing.T) {
	repo := &mockRepo{}
	users := &mockUsers{}
	svc := NewService(repo, users)

	uid := "user-1"
	repo.On("ListByUser", mock.Anything, uid).
		Return([]domain.PushSubscription{{SubscriptionID: "sub-1"}}, nil)

	subs, err := svc.ListByRecipient(context.Background(), domain.RecipientCustomer, &uid)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	users.AssertNotCalled(t, "ListByRoles", mock.Anything, mock.Anything)
}
