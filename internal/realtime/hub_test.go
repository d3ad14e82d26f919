package realtime

import (
	"testing"

	"github.com/empire-parts-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func broadcast(recipientType string) domain.Notification {
	return domain.Notification{NotificationID: "n-1", RecipientType: recipientType}
}

func targeted(recipientType, userID string) domain.Notification {
	return domain.Notification{NotificationID: "n-2", RecipientType: recipientType, RecipientID: &userID}
}

func TestPublish_BroadcastReachesAllOfType(t *testing.T) {
	h := NewHub()
	admin1 := h.Subscribe(domain.RecipientAdmin, "a1")
	admin2 := h.Subscribe(domain.RecipientAdmin, "a2")
	customer := h.Subscribe(domain.RecipientCustomer, "c1")
	defer admin1.Close()
	defer admin2.Close()
	defer customer.Close()

	h.Publish(broadcast(domain.RecipientAdmin))

	assert.Len(t, admin1.C, 1)
	assert.Len(t, admin2.C, 1)
	assert.Len(t, customer.C, 0)
}

func TestPublish_TargetedReachesOnlyThatUser(t *testing.T) {
	h := NewHub()
	mine := h.Subscribe(domain.RecipientCustomer, "c1")
	other := h.Subscribe(domain.RecipientCustomer, "c2")
	defer mine.Close()
	defer other.Close()

	h.Publish(targeted(domain.RecipientCustomer, "c1"))

	require.Len(t, mine.C, 1)
	got := <-mine.C
	assert.Equal(t, "n-2", got.NotificationID)
	assert.Len(t, other.C, 0)
}

func TestPublish_FullBufferDropsWithoutBlocking(t *testing.T) {
	h := NewHub()
	s := h.Subscribe(domain.RecipientAdmin, "a1")
	defer s.Close()

	// One more than the buffer: Publish must return, not block.
	for i := 0; i <= subscriptionBuffer; i++ {
		h.Publish(broadcast(domain.RecipientAdmin))
	}
	assert.Len(t, s.C, subscriptionBuffer)
}

func TestClose_ReleasesSubscription(t *testing.T) {
	h := NewHub()
	s := h.Subscribe(domain.RecipientAdmin, "a1")
	assert.Equal(t, 1, h.Len())

	s.Close()
	assert.Equal(t, 0, h.Len())

	_, open := <-s.C
	assert.False(t, open)

	// Publishing after close must not panic.
	h.Publish(broadcast(domain.RecipientAdmin))
}

func TestClose_Idempotent(t *testing.T) {
	h := NewHub()
	s := h.Subscribe(domain.RecipientCustomer, "c1")
	s.Close()
	assert.NotPanics(t, func() { s.Close() })
}
