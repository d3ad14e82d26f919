package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidOrderTransition(t *testing.T) {
	assert.True(t, ValidOrderTransition(OrderPending, OrderConfirmed))
	assert.True(t, ValidOrderTransition(OrderPending, OrderCancelled))
	assert.True(t, ValidOrderTransition(OrderConfirmed, OrderShipped))
	assert.True(t, ValidOrderTransition(OrderConfirmed, OrderCancelled))
	assert.True(t, ValidOrderTransition(OrderShipped, OrderDelivered))

	// No going backwards, no skipping, no leaving terminal states.
	assert.False(t, ValidOrderTransition(OrderConfirmed, OrderPending))
	assert.False(t, ValidOrderTransition(OrderPending, OrderShipped))
	assert.False(t, ValidOrderTransition(OrderShipped, OrderCancelled))
	assert.False(t, ValidOrderTransition(OrderDelivered, OrderCancelled))
	assert.False(t, ValidOrderTransition(OrderCancelled, OrderPending))
}
