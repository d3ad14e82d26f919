package domain

import "time"

// Order statuses. Transitions move forward only; cancelled is terminal and
// reachable from pending or confirmed.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

type OrderItem struct {
	ProductID string  `json:"product_id" dynamodbav:"product_id"`
	Name      string  `json:"name" dynamodbav:"name"`
	Quantity  int     `json:"quantity" dynamodbav:"quantity"`
	UnitPrice float64 `json:"unit_price" dynamodbav:"unit_price"`
	LineTotal float64 `json:"line_total" dynamodbav:"line_total"`
}

type Order struct {
	OrderID      string      `json:"id" dynamodbav:"order_id"`
	UserID       string      `json:"user_id" dynamodbav:"user_id"`
	Items        []OrderItem `json:"items" dynamodbav:"items"`
	Subtotal     float64     `json:"subtotal" dynamodbav:"subtotal"`
	Status       string      `json:"status" dynamodbav:"status"`
	CustomerName string      `json:"customer_name" dynamodbav:"customer_name"`
	Phone        string      `json:"phone" dynamodbav:"phone"`
	Address      string      `json:"address" dynamodbav:"address"`
	CreatedAt    time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time   `json:"updated" dynamodbav:"updated_at"`
}

type PlaceOrderRequest struct {
	Items []struct {
		ProductID string `json:"product_id" validate:"required"`
		Quantity  int    `json:"quantity" validate:"required,gt=0"`
	} `json:"items" validate:"required,min=1,dive"`
	CustomerName string `json:"customer_name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Address      string `json:"address" validate:"required"`
}

// ValidOrderTransition reports whether an order may move from one status to
// another.
func ValidOrderTransition(from, to string) bool {
	switch from {
	case OrderPending:
		return to == OrderConfirmed || to == OrderCancelled
	case OrderConfirmed:
		return to == OrderShipped || to == OrderCancelled
	case OrderShipped:
		return to == OrderDelivered
	default:
		return false
	}
}
