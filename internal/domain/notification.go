package domain

import (
	"fmt"
	"time"
)

// Recipient types scope both notification visibility and push fan-out.
const (
	RecipientAdmin    = "admin"
	RecipientCustomer = "customer"
)

// RolesForRecipient maps a recipient type to the user roles it covers.
// Admin notifications go to everyone working the back office.
func RolesForRecipient(recipientType string) []string {
	if recipientType == RecipientAdmin {
		return []string{RoleAdmin, RoleStaff}
	}
	return []string{RoleCustomer}
}

// NotificationType is the closed set of notification severities.
type NotificationType string

const (
	TypeInfo    NotificationType = "info"
	TypeSuccess NotificationType = "success"
	TypeWarning NotificationType = "warning"
	TypeError   NotificationType = "error"
)

// Presentation is display metadata for a notification severity.
type Presentation struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var presentations = map[NotificationType]Presentation{
	TypeInfo:    {Icon: "bell", Color: "blue"},
	TypeSuccess: {Icon: "check-circle", Color: "green"},
	TypeWarning: {Icon: "alert-triangle", Color: "amber"},
	TypeError:   {Icon: "x-circle", Color: "red"},
}

// Presentation returns the display metadata for the severity. Unknown
// severities fall back to the info presentation so clients never render
// a blank alert.
func (t NotificationType) Presentation() Presentation {
	if p, ok := presentations[t]; ok {
		return p
	}
	return presentations[TypeInfo]
}

// Valid reports whether t is one of the four known severities.
func (t NotificationType) Valid() bool {
	_, ok := presentations[t]
	return ok
}

// Notification is one logical event directed at a recipient class.
// The identifier and creation timestamp are immutable; is_read only ever
// moves false -> true.
type Notification struct {
	NotificationID string           `json:"id" dynamodbav:"notification_id"`
	Title          string           `json:"title" dynamodbav:"title"`
	Message        string           `json:"message" dynamodbav:"message"`
	Type           NotificationType `json:"type" dynamodbav:"notification_type"`
	Category       string           `json:"category" dynamodbav:"category"`
	Link           string           `json:"link,omitempty" dynamodbav:"link"`
	RecipientType  string           `json:"recipient_type" dynamodbav:"recipient_type"`
	// nil = broadcast to the whole recipient type. omitempty keeps broadcast
	// rows free of the attribute so attribute_not_exists() matches them.
	RecipientID *string   `json:"recipient_id" dynamodbav:"recipient_id,omitempty"`
	IsRead      bool      `json:"is_read" dynamodbav:"is_read"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	// CreatedSort is the GSI sort key: fixed-width UTC timestamp + "#" + ULID.
	// The ULID suffix breaks ties between inserts in the same nanosecond so
	// list order is stable under concurrent appends.
	CreatedSort string `json:"-" dynamodbav:"created_sort"`
}

// createdSortLayout is fixed-width: RFC3339Nano drops trailing zeros, which
// would break lexicographic ordering across second boundaries.
const createdSortLayout = "2006-01-02T15:04:05.000000000Z"

// CreatedSortKey builds the sort-key value for a notification created at t
// with the given ULID.
func CreatedSortKey(t time.Time, notificationID string) string {
	return fmt.Sprintf("%s#%s", t.UTC().Format(createdSortLayout), notificationID)
}

// PushSubscription is one registered delivery endpoint for one user on one
// device. The endpoint plus its encryption keys form the opaque descriptor
// the delivery channel consumes; this service never interprets them.
type PushSubscription struct {
	SubscriptionID string    `json:"id" dynamodbav:"subscription_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	Endpoint       string    `json:"endpoint" dynamodbav:"endpoint"`
	P256dh         string    `json:"p256dh" dynamodbav:"p256dh"`
	Auth           string    `json:"auth" dynamodbav:"auth"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
}

// RegisterSubscriptionRequest mirrors the browser PushSubscription JSON shape.
type RegisterSubscriptionRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}
