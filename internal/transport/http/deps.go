package http

import (
	"github.com/empire-parts-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/empire-parts-api/internal/infrastructure/jwt"
	s3infra "github.com/empire-parts-api/internal/infrastructure/s3"
	"github.com/empire-parts-api/internal/infrastructure/smtp"
	"github.com/empire-parts-api/internal/infrastructure/sns"
	"github.com/empire-parts-api/internal/realtime"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	SessionRepo      *dynamo.SessionRepo
	CategoryRepo     *dynamo.CategoryRepo
	ProductRepo      *dynamo.ProductRepo
	OrderRepo        *dynamo.OrderRepo
	InvoiceRepo      *dynamo.InvoiceRepo
	NotificationRepo *dynamo.NotificationRepo
	SubscriptionRepo *dynamo.SubscriptionRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	PushSender       sns.PushSender
	JWTProvider      *jwtinfra.Provider
	Hub              *realtime.Hub
}
