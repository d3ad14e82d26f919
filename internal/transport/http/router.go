package http

import (
	"net/http"

	"github.com/empire-parts-api/internal/application/category"
	"github.com/empire-parts-api/internal/application/invoice"
	"github.com/empire-parts-api/internal/application/notification"
	"github.com/empire-parts-api/internal/application/order"
	"github.com/empire-parts-api/internal/application/product"
	"github.com/empire-parts-api/internal/application/push"
	"github.com/empire-parts-api/internal/application/session"
	"github.com/empire-parts-api/internal/application/subscription"
	"github.com/empire-parts-api/internal/application/user"
	"github.com/empire-parts-api/internal/config"
	"github.com/empire-parts-api/internal/domain"
	"github.com/empire-parts-api/internal/transport/http/handler"
	appmiddleware "github.com/empire-parts-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}
	backOffice := appmiddleware.RequireRole(domain.RoleAdmin, domain.RoleStaff)

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionSvc := session.NewService(deps.SessionRepo, deps.UserRepo, deps.JWTProvider)
	userSvc := user.NewService(deps.UserRepo, deps.SessionRepo)
	categorySvc := category.NewService(deps.CategoryRepo, deps.ProductRepo)
	productSvc := product.NewService(deps.ProductRepo, deps.CategoryRepo, deps.S3Store)
	subscriptionSvc := subscription.NewService(deps.SubscriptionRepo, deps.UserRepo)
	dispatcher := push.NewDispatcher(push.DispatcherDeps{
		Store:          deps.NotificationRepo,
		Registry:       subscriptionSvc,
		Channel:        deps.PushSender,
		AttemptTimeout: cfg.PushAttemptTimeout,
	})
	orderSvc := order.NewService(deps.OrderRepo, deps.ProductRepo, deps.UserRepo, dispatcher, deps.Mailer)
	invoiceSvc := invoice.NewService(deps.InvoiceRepo, deps.OrderRepo)
	notificationSvc := notification.NewService(deps.NotificationRepo)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	categoryH := handler.NewCategoryHandler(categorySvc)
	productH := handler.NewProductHandler(productSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	invoiceH := handler.NewInvoiceHandler(invoiceSvc)
	notificationH := handler.NewNotificationHandler(notificationSvc, deps.Hub)
	pushH := handler.NewPushHandler(dispatcher, subscriptionSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)

		r.Get("/categories", categoryH.List)
		r.Get("/categories/slug/{slug}", categoryH.GetBySlug)
		r.Get("/categories/{id}", categoryH.Get)
		r.Get("/products", productH.List)
		r.Get("/products/slug/{slug}", productH.GetBySlug)
		r.Get("/products/{id}", productH.Get)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)
			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Post("/users/change-password", userH.ChangePassword)

			r.Post("/orders", orderH.Place)
			r.Get("/orders", orderH.List)
			r.Get("/orders/{id}", orderH.Get)

			r.Get("/notifications", notificationH.List)
			r.Get("/notifications/unread-count", notificationH.UnreadCount)
			r.Get("/notifications/stream", notificationH.Stream)
			r.Put("/notifications/read", notificationH.MarkManyRead)
			r.Put("/notifications/{id}/read", notificationH.MarkRead)

			r.Post("/push/subscriptions", pushH.RegisterSubscription)
			r.Delete("/push/subscriptions/{id}", pushH.UnregisterSubscription)

			// Back-office routes (admin and staff)
			r.Group(func(r chi.Router) {
				r.Use(backOffice)

				r.Post("/categories", categoryH.Create)
				r.Put("/categories/{id}", categoryH.Update)
				r.Delete("/categories/{id}", categoryH.Delete)

				r.Post("/products", productH.Create)
				r.Put("/products/{id}", productH.Update)
				r.Delete("/products/{id}", productH.Delete)
				r.Post("/products/{id}/images", productH.UploadImage)

				r.Put("/orders/{id}/status", orderH.UpdateStatus)

				r.Post("/invoices", invoiceH.Create)
				r.Get("/invoices", invoiceH.List)
				r.Get("/invoices/{id}", invoiceH.Get)

				r.Post("/push/send", pushH.Send)
				r.Delete("/notifications/read", notificationH.PurgeRead)
			})

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", userH.List)
				r.Delete("/users/{id}", userH.Delete)
			})
		})
	})

	return r
}
