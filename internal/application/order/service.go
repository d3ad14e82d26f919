package order

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/empire-parts-api/internal/application/push"
	"github.com/empire-parts-api/internal/domain"
	"github.com/empire-parts-api/internal/infrastructure/dynamo"
	"github.com/empire-parts-api/internal/pkg/id"
	"github.com/empire-parts-api/internal/pkg/validate"
)

type Service interface {
	// Place creates the order, notifies the back office and emails the
	// customer a confirmation. Notification and email are best effort; the
	// placed order is the source of truth either way.
	Place(ctx context.Context, userID string, req domain.PlaceOrderRequest) (*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	// UpdateStatus enforces the forward-only transition rules and notifies
	// the order's owner about the change.
	UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	repo       *dynamo.OrderRepo
	products   *dynamo.ProductRepo
	users      *dynamo.UserRepo
	dispatcher push.Dispatcher
	mail       mailer
}

func NewService(repo *dynamo.OrderRepo, products *dynamo.ProductRepo, users *dynamo.UserRepo, dispatcher push.Dispatcher, mail mailer) Service {
	return &service{repo: repo, products: products, users: users, dispatcher: dispatcher, mail: mail}
}

func (s *service) Place(ctx context.Context, userID string, req domain.PlaceOrderRequest) (*domain.Order, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	// Prices come from the catalog at placement time, never from the client.
	items := make([]domain.OrderItem, 0, len(req.Items))
	subtotal := 0.0
	for _, it := range req.Items {
		p, err := s.products.Get(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", it.ProductID, err)
		}
		if p.Enable != 1 {
			return nil, fmt.Errorf("product %s is unavailable: %w", it.ProductID, domain.ErrBadRequest)
		}
		if p.Stock < it.Quantity {
			return nil, fmt.Errorf("insufficient stock for %s: %w", p.Name, domain.ErrConflict)
		}
		line := round2(p.Price * float64(it.Quantity))
		items = append(items, domain.OrderItem{
			ProductID: p.ProductID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
			LineTotal: line,
		})
		subtotal = round2(subtotal + line)
	}

	now := time.Now().UTC()
	o := &domain.Order{
		OrderID:      id.New(),
		UserID:       userID,
		Items:        items,
		Subtotal:     subtotal,
		Status:       domain.OrderPending,
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Address:      req.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, o); err != nil {
		return nil, err
	}

	s.notify(ctx, push.Event{
		Title:         "New Order",
		Message:       fmt.Sprintf("%s placed an order for %.2f", req.CustomerName, subtotal),
		Type:          domain.TypeInfo,
		Category:      "order",
		Link:          "/admin/orders",
		RecipientType: domain.RecipientAdmin,
	})

	if u, err := s.users.Get(ctx, userID); err == nil && u.Email != "" {
		body := fmt.Sprintf("Hi %s,\n\nWe received your order %s for a total of %.2f. We will contact you once it is confirmed.\n",
			req.CustomerName, o.OrderID, subtotal)
		if err := s.mail.SendEmail(u.Email, "Order received", body); err != nil {
			slog.Warn("order confirmation email failed", "order_id", o.OrderID, "err", err)
		}
	}
	return o, nil
}

func (s *service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.repo.Scan(ctx)
}

func (s *service) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.ValidOrderTransition(o.Status, status) {
		return nil, fmt.Errorf("cannot move order from %s to %s: %w", o.Status, status, domain.ErrConflict)
	}
	if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()

	evType := domain.TypeInfo
	if status == domain.OrderCancelled {
		evType = domain.TypeWarning
	}
	s.notify(ctx, push.Event{
		Title:         "Order " + status,
		Message:       fmt.Sprintf("Your order %s is now %s", orderID, status),
		Type:          evType,
		Category:      "order",
		Link:          "/orders/" + orderID,
		RecipientType: domain.RecipientCustomer,
		RecipientID:   &o.UserID,
	})
	return o, nil
}

// notify never fails the calling operation: the order state change already
// happened, losing the push is the lesser evil.
func (s *service) notify(ctx context.Context, ev push.Event) {
	if s.dispatcher == nil {
		return
	}
	if _, err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		slog.Warn("order notification dispatch failed", "title", ev.Title, "err", err)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
