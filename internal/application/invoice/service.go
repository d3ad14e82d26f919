package invoice

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/empire-parts-api/internal/domain"
	"github.com/empire-parts-api/internal/infrastructure/dynamo"
	"github.com/empire-parts-api/internal/pkg/id"
	"github.com/empire-parts-api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.Invoice, error)
	Get(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	List(ctx context.Context) ([]domain.Invoice, error)
}

type service struct {
	repo   *dynamo.InvoiceRepo
	orders *dynamo.OrderRepo
}

func NewService(repo *dynamo.InvoiceRepo, orders *dynamo.OrderRepo) Service {
	return &service{repo: repo, orders: orders}
}

func (s *service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.Invoice, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if req.OrderID != nil {
		if _, err := s.orders.Get(ctx, *req.OrderID); err != nil {
			return nil, fmt.Errorf("order %s: %w", *req.OrderID, err)
		}
	}

	items := make([]domain.InvoiceItem, 0, len(req.Items))
	subtotal := 0.0
	for _, it := range req.Items {
		line := round2(it.UnitPrice * float64(it.Quantity))
		items = append(items, domain.InvoiceItem{
			ItemName:  it.ItemName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: line,
		})
		subtotal = round2(subtotal + line)
	}
	taxAmount := round2(subtotal * req.TaxPercent / 100)
	total := round2(subtotal + taxAmount)

	now := time.Now().UTC()
	day := now.Format("20060102")
	existing, err := s.repo.ListNumbersByDay(ctx, day)
	if err != nil {
		return nil, err
	}

	inv := &domain.Invoice{
		InvoiceID:     id.New(),
		InvoiceNumber: NextNumber(day, existing),
		InvoiceDay:    day,
		OrderID:       req.OrderID,
		CustomerName:  req.CustomerName,
		Items:         items,
		Subtotal:      subtotal,
		TaxPercent:    req.TaxPercent,
		TaxAmount:     taxAmount,
		Total:         total,
		IssuedAt:      now,
		CreatedAt:     now,
	}
	if err := s.repo.Put(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *service) Get(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	return s.repo.Get(ctx, invoiceID)
}

func (s *service) List(ctx context.Context) ([]domain.Invoice, error) {
	return s.repo.Scan(ctx)
}

// NextNumber produces the next invoice number for a day given the numbers
// already issued that day: INV-YYYYMMDD-0001, -0002, ... The sequence is
// derived from the highest existing suffix, so gaps from deleted invoices
// are never reused out of order.
func NextNumber(day string, existing []string) string {
	prefix := "INV-" + day + "-"
	max := 0
	for _, num := range existing {
		suffix, ok := strings.CutPrefix(num, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, max+1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
