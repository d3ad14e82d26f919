package category

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/empire-parts-api/internal/domain"
	"github.com/empire-parts-api/internal/infrastructure/dynamo"
	"github.com/empire-parts-api/internal/pkg/id"
	"github.com/empire-parts-api/internal/pkg/slug"
	"github.com/empire-parts-api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, req domain.CategoryInput) (*domain.Category, error)
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
	GetBySlug(ctx context.Context, s string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, categoryID string, req domain.CategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, categoryID string) error
}

type service struct {
	repo     *dynamo.CategoryRepo
	products *dynamo.ProductRepo
}

func NewService(repo *dynamo.CategoryRepo, products *dynamo.ProductRepo) Service {
	return &service{repo: repo, products: products}
}

func (s *service) Create(ctx context.Context, req domain.CategoryInput) (*domain.Category, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	sl, err := s.uniqueSlug(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &domain.Category{
		CategoryID: id.New(),
		Name:       req.Name,
		Slug:       sl,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, categoryID string) (*domain.Category, error) {
	return s.repo.Get(ctx, categoryID)
}

func (s *service) GetBySlug(ctx context.Context, sl string) (*domain.Category, error) {
	return s.repo.GetBySlug(ctx, sl)
}

func (s *service) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.Scan(ctx)
}

func (s *service) Update(ctx context.Context, categoryID string, req domain.CategoryInput) (*domain.Category, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	c, err := s.repo.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"name":       req.Name,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if req.Name != c.Name {
		sl, err := s.uniqueSlug(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		updates["slug"] = sl
	}
	if err := s.repo.Update(ctx, categoryID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, categoryID)
}

// Delete refuses to remove a category that still has products, so product
// rows can never point at a missing category.
func (s *service) Delete(ctx context.Context, categoryID string) error {
	if _, err := s.repo.Get(ctx, categoryID); err != nil {
		return err
	}
	products, err := s.products.ListByCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if len(products) > 0 {
		return fmt.Errorf("category has %d products: %w", len(products), domain.ErrConflict)
	}
	return s.repo.HardDelete(ctx, categoryID)
}

func (s *service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	_, err := s.repo.GetBySlug(ctx, base)
	if errors.Is(err, domain.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return "", err
	}
	return slug.Unique(base), nil
}
