package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/empire-parts-api/internal/domain"
	"github.com/empire-parts-api/internal/infrastructure/dynamo"
	s3 "github.com/empire-parts-api/internal/infrastructure/s3"
	"github.com/empire-parts-api/internal/pkg/id"
	"github.com/empire-parts-api/internal/pkg/slug"
	"github.com/empire-parts-api/internal/pkg/validate"
)

// presignedURLTTL bounds how long a returned image link stays valid.
const presignedURLTTL = 15 * time.Minute

type Service interface {
	Create(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error)
	Get(ctx context.Context, productID string) (*domain.Product, error)
	GetBySlug(ctx context.Context, s string) (*domain.Product, error)
	List(ctx context.Context, categoryID string) ([]domain.Product, error)
	Update(ctx context.Context, productID string, req domain.UpdateProductRequest) (*domain.Product, error)
	Delete(ctx context.Context, productID string) error
	AttachImage(ctx context.Context, productID, filename string, r io.Reader, contentType string) (*domain.Product, error)
	ImageURLs(ctx context.Context, p *domain.Product) ([]string, error)
}

type service struct {
	repo       *dynamo.ProductRepo
	categories *dynamo.CategoryRepo
	images     *s3.Store
}

func NewService(repo *dynamo.ProductRepo, categories *dynamo.CategoryRepo, images *s3.Store) Service {
	return &service{repo: repo, categories: categories, images: images}
}

func (s *service) Create(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.categories.Get(ctx, req.CategoryID); err != nil {
		return nil, fmt.Errorf("category %s: %w", req.CategoryID, err)
	}
	sl, err := s.uniqueSlug(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p := &domain.Product{
		ProductID:   id.New(),
		Name:        req.Name,
		Slug:        sl,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Enable:      1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, productID string) (*domain.Product, error) {
	return s.repo.Get(ctx, productID)
}

func (s *service) GetBySlug(ctx context.Context, sl string) (*domain.Product, error) {
	return s.repo.GetBySlug(ctx, sl)
}

func (s *service) List(ctx context.Context, categoryID string) ([]domain.Product, error) {
	if categoryID != "" {
		return s.repo.ListByCategory(ctx, categoryID)
	}
	return s.repo.Scan(ctx)
}

func (s *service) Update(ctx context.Context, productID string, req domain.UpdateProductRequest) (*domain.Product, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil && *req.Name != p.Name {
		sl, err := s.uniqueSlug(ctx, *req.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = *req.Name
		updates["slug"] = sl
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.CategoryID != nil {
		if _, err := s.categories.Get(ctx, *req.CategoryID); err != nil {
			return nil, fmt.Errorf("category %s: %w", *req.CategoryID, err)
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.Enable != nil {
		updates["enable"] = *req.Enable
	}
	if len(updates) == 0 {
		return p, nil
	}
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	if err := s.repo.Update(ctx, productID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, productID)
}

func (s *service) Delete(ctx context.Context, productID string) error {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, productID)
}

// AttachImage stores the image under a product-scoped key and appends the
// key to the product row.
func (s *service) AttachImage(ctx context.Context, productID, filename string, r io.Reader, contentType string) (*domain.Product, error) {
	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("products/%s/%s-%s", productID, id.New(), filename)
	if _, err := s.images.Upload(ctx, key, r, contentType); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	keys := append(p.ImageKeys, key)
	if err := s.repo.Update(ctx, productID, map[string]interface{}{
		"image_keys": keys,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return nil, err
	}
	p.ImageKeys = keys
	return p, nil
}

func (s *service) ImageURLs(ctx context.Context, p *domain.Product) ([]string, error) {
	urls := make([]string, 0, len(p.ImageKeys))
	for _, key := range p.ImageKeys {
		u, err := s.images.PresignedURL(ctx, key, presignedURLTTL)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
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
