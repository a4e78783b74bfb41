package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefrontapp/storefront/internal/cache"
	"github.com/storefrontapp/storefront/internal/catalog"
	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/logging"
	"github.com/storefrontapp/storefront/internal/models"
	"github.com/storefrontapp/storefront/internal/observability"
)

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURLs   []string        `json:"imageUrls"`
}

type SeedResult struct {
	Categories int `json:"categories"`
	Products   int `json:"products"`
}

type catalogParser interface {
	Parse(content []byte) (*catalog.SeedCatalog, error)
	ParseDefault() (*catalog.SeedCatalog, error)
}

type catalogValidator interface {
	Validate(seed *catalog.SeedCatalog) error
	ValidateProduct(product *db.Product) error
	ValidateCategoryName(name string) error
}

type CatalogService struct {
	products   productRepository
	categories categoryRepository
	cache      cache.Provider
	cacheTTL   time.Duration
	parser     catalogParser
	validator  catalogValidator
	logger     *slog.Logger
}

func NewCatalogService(products productRepository, categories categoryRepository, cacheProvider cache.Provider, cacheTTL time.Duration, parser catalogParser, validator catalogValidator, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		cache:      cacheProvider,
		cacheTTL:   cacheTTL,
		parser:     parser,
		validator:  validator,
		logger:     logger,
	}
}

func (s *CatalogService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]*db.Product, error) {
	var products []*db.Product
	if s.readCache(ctx, cache.ProductListKey, &products) {
		return products, nil
	}

	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	s.writeCache(ctx, cache.ProductListKey, products)
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, productID uuid.UUID) (*db.Product, error) {
	key := cache.ProductKey(productID.String())
	var cached db.Product
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	s.writeCache(ctx, key, product)
	return product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, input ProductInput) (*db.Product, error) {
	product := productFromInput(input)
	if err := s.validator.ValidateProduct(product); err != nil {
		return nil, ValidationError{Message: err.Error()}
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.invalidate(ctx, cache.ProductListKey)
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, input ProductInput) (*db.Product, error) {
	product := productFromInput(input)
	product.ID = productID
	if err := s.validator.ValidateProduct(product); err != nil {
		return nil, ValidationError{Message: err.Error()}
	}

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	s.invalidate(ctx, cache.ProductListKey, cache.ProductKey(productID.String()))
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if err := s.products.Delete(ctx, productID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.invalidate(ctx, cache.ProductListKey, cache.ProductKey(productID.String()))
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*db.Category, error) {
	var categories []*db.Category
	if s.readCache(ctx, cache.CategoryListKey, &categories) {
		return categories, nil
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	s.writeCache(ctx, cache.CategoryListKey, categories)
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*db.Category, error) {
	name = strings.TrimSpace(name)
	if err := s.validator.ValidateCategoryName(name); err != nil {
		return nil, ValidationError{Message: err.Error()}
	}

	category := &db.Category{Name: name, Slug: models.CategorySlug(name)}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	s.invalidate(ctx, cache.CategoryListKey)
	return category, nil
}

// UpdateCategory renames a category and recomputes its slug.
func (s *CatalogService) UpdateCategory(ctx context.Context, categoryID uuid.UUID, name string) (*db.Category, error) {
	name = strings.TrimSpace(name)
	if err := s.validator.ValidateCategoryName(name); err != nil {
		return nil, ValidationError{Message: err.Error()}
	}

	category := &db.Category{ID: categoryID, Name: name, Slug: models.CategorySlug(name)}
	if err := s.categories.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return nil, ErrCategoryNotFound
		case errors.Is(err, db.ErrDuplicate):
			return nil, ErrCategoryExists
		default:
			return nil, fmt.Errorf("failed to update category: %w", err)
		}
	}
	s.invalidate(ctx, cache.CategoryListKey)
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	if err := s.categories.Delete(ctx, categoryID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	s.invalidate(ctx, cache.CategoryListKey)
	return nil
}

// Seed replaces the whole catalog. An empty payload loads the bundled default catalog.
func (s *CatalogService) Seed(ctx context.Context, content []byte) (*SeedResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.catalog.seed",
		sentry.WithOpName("service.catalog"),
		sentry.WithDescription("Seed"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	var (
		seed *catalog.SeedCatalog
		err  error
	)
	if len(strings.TrimSpace(string(content))) == 0 {
		seed, err = s.parser.ParseDefault()
	} else {
		seed, err = s.parser.Parse(content)
	}
	if err != nil {
		return nil, ValidationError{Message: err.Error()}
	}
	if err := s.validator.Validate(seed); err != nil {
		return nil, ValidationError{Message: err.Error()}
	}

	categories, products, err := seed.Build()
	if err != nil {
		return nil, ValidationError{Message: err.Error()}
	}

	previous, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	if err := s.products.ReplaceAll(ctx, categories, products); err != nil {
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}

	keys := []string{cache.ProductListKey, cache.CategoryListKey}
	for _, product := range previous {
		keys = append(keys, cache.ProductKey(product.ID.String()))
	}
	s.invalidate(ctx, keys...)

	observability.MeterFromContext(ctx).Count("catalog.seeded", 1)
	s.loggerFromContext(ctx).Info("catalog seeded", "categories", len(categories), "products", len(products))

	return &SeedResult{Categories: len(categories), Products: len(products)}, nil
}

func (s *CatalogService) readCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil || s.cacheTTL <= 0 {
		return false
	}

	found, err := cache.GetJSON(ctx, s.cache, key, dest)
	if err != nil {
		s.loggerFromContext(ctx).Warn("catalog cache read failed", "error", err, "key", key)
		return false
	}
	return found
}

func (s *CatalogService) writeCache(ctx context.Context, key string, value any) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, s.cacheTTL); err != nil {
		s.loggerFromContext(ctx).Warn("catalog cache write failed", "error", err, "key", key)
	}
}

func (s *CatalogService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.loggerFromContext(ctx).Warn("catalog cache invalidation failed", "error", err, "keys", keys)
	}
}

func productFromInput(input ProductInput) *db.Product {
	images := make([]string, 0, len(input.ImageURLs))
	for _, raw := range input.ImageURLs {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			images = append(images, trimmed)
		}
	}

	return &db.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Category:    strings.TrimSpace(input.Category),
		ImageURLs:   images,
	}
}
