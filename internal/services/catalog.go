package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stylepick/catalog-core/internal/cache"
	"github.com/stylepick/catalog-core/internal/config"
	appErrors "github.com/stylepick/catalog-core/internal/errors"
	"github.com/stylepick/catalog-core/internal/metrics"
	"github.com/stylepick/catalog-core/internal/models"
	repository "github.com/stylepick/catalog-core/internal/repositories"
	"github.com/stylepick/catalog-core/internal/stylecode"
)

// createRetryAttempts bounds retries of a style-code allocation race.
const createRetryAttempts = 3

type CatalogService interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, int, error)
	UpdateProductStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error
	UpdateVariantPrice(ctx context.Context, variantID uuid.UUID, newSellingPrice int64) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]*models.PriceHistory, error)
}

type catalogService struct {
	categoryRepo repository.CategoryRepository
	catalogRepo  repository.CatalogRepository
	cache        cache.Cache
	productTTL   time.Duration
	validate     *validator.Validate
	logger       *slog.Logger
}

func NewCatalogService(categoryRepo repository.CategoryRepository, catalogRepo repository.CatalogRepository, cacheStore cache.Cache, cacheCfg *config.CacheConfig, logger *slog.Logger) CatalogService {
	return &catalogService{
		categoryRepo: categoryRepo,
		catalogRepo:  catalogRepo,
		cache:        cacheStore,
		productTTL:   cacheCfg.ProductTTL,
		validate:     validator.New(),
		logger:       logger,
	}
}

// CreateProduct registers a style with its variants and options in one
// transaction. A style-code allocation race is retried a bounded number of
// times before the conflict is surfaced.
func (s *catalogService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.ValidationError("Invalid product request").WithError(err)
	}

	// Reject unknown sizes before opening a transaction.
	for _, variant := range req.Variants {
		for _, size := range variant.Sizes {
			if _, err := stylecode.SizeFor(size); err != nil {
				return nil, err
			}
		}
	}

	category, err := s.categoryRepo.GetCategoryByCode(ctx, req.CategoryCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.CategoryNotFoundError(req.CategoryCode)
		}

		return nil, appErrors.DatabaseError("Failed to resolve category").WithError(err)
	}

	var product *models.Product

	for attempt := 1; attempt <= createRetryAttempts; attempt++ {
		product, err = s.catalogRepo.CreateProductHierarchy(ctx, req, category)
		if err == nil {
			break
		}

		if appErrors.HasCode(err, appErrors.ErrCodeTransactionConflict) && attempt < createRetryAttempts {
			metrics.StyleCodeConflicts.Inc()
			s.logger.Warn("style code allocation conflict, retrying",
				slog.String("category", category.Code),
				slog.Int("attempt", attempt))

			continue
		}

		if _, ok := appErrors.IsAppError(err); ok {
			return nil, err
		}

		return nil, appErrors.DatabaseError("Failed to create product").WithError(err)
	}

	metrics.ProductsCreated.Inc()
	s.logger.Info("product created",
		slog.String("style_code", product.StyleCode),
		slog.Int("variants", len(product.Variants)))

	return product, nil
}

func (s *catalogService) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	cacheKey := cache.Key(cache.ProductKeyPrefix, id.String())

	cached := &models.Product{}

	found, err := s.cache.Get(ctx, cacheKey, cached)
	if err != nil {
		s.logger.Warn("product cache read failed", slog.String("error", err.Error()))
	} else if found {
		return cached, nil
	}

	product, err := s.catalogRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Product not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to get product").WithError(err)
	}

	if err := s.cache.Set(ctx, cacheKey, product, s.productTTL); err != nil {
		s.logger.Warn("product cache write failed", slog.String("error", err.Error()))
	}

	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, int, error) {
	products, total, err := s.catalogRepo.ListProducts(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.DatabaseError("Failed to fetch products").WithError(err)
	}

	return products, total, nil
}

// UpdateProductStatus writes the status directly with no cascade
// validation. This is an intentional manual-override escape hatch (e.g.
// DISCONTINUED): the caller may set any status regardless of what the
// descendant options say.
func (s *catalogService) UpdateProductStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error {
	if !status.Valid() {
		return appErrors.ValidationError("Invalid product status")
	}

	if err := s.catalogRepo.UpdateProductStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NotFoundError("Product not found").WithError(err)
		}

		return appErrors.DatabaseError("Failed to update product status").WithError(err)
	}

	s.invalidateProduct(ctx, id)
	s.logger.Info("product status updated",
		slog.String("product_id", id.String()),
		slog.String("status", string(status)))

	return nil
}

func (s *catalogService) UpdateVariantPrice(ctx context.Context, variantID uuid.UUID, newSellingPrice int64) (*models.Product, error) {
	if newSellingPrice <= 0 {
		return nil, appErrors.ValidationError("Selling price must be positive")
	}

	outcome, err := s.catalogRepo.UpdateVariantPrice(ctx, variantID, newSellingPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Variant not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to update variant price").WithError(err)
	}

	metrics.PriceUpdates.WithLabelValues(outcome.Reason).Inc()
	s.invalidateProduct(ctx, outcome.ProductID)
	s.logger.Info("variant price updated",
		slog.String("variant_id", variantID.String()),
		slog.Int64("previous_price", outcome.PreviousPrice),
		slog.Int64("new_price", outcome.NewPrice),
		slog.String("reason", outcome.Reason),
		slog.Bool("outlet_changed", outcome.OutletChanged))

	product, err := s.catalogRepo.GetProductByID(ctx, outcome.ProductID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to reload product").WithError(err)
	}

	return product, nil
}

// DeleteProduct removes the style and, via FK cascade, every variant and
// option under it. Irreversible.
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.catalogRepo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NotFoundError("Product not found").WithError(err)
		}

		return appErrors.DatabaseError("Failed to delete product").WithError(err)
	}

	s.invalidateProduct(ctx, id)
	s.logger.Info("product deleted", slog.String("product_id", id.String()))

	return nil
}

func (s *catalogService) ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]*models.PriceHistory, error) {
	entries, err := s.catalogRepo.ListPriceHistory(ctx, productID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch price history").WithError(err)
	}

	return entries, nil
}

func (s *catalogService) invalidateProduct(ctx context.Context, id uuid.UUID) {
	cacheKey := cache.Key(cache.ProductKeyPrefix, id.String())

	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		s.logger.Warn("product cache invalidation failed",
			slog.String("product_id", id.String()),
			slog.String("error", err.Error()))
	}
}
