package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cacheMocks "github.com/stylepick/catalog-core/internal/cache/mocks"
	"github.com/stylepick/catalog-core/internal/config"
	appErrors "github.com/stylepick/catalog-core/internal/errors"
	"github.com/stylepick/catalog-core/internal/models"
	repository "github.com/stylepick/catalog-core/internal/repositories"
	repoMocks "github.com/stylepick/catalog-core/internal/repositories/mocks"
	service "github.com/stylepick/catalog-core/internal/services"
	"github.com/stylepick/catalog-core/internal/stylecode"
)

func newCatalogService(t *testing.T) (service.CatalogService, *repoMocks.CategoryRepository, *repoMocks.CatalogRepository, *cacheMocks.Cache) {
	t.Helper()

	categoryRepo := new(repoMocks.CategoryRepository)
	catalogRepo := new(repoMocks.CatalogRepository)
	cacheStore := new(cacheMocks.Cache)
	cacheCfg := &config.CacheConfig{DefaultTTL: 5 * time.Minute, ProductTTL: 10 * time.Minute}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return service.NewCatalogService(categoryRepo, catalogRepo, cacheStore, cacheCfg, logger), categoryRepo, catalogRepo, cacheStore
}

func validCreateRequest() *models.CreateProductRequest {
	return &models.CreateProductRequest{
		Name:         "Linen Jacket",
		Year:         2025,
		Season:       models.SeasonSpringSummer,
		CategoryCode: "JK",
		TagPrice:     100000,
		CostPrice:    40000,
		Variants: []models.CreateVariantInput{
			{ColorCode: "BK", ColorName: "Black", SellingPrice: 60000, Sizes: []string{"0", "1"}},
			{ColorCode: "WH", ColorName: "White", SellingPrice: 40000, Sizes: []string{"OS"}},
		},
	}
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	category := &models.Category{ID: uuid.New(), Code: "JK", Name: "Jackets"}

	t.Run("Success - Create Product", func(t *testing.T) {
		// Arrange
		svc, categoryRepo, catalogRepo, _ := newCatalogService(t)
		req := validCreateRequest()
		created := &models.Product{ID: uuid.New(), StyleCode: "I25SSJK001", Status: models.ProductStatusDraft}

		categoryRepo.On("GetCategoryByCode", mock.Anything, "JK").Return(category, nil).Once()
		catalogRepo.On("CreateProductHierarchy", mock.Anything, req, category).Return(created, nil).Once()

		// Act
		product, err := svc.CreateProduct(ctx, req)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, created, product)
		categoryRepo.AssertExpectations(t)
		catalogRepo.AssertExpectations(t)
	})

	t.Run("Failure - Validation Error", func(t *testing.T) {
		// Arrange
		svc, categoryRepo, catalogRepo, _ := newCatalogService(t)
		req := validCreateRequest()
		req.Variants = nil

		// Act
		product, err := svc.CreateProduct(ctx, req)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, product)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))
		categoryRepo.AssertNotCalled(t, "GetCategoryByCode")
		catalogRepo.AssertNotCalled(t, "CreateProductHierarchy")
	})

	t.Run("Failure - Unknown Size Before Any Transaction", func(t *testing.T) {
		// Arrange
		svc, categoryRepo, catalogRepo, _ := newCatalogService(t)
		req := validCreateRequest()
		req.Variants[0].Sizes = []string{"0", "9"}

		// Act
		product, err := svc.CreateProduct(ctx, req)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, product)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeUnknownSize))
		categoryRepo.AssertNotCalled(t, "GetCategoryByCode")
		catalogRepo.AssertNotCalled(t, "CreateProductHierarchy")
	})

	t.Run("Failure - Category Not Found", func(t *testing.T) {
		// Arrange
		svc, categoryRepo, catalogRepo, _ := newCatalogService(t)
		req := validCreateRequest()

		categoryRepo.On("GetCategoryByCode", mock.Anything, "JK").Return(nil, sql.ErrNoRows).Once()

		// Act
		product, err := svc.CreateProduct(ctx, req)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, product)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeCategoryNotFound))
		catalogRepo.AssertNotCalled(t, "CreateProductHierarchy")
		categoryRepo.AssertExpectations(t)
	})

	t.Run("Success - Retries Style Code Conflict", func(t *testing.T) {
		// Arrange
		svc, categoryRepo, catalogRepo, _ := newCatalogService(t)
		req := validCreateRequest()
		created := &models.Product{ID: uuid.New(), StyleCode: "I25SSJK003"}
		conflict := appErrors.TransactionConflictError("lost the race")

		categoryRepo.On("GetCategoryByCode", mock.Anything, "JK").Return(category, nil).Once()
		catalogRepo.On("CreateProductHierarchy", mock.Anything, req, category).Return(nil, conflict).Twice()
		catalogRepo.On("CreateProductHierarchy", mock.Anything, req, category).Return(created, nil).Once()

		// Act
		product, err := svc.CreateProduct(ctx, req)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, created, product)
		catalogRepo.AssertNumberOfCalls(t, "CreateProductHierarchy", 3)
	})

	t.Run("Failure - Conflict Survives All Retries", func(t *testing.T) {
		// Arrange
		svc, categoryRepo, catalogRepo, _ := newCatalogService(t)
		req := validCreateRequest()
		conflict := appErrors.TransactionConflictError("lost the race")

		categoryRepo.On("GetCategoryByCode", mock.Anything, "JK").Return(category, nil).Once()
		catalogRepo.On("CreateProductHierarchy", mock.Anything, req, category).Return(nil, conflict).Times(3)

		// Act
		product, err := svc.CreateProduct(ctx, req)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, product)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeTransactionConflict))
		catalogRepo.AssertNumberOfCalls(t, "CreateProductHierarchy", 3)
	})

	t.Run("Failure - Serial Exhausted Is Not Retried", func(t *testing.T) {
		// Arrange
		svc, categoryRepo, catalogRepo, _ := newCatalogService(t)
		req := validCreateRequest()
		exhausted := appErrors.SerialExhaustedError("I25SSJK")

		categoryRepo.On("GetCategoryByCode", mock.Anything, "JK").Return(category, nil).Once()
		catalogRepo.On("CreateProductHierarchy", mock.Anything, req, category).Return(nil, exhausted).Once()

		// Act
		product, err := svc.CreateProduct(ctx, req)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, product)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeSerialExhausted))
		catalogRepo.AssertNumberOfCalls(t, "CreateProductHierarchy", 1)
	})
}

func TestGetProductByID(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	t.Run("Success - Cache Hit", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, cacheStore := newCatalogService(t)
		cached := &models.Product{ID: productID, StyleCode: "I25SSJK001", Name: "Linen Jacket"}

		cacheStore.On("Get", mock.Anything, "product:"+productID.String(), mock.Anything).
			Run(func(args mock.Arguments) {
				out := args.Get(2).(*models.Product)
				*out = *cached
			}).Return(true, nil).Once()

		// Act
		product, err := svc.GetProductByID(ctx, productID)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, cached, product)
		catalogRepo.AssertNotCalled(t, "GetProductByID")
		cacheStore.AssertExpectations(t)
	})

	t.Run("Success - Cache Miss Falls Through To Repository", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, cacheStore := newCatalogService(t)
		stored := &models.Product{ID: productID, StyleCode: "I25SSJK001"}

		cacheStore.On("Get", mock.Anything, "product:"+productID.String(), mock.Anything).Return(false, nil).Once()
		catalogRepo.On("GetProductByID", mock.Anything, productID).Return(stored, nil).Once()
		cacheStore.On("Set", mock.Anything, "product:"+productID.String(), stored, 10*time.Minute).Return(nil).Once()

		// Act
		product, err := svc.GetProductByID(ctx, productID)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, stored, product)
		catalogRepo.AssertExpectations(t)
		cacheStore.AssertExpectations(t)
	})

	t.Run("Failure - Not Found", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, cacheStore := newCatalogService(t)

		cacheStore.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()
		catalogRepo.On("GetProductByID", mock.Anything, productID).Return(nil, sql.ErrNoRows).Once()

		// Act
		product, err := svc.GetProductByID(ctx, productID)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, product)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeNotFound))
	})
}

func TestUpdateVariantPrice(t *testing.T) {
	ctx := context.Background()
	variantID := uuid.New()
	productID := uuid.New()

	t.Run("Success - Price Updated And Cache Invalidated", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, cacheStore := newCatalogService(t)
		outcome := &repository.PriceUpdateOutcome{
			ProductID:     productID,
			PreviousPrice: 60000,
			NewPrice:      45000,
			DiscountRate:  55,
			Reason:        "outlet conversion",
			OutletChanged: true,
		}
		reloaded := &models.Product{ID: productID, IsOutlet: true}

		catalogRepo.On("UpdateVariantPrice", mock.Anything, variantID, int64(45000)).Return(outcome, nil).Once()
		cacheStore.On("Delete", mock.Anything, "product:"+productID.String()).Return(nil).Once()
		catalogRepo.On("GetProductByID", mock.Anything, productID).Return(reloaded, nil).Once()

		// Act
		product, err := svc.UpdateVariantPrice(ctx, variantID, 45000)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, reloaded, product)
		assert.True(t, product.IsOutlet)
		catalogRepo.AssertExpectations(t)
		cacheStore.AssertExpectations(t)
	})

	t.Run("Failure - Non-Positive Price", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, _ := newCatalogService(t)

		// Act
		product, err := svc.UpdateVariantPrice(ctx, variantID, 0)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, product)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))
		catalogRepo.AssertNotCalled(t, "UpdateVariantPrice")
	})

	t.Run("Failure - Variant Not Found", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, _ := newCatalogService(t)

		catalogRepo.On("UpdateVariantPrice", mock.Anything, variantID, int64(45000)).Return(nil, sql.ErrNoRows).Once()

		// Act
		product, err := svc.UpdateVariantPrice(ctx, variantID, 45000)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, product)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeNotFound))
	})
}

func TestUpdateProductStatus(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	t.Run("Success - Manual Override Accepts Any Valid Status", func(t *testing.T) {
		// The manual override intentionally skips cascade validation, so
		// even SOLD_OUT can be forced regardless of option state.
		for _, status := range []models.ProductStatus{models.ProductStatusDiscontinued, models.ProductStatusSoldOut, models.ProductStatusActive} {
			// Arrange
			svc, _, catalogRepo, cacheStore := newCatalogService(t)

			catalogRepo.On("UpdateProductStatus", mock.Anything, productID, status).Return(nil).Once()
			cacheStore.On("Delete", mock.Anything, "product:"+productID.String()).Return(nil).Once()

			// Act
			err := svc.UpdateProductStatus(ctx, productID, status)

			// Assert
			assert.NoError(t, err)
			catalogRepo.AssertExpectations(t)
		}
	})

	t.Run("Failure - Invalid Status", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, _ := newCatalogService(t)

		// Act
		err := svc.UpdateProductStatus(ctx, productID, models.ProductStatus("ARCHIVED"))

		// Assert
		assert.Error(t, err)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeValidation))
		catalogRepo.AssertNotCalled(t, "UpdateProductStatus")
	})

	t.Run("Failure - Not Found", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, _ := newCatalogService(t)

		catalogRepo.On("UpdateProductStatus", mock.Anything, productID, models.ProductStatusDiscontinued).Return(sql.ErrNoRows).Once()

		// Act
		err := svc.UpdateProductStatus(ctx, productID, models.ProductStatusDiscontinued)

		// Assert
		assert.Error(t, err)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeNotFound))
	})
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, cacheStore := newCatalogService(t)

		catalogRepo.On("DeleteProduct", mock.Anything, productID).Return(nil).Once()
		cacheStore.On("Delete", mock.Anything, "product:"+productID.String()).Return(nil).Once()

		// Act
		err := svc.DeleteProduct(ctx, productID)

		// Assert
		assert.NoError(t, err)
		catalogRepo.AssertExpectations(t)
		cacheStore.AssertExpectations(t)
	})

	t.Run("Failure - Not Found", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, _ := newCatalogService(t)

		catalogRepo.On("DeleteProduct", mock.Anything, productID).Return(sql.ErrNoRows).Once()

		// Act
		err := svc.DeleteProduct(ctx, productID)

		// Assert
		assert.Error(t, err)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeNotFound))
	})
}

func TestListProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, _ := newCatalogService(t)
		filter := &models.ProductFilter{Page: 1, PageSize: 10}
		expected := []*models.Product{
			{ID: uuid.New(), StyleCode: "I25SSJK001"},
			{ID: uuid.New(), StyleCode: "I25SSJK002"},
		}

		catalogRepo.On("ListProducts", mock.Anything, filter).Return(expected, 2, nil).Once()

		// Act
		products, total, err := svc.ListProducts(ctx, filter)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, expected, products)
		assert.Equal(t, 2, total)
	})

	t.Run("Failure - Database Error", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, _ := newCatalogService(t)
		filter := &models.ProductFilter{}

		catalogRepo.On("ListProducts", mock.Anything, filter).Return(nil, 0, assert.AnError).Once()

		// Act
		products, total, err := svc.ListProducts(ctx, filter)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, products)
		assert.Zero(t, total)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeDatabaseError))
	})
}

// raceSimulatingRepo allocates style codes the way the database does under
// the unique constraint: serially, with every request losing the race
// exactly once before its retry lands.
type raceSimulatingRepo struct {
	*repoMocks.CatalogRepository
	mu         sync.Mutex
	used       map[string]bool
	conflicted map[string]bool
}

func (r *raceSimulatingRepo) CreateProductHierarchy(ctx context.Context, req *models.CreateProductRequest, category *models.Category) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.conflicted[req.Name] {
		r.conflicted[req.Name] = true

		return nil, appErrors.TransactionConflictError("duplicate key value violates unique constraint")
	}

	prefix := stylecode.Prefix(req.Year, req.Season, category.Code)

	max := ""

	for code := range r.used {
		if strings.HasPrefix(code, prefix) && code > max {
			max = code
		}
	}

	code, err := stylecode.Next(prefix, max)
	if err != nil {
		return nil, err
	}

	r.used[code] = true

	return &models.Product{ID: uuid.New(), StyleCode: code, Name: req.Name}, nil
}

func TestCreateProductConcurrentStyleCodes(t *testing.T) {
	// Arrange
	const workers = 8

	category := &models.Category{ID: uuid.New(), Code: "JK", Name: "Jackets"}
	categoryRepo := new(repoMocks.CategoryRepository)
	categoryRepo.On("GetCategoryByCode", mock.Anything, "JK").Return(category, nil)

	repo := &raceSimulatingRepo{
		CatalogRepository: new(repoMocks.CatalogRepository),
		used:              make(map[string]bool),
		conflicted:        make(map[string]bool),
	}
	cacheCfg := &config.CacheConfig{DefaultTTL: 5 * time.Minute, ProductTTL: 10 * time.Minute}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewCatalogService(categoryRepo, repo, new(cacheMocks.Cache), cacheCfg, logger)

	codes := make(chan string, workers)
	errs := make(chan error, workers)

	var wg sync.WaitGroup

	// Act
	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			req := validCreateRequest()
			req.Name = fmt.Sprintf("Linen Jacket %d", i)

			product, err := svc.CreateProduct(context.Background(), req)
			if err != nil {
				errs <- err

				return
			}

			codes <- product.StyleCode
		}(i)
	}

	wg.Wait()
	close(codes)
	close(errs)

	// Assert
	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[string]bool)

	for code := range codes {
		assert.Regexp(t, `^I25SSJK[0-9]{3}$`, code)
		assert.False(t, seen[code], "style code %s allocated twice", code)
		seen[code] = true
	}

	assert.Len(t, seen, workers)
	assert.Len(t, repo.conflicted, workers)
}

func TestListPriceHistory(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		svc, _, catalogRepo, _ := newCatalogService(t)
		expected := []*models.PriceHistory{
			{ID: uuid.New(), ProductID: productID, ChangeType: models.PriceChangeTag, NewPrice: 100000},
			{ID: uuid.New(), ProductID: productID, ChangeType: models.PriceChangeSelling, PreviousPrice: 60000, NewPrice: 45000},
		}

		catalogRepo.On("ListPriceHistory", mock.Anything, productID).Return(expected, nil).Once()

		// Act
		entries, err := svc.ListPriceHistory(ctx, productID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, expected, entries)
	})
}
