// Package mocks provides testify mocks for the repository interfaces,
// consumed by the service tests.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/stylepick/catalog-core/internal/models"
	repository "github.com/stylepick/catalog-core/internal/repositories"
)

type CatalogRepository struct {
	mock.Mock
}

func (m *CatalogRepository) CreateProductHierarchy(ctx context.Context, req *models.CreateProductRequest, category *models.Category) (*models.Product, error) {
	args := m.Called(ctx, req, category)

	var product *models.Product
	if args.Get(0) != nil {
		product = args.Get(0).(*models.Product)
	}

	return product, args.Error(1)
}

func (m *CatalogRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)

	var product *models.Product
	if args.Get(0) != nil {
		product = args.Get(0).(*models.Product)
	}

	return product, args.Error(1)
}

func (m *CatalogRepository) ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, int, error) {
	args := m.Called(ctx, filter)

	var products []*models.Product
	if args.Get(0) != nil {
		products = args.Get(0).([]*models.Product)
	}

	return products, args.Int(1), args.Error(2)
}

func (m *CatalogRepository) UpdateProductStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

func (m *CatalogRepository) UpdateVariantPrice(ctx context.Context, variantID uuid.UUID, newSellingPrice int64) (*repository.PriceUpdateOutcome, error) {
	args := m.Called(ctx, variantID, newSellingPrice)

	var outcome *repository.PriceUpdateOutcome
	if args.Get(0) != nil {
		outcome = args.Get(0).(*repository.PriceUpdateOutcome)
	}

	return outcome, args.Error(1)
}

func (m *CatalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *CatalogRepository) DepleteOption(ctx context.Context, optionID uuid.UUID) (*repository.DepletionOutcome, error) {
	args := m.Called(ctx, optionID)

	var outcome *repository.DepletionOutcome
	if args.Get(0) != nil {
		outcome = args.Get(0).(*repository.DepletionOutcome)
	}

	return outcome, args.Error(1)
}

func (m *CatalogRepository) ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]*models.PriceHistory, error) {
	args := m.Called(ctx, productID)

	var entries []*models.PriceHistory
	if args.Get(0) != nil {
		entries = args.Get(0).([]*models.PriceHistory)
	}

	return entries, args.Error(1)
}
