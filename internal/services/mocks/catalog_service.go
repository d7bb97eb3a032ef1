// Package mocks provides testify mocks for the service interfaces,
// consumed by the import pipeline tests.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/stylepick/catalog-core/internal/models"
)

type CatalogService struct {
	mock.Mock
}

func (m *CatalogService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, req)

	var product *models.Product
	if args.Get(0) != nil {
		product = args.Get(0).(*models.Product)
	}

	return product, args.Error(1)
}

func (m *CatalogService) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)

	var product *models.Product
	if args.Get(0) != nil {
		product = args.Get(0).(*models.Product)
	}

	return product, args.Error(1)
}

func (m *CatalogService) ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, int, error) {
	args := m.Called(ctx, filter)

	var products []*models.Product
	if args.Get(0) != nil {
		products = args.Get(0).([]*models.Product)
	}

	return products, args.Int(1), args.Error(2)
}

func (m *CatalogService) UpdateProductStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

func (m *CatalogService) UpdateVariantPrice(ctx context.Context, variantID uuid.UUID, newSellingPrice int64) (*models.Product, error) {
	args := m.Called(ctx, variantID, newSellingPrice)

	var product *models.Product
	if args.Get(0) != nil {
		product = args.Get(0).(*models.Product)
	}

	return product, args.Error(1)
}

func (m *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *CatalogService) ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]*models.PriceHistory, error) {
	args := m.Called(ctx, productID)

	var entries []*models.PriceHistory
	if args.Get(0) != nil {
		entries = args.Get(0).([]*models.PriceHistory)
	}

	return entries, args.Error(1)
}
