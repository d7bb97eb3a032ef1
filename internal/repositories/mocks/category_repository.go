package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/stylepick/catalog-core/internal/models"
)

type CategoryRepository struct {
	mock.Mock
}

func (m *CategoryRepository) GetCategoryByCode(ctx context.Context, code string) (*models.Category, error) {
	args := m.Called(ctx, code)

	var category *models.Category
	if args.Get(0) != nil {
		category = args.Get(0).(*models.Category)
	}

	return category, args.Error(1)
}
