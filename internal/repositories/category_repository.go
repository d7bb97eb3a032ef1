package repository

import (
	"context"
	"database/sql"

	"github.com/stylepick/catalog-core/internal/models"
	"github.com/stylepick/catalog-core/internal/utils"
)

type CategoryRepository interface {
	GetCategoryByCode(ctx context.Context, code string) (*models.Category, error)
}

type categoryRepository struct {
	DB *sql.DB
}

func NewCategoryRepo(db *sql.DB) CategoryRepository {
	return &categoryRepository{DB: db}
}

func (r *categoryRepository) GetCategoryByCode(ctx context.Context, code string) (*models.Category, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	category := &models.Category{}

	query := `SELECT id, code, name, created_at FROM categories WHERE code = $1`

	err := r.DB.QueryRowContext(dbCtx, query, code).Scan(&category.ID, &category.Code, &category.Name, &category.CreatedAt)
	if err != nil {
		return nil, err
	}

	return category, nil
}
