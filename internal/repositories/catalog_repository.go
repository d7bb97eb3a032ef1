package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/stylepick/catalog-core/internal/errors"
	"github.com/stylepick/catalog-core/internal/models"
	"github.com/stylepick/catalog-core/internal/pricing"
	"github.com/stylepick/catalog-core/internal/stylecode"
	"github.com/stylepick/catalog-core/internal/utils"
)

const (
	styleCodeConstraint = "products_style_code_key"

	initialTagPriceReason  = "initial registration"
	sellingChangeReason    = "selling-price change"
	outletConversionReason = "outlet conversion"
)

// PriceUpdateOutcome reports what a variant price change did to the
// hierarchy.
type PriceUpdateOutcome struct {
	ProductID     uuid.UUID
	PreviousPrice int64
	NewPrice      int64
	DiscountRate  int
	Reason        string
	OutletChanged bool
}

// DepletionOutcome reports what a depletion signal changed. AlreadySoldOut
// means the signal was a duplicate and nothing was written.
type DepletionOutcome struct {
	OptionID             uuid.UUID
	ProductID            uuid.UUID
	AlreadySoldOut       bool
	VariantActiveCount   int
	ProductActiveCount   int
	ProductMarkedSoldOut bool
}

// CatalogRepository owns every multi-row mutation of the style hierarchy.
// Each method is one transaction: callers observe either the fully-updated
// hierarchy or none of it. Style-code serial reads live inside the insert
// transaction; a lost race on the style_code unique constraint surfaces as
// TRANSACTION_CONFLICT for the service to retry.
type CatalogRepository interface {
	CreateProductHierarchy(ctx context.Context, req *models.CreateProductRequest, category *models.Category) (*models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, int, error)
	UpdateProductStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error
	UpdateVariantPrice(ctx context.Context, variantID uuid.UUID, newSellingPrice int64) (*PriceUpdateOutcome, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	DepleteOption(ctx context.Context, optionID uuid.UUID) (*DepletionOutcome, error)
	ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]*models.PriceHistory, error)
}

type catalogRepository struct {
	DB *sql.DB
}

func NewCatalogRepo(db *sql.DB) CatalogRepository {
	return &catalogRepository{DB: db}
}

func (r *catalogRepository) execTx(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	txCtx, cancel := utils.WithTxTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(txCtx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(txCtx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rolling back transaction: %v (original error: %w)", rbErr, err)
		}

		return err
	}

	return tx.Commit()
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error

	if !errors.As(err, &pqErr) {
		return false
	}

	return pqErr.Code == "23505" && (constraint == "" || pqErr.Constraint == constraint)
}

func (r *catalogRepository) CreateProductHierarchy(ctx context.Context, req *models.CreateProductRequest, category *models.Category) (*models.Product, error) {
	product := &models.Product{
		Name:        req.Name,
		Year:        req.Year,
		Season:      req.Season,
		CategoryID:  category.ID,
		TagPrice:    req.TagPrice,
		CostPrice:   req.CostPrice,
		Status:      models.ProductStatusDraft,
		Description: req.Description,
		Category:    category,
	}

	err := r.execTx(ctx, func(txCtx context.Context, tx *sql.Tx) error {
		prefix := stylecode.Prefix(req.Year, req.Season, category.Code)

		var maxCode string

		// Anchored match: a LIKE prefix scan would pull category JK codes
		// into category J's serial space (and treat '_' in a category code
		// as a wildcard).
		maxQuery := `SELECT COALESCE(MAX(style_code), '') FROM products WHERE style_code ~ $1`
		if err := tx.QueryRowContext(txCtx, maxQuery, stylecode.SerialPattern(prefix)).Scan(&maxCode); err != nil {
			return fmt.Errorf("querying max style code: %w", err)
		}

		styleCode, err := stylecode.Next(prefix, maxCode)
		if err != nil {
			return err
		}

		product.StyleCode = styleCode
		product.IsOutlet = pricing.IsOutlet(req.TagPrice, req.MinSellingPrice())

		insertProduct := `INSERT INTO products (style_code, name, year, season, category_id, tag_price, cost_price, is_outlet, status, description)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				  RETURNING id, created_at, updated_at`

		err = tx.QueryRowContext(txCtx, insertProduct,
			product.StyleCode, product.Name, product.Year, product.Season, product.CategoryID,
			product.TagPrice, product.CostPrice, product.IsOutlet, product.Status, product.Description).
			Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting product: %w", err)
		}

		for _, input := range req.Variants {
			variant := &models.Variant{
				ProductID:    product.ID,
				ColorCode:    input.ColorCode,
				ColorName:    input.ColorName,
				SellingPrice: input.SellingPrice,
				DiscountRate: pricing.DiscountRate(req.TagPrice, input.SellingPrice),
			}

			insertVariant := `INSERT INTO variants (product_id, color_code, color_name, selling_price, discount_rate)
				  VALUES ($1, $2, $3, $4, $5)
				  RETURNING id, created_at, updated_at`

			err = tx.QueryRowContext(txCtx, insertVariant,
				variant.ProductID, variant.ColorCode, variant.ColorName, variant.SellingPrice, variant.DiscountRate).
				Scan(&variant.ID, &variant.CreatedAt, &variant.UpdatedAt)
			if err != nil {
				return fmt.Errorf("inserting variant %s: %w", input.ColorCode, err)
			}

			for _, size := range input.Sizes {
				entry, err := stylecode.SizeFor(size)
				if err != nil {
					return err
				}

				option := &models.Option{
					VariantID:   variant.ID,
					SKUCode:     stylecode.SKUCode(product.StyleCode, variant.ColorCode, entry.Suffix),
					SizeCode:    entry.Code,
					SizeLabel:   entry.Label,
					SizeSuffix:  entry.Suffix,
					SizeOrdinal: entry.Ordinal,
					Status:      models.OptionStatusActive,
				}

				insertOption := `INSERT INTO options (variant_id, sku_code, size_code, size_label, size_suffix, size_ordinal, status)
				  VALUES ($1, $2, $3, $4, $5, $6, $7)
				  RETURNING id, created_at, updated_at`

				err = tx.QueryRowContext(txCtx, insertOption,
					option.VariantID, option.SKUCode, option.SizeCode, option.SizeLabel, option.SizeSuffix, option.SizeOrdinal, option.Status).
					Scan(&option.ID, &option.CreatedAt, &option.UpdatedAt)
				if err != nil {
					return fmt.Errorf("inserting option %s: %w", option.SKUCode, err)
				}

				variant.Options = append(variant.Options, option)
			}

			product.Variants = append(product.Variants, variant)
		}

		insertHistory := `INSERT INTO price_histories (product_id, change_type, previous_price, new_price, reason)
				  VALUES ($1, $2, $3, $4, $5)`

		_, err = tx.ExecContext(txCtx, insertHistory,
			product.ID, models.PriceChangeTag, 0, product.TagPrice, initialTagPriceReason)
		if err != nil {
			return fmt.Errorf("inserting price history: %w", err)
		}

		return nil
	})
	if err != nil {
		if isUniqueViolation(err, styleCodeConstraint) {
			return nil, appErrors.TransactionConflictError("Style code allocation lost a concurrent race").WithError(err)
		}

		return nil, err
	}

	return product, nil
}

func (r *catalogRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	product := &models.Product{}
	category := &models.Category{}

	productQuery := `
        SELECT p.id, p.style_code, p.name, p.year, p.season, p.category_id,
               p.tag_price, p.cost_price, p.is_outlet, p.status, p.description,
               p.created_at, p.updated_at,
               c.id, c.code, c.name
        FROM products p
        JOIN categories c ON p.category_id = c.id
        WHERE p.id = $1`

	err := r.DB.QueryRowContext(dbCtx, productQuery, id).Scan(
		&product.ID, &product.StyleCode, &product.Name, &product.Year, &product.Season, &product.CategoryID,
		&product.TagPrice, &product.CostPrice, &product.IsOutlet, &product.Status, &product.Description,
		&product.CreatedAt, &product.UpdatedAt,
		&category.ID, &category.Code, &category.Name)
	if err != nil {
		return nil, err
	}

	product.Category = category

	variantQuery := `
		SELECT id, product_id, color_code, color_name, selling_price, discount_rate, created_at, updated_at
		FROM variants
		WHERE product_id = $1
		ORDER BY color_code`

	rows, err := r.DB.QueryContext(dbCtx, variantQuery, id)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	variantsByID := make(map[uuid.UUID]*models.Variant)

	for rows.Next() {
		variant := &models.Variant{}

		err := rows.Scan(&variant.ID, &variant.ProductID, &variant.ColorCode, &variant.ColorName,
			&variant.SellingPrice, &variant.DiscountRate, &variant.CreatedAt, &variant.UpdatedAt)
		if err != nil {
			return nil, err
		}

		variantsByID[variant.ID] = variant
		product.Variants = append(product.Variants, variant)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	optionQuery := `
		SELECT o.id, o.variant_id, o.sku_code, o.size_code, o.size_label, o.size_suffix, o.size_ordinal, o.status, o.created_at, o.updated_at
		FROM options o
		JOIN variants v ON o.variant_id = v.id
		WHERE v.product_id = $1
		ORDER BY o.size_ordinal`

	optionRows, err := r.DB.QueryContext(dbCtx, optionQuery, id)
	if err != nil {
		return nil, err
	}

	defer optionRows.Close()

	for optionRows.Next() {
		option := &models.Option{}

		err := optionRows.Scan(&option.ID, &option.VariantID, &option.SKUCode, &option.SizeCode,
			&option.SizeLabel, &option.SizeSuffix, &option.SizeOrdinal, &option.Status, &option.CreatedAt, &option.UpdatedAt)
		if err != nil {
			return nil, err
		}

		if variant, ok := variantsByID[option.VariantID]; ok {
			variant.Options = append(variant.Options, option)
		}
	}

	if err := optionRows.Err(); err != nil {
		return nil, err
	}

	return product, nil
}

func (r *catalogRepository) ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	conditions := sq.And{}

	if filter.Status != nil {
		conditions = append(conditions, sq.Eq{"p.status": *filter.Status})
	}

	if filter.Season != nil {
		conditions = append(conditions, sq.Eq{"p.season": *filter.Season})
	}

	if filter.Year != nil {
		conditions = append(conditions, sq.Eq{"p.year": *filter.Year})
	}

	if filter.CategoryCode != nil {
		conditions = append(conditions, sq.Eq{"c.code": *filter.CategoryCode})
	}

	if filter.Outlet != nil {
		conditions = append(conditions, sq.Eq{"p.is_outlet": *filter.Outlet})
	}

	countBuilder := builder.
		Select("COUNT(*)").
		From("products p").
		Join("categories c ON p.category_id = c.id")

	if len(conditions) > 0 {
		countBuilder = countBuilder.Where(conditions)
	}

	var total int

	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building count query: %w", err)
	}

	if err := r.DB.QueryRowContext(dbCtx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}

	size := filter.PageSize
	if size < 1 {
		size = 20
	}

	listBuilder := builder.
		Select("p.id", "p.style_code", "p.name", "p.year", "p.season", "p.category_id",
			"p.tag_price", "p.cost_price", "p.is_outlet", "p.status", "p.description",
			"p.created_at", "p.updated_at",
			"c.id", "c.code", "c.name").
		From("products p").
		Join("categories c ON p.category_id = c.id").
		OrderBy("p.style_code").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size))

	if len(conditions) > 0 {
		listBuilder = listBuilder.Where(conditions)
	}

	listQuery, listArgs, err := listBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building list query: %w", err)
	}

	rows, err := r.DB.QueryContext(dbCtx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	var products []*models.Product

	for rows.Next() {
		product := &models.Product{}
		category := &models.Category{}

		err := rows.Scan(
			&product.ID, &product.StyleCode, &product.Name, &product.Year, &product.Season, &product.CategoryID,
			&product.TagPrice, &product.CostPrice, &product.IsOutlet, &product.Status, &product.Description,
			&product.CreatedAt, &product.UpdatedAt,
			&category.ID, &category.Code, &category.Name)
		if err != nil {
			return nil, 0, err
		}

		product.Category = category
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *catalogRepository) UpdateProductStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `UPDATE products SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`

	var updatedAt sql.NullTime

	return r.DB.QueryRowContext(dbCtx, query, status, id).Scan(&updatedAt)
}

// UpdateVariantPrice recomputes the discount rate, appends the audit entry
// and re-derives the product outlet flag from the minimum selling price
// across all variants, all in one transaction.
func (r *catalogRepository) UpdateVariantPrice(ctx context.Context, variantID uuid.UUID, newSellingPrice int64) (*PriceUpdateOutcome, error) {
	outcome := &PriceUpdateOutcome{NewPrice: newSellingPrice}

	err := r.execTx(ctx, func(txCtx context.Context, tx *sql.Tx) error {
		var (
			tagPrice  int64
			wasOutlet bool
		)

		// Lock the variant and its product row so concurrent price updates
		// on sibling variants serialize against the outlet re-scan.
		lockQuery := `
		SELECT v.product_id, v.selling_price, p.tag_price, p.is_outlet
		FROM variants v
		JOIN products p ON v.product_id = p.id
		WHERE v.id = $1
		FOR UPDATE OF v, p`

		err := tx.QueryRowContext(txCtx, lockQuery, variantID).Scan(&outcome.ProductID, &outcome.PreviousPrice, &tagPrice, &wasOutlet)
		if err != nil {
			return err
		}

		outcome.DiscountRate = pricing.DiscountRate(tagPrice, newSellingPrice)

		updateVariant := `UPDATE variants SET selling_price = $1, discount_rate = $2, updated_at = NOW() WHERE id = $3`
		if _, err := tx.ExecContext(txCtx, updateVariant, newSellingPrice, outcome.DiscountRate, variantID); err != nil {
			return fmt.Errorf("updating variant price: %w", err)
		}

		outcome.Reason = sellingChangeReason
		if pricing.IsOutlet(tagPrice, newSellingPrice) != pricing.IsOutlet(tagPrice, outcome.PreviousPrice) {
			outcome.Reason = outletConversionReason
		}

		insertHistory := `INSERT INTO price_histories (product_id, change_type, previous_price, new_price, reason)
				  VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(txCtx, insertHistory, outcome.ProductID, models.PriceChangeSelling, outcome.PreviousPrice, newSellingPrice, outcome.Reason); err != nil {
			return fmt.Errorf("inserting price history: %w", err)
		}

		// Outlet eligibility is a product-level aggregate: re-scan the
		// current minimum across all variants, not just the one changed.
		var minSelling int64

		minQuery := `SELECT MIN(selling_price) FROM variants WHERE product_id = $1`
		if err := tx.QueryRowContext(txCtx, minQuery, outcome.ProductID).Scan(&minSelling); err != nil {
			return fmt.Errorf("scanning min selling price: %w", err)
		}

		nowOutlet := pricing.IsOutlet(tagPrice, minSelling)
		if nowOutlet != wasOutlet {
			updateProduct := `UPDATE products SET is_outlet = $1, updated_at = NOW() WHERE id = $2`
			if _, err := tx.ExecContext(txCtx, updateProduct, nowOutlet, outcome.ProductID); err != nil {
				return fmt.Errorf("updating product outlet flag: %w", err)
			}

			outcome.OutletChanged = true
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

func (r *catalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	// Variants and options go with the product via ON DELETE CASCADE.
	result, err := r.DB.ExecContext(dbCtx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// DepleteOption marks one option SOLD_OUT and promotes the product to
// SOLD_OUT only when no ACTIVE option remains anywhere under it. Duplicate
// signals for an already-SOLD_OUT option are a no-op.
func (r *catalogRepository) DepleteOption(ctx context.Context, optionID uuid.UUID) (*DepletionOutcome, error) {
	outcome := &DepletionOutcome{OptionID: optionID}

	err := r.execTx(ctx, func(txCtx context.Context, tx *sql.Tx) error {
		var (
			status    models.OptionStatus
			variantID uuid.UUID
		)

		// The product row lock serializes concurrent depletions of sibling
		// options, so the ACTIVE counts below cannot race each other.
		lockQuery := `
		SELECT o.status, o.variant_id, v.product_id
		FROM options o
		JOIN variants v ON o.variant_id = v.id
		JOIN products p ON v.product_id = p.id
		WHERE o.id = $1
		FOR UPDATE OF o, p`

		err := tx.QueryRowContext(txCtx, lockQuery, optionID).Scan(&status, &variantID, &outcome.ProductID)
		if err != nil {
			return err
		}

		if status == models.OptionStatusSoldOut {
			outcome.AlreadySoldOut = true

			return nil
		}

		updateOption := `UPDATE options SET status = $1, updated_at = NOW() WHERE id = $2`
		if _, err := tx.ExecContext(txCtx, updateOption, models.OptionStatusSoldOut, optionID); err != nil {
			return fmt.Errorf("marking option sold out: %w", err)
		}

		// Variant status is derived, never stored; the count is reported
		// for observability only.
		variantCountQuery := `SELECT COUNT(*) FROM options WHERE variant_id = $1 AND status = $2`
		if err := tx.QueryRowContext(txCtx, variantCountQuery, variantID, models.OptionStatusActive).Scan(&outcome.VariantActiveCount); err != nil {
			return fmt.Errorf("counting active options for variant: %w", err)
		}

		productCountQuery := `
		SELECT COUNT(*)
		FROM options o
		JOIN variants v ON o.variant_id = v.id
		WHERE v.product_id = $1 AND o.status = $2`
		if err := tx.QueryRowContext(txCtx, productCountQuery, outcome.ProductID, models.OptionStatusActive).Scan(&outcome.ProductActiveCount); err != nil {
			return fmt.Errorf("counting active options for product: %w", err)
		}

		if outcome.ProductActiveCount == 0 {
			updateProduct := `UPDATE products SET status = $1, updated_at = NOW() WHERE id = $2`
			if _, err := tx.ExecContext(txCtx, updateProduct, models.ProductStatusSoldOut, outcome.ProductID); err != nil {
				return fmt.Errorf("marking product sold out: %w", err)
			}

			outcome.ProductMarkedSoldOut = true
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

func (r *catalogRepository) ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]*models.PriceHistory, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, product_id, change_type, previous_price, new_price, reason, created_at
		FROM price_histories
		WHERE product_id = $1
		ORDER BY created_at`

	rows, err := r.DB.QueryContext(dbCtx, query, productID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var entries []*models.PriceHistory

	for rows.Next() {
		entry := &models.PriceHistory{}

		err := rows.Scan(&entry.ID, &entry.ProductID, &entry.ChangeType, &entry.PreviousPrice, &entry.NewPrice, &entry.Reason, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
