package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	appErrors "github.com/stylepick/catalog-core/internal/errors"
	"github.com/stylepick/catalog-core/internal/metrics"
	"github.com/stylepick/catalog-core/internal/models"
	"github.com/stylepick/catalog-core/internal/pricing"
	"github.com/stylepick/catalog-core/internal/stylecode"
)

// ImportService turns spreadsheet-shaped rows into catalog products with
// partial-failure semantics: one bad candidate never aborts the batch.
type ImportService interface {
	ParseRows(ctx context.Context, rows []map[string]string) *models.ImportPreview
	Commit(ctx context.Context, candidates []*models.ImportCandidate) *models.ImportResult
}

type importService struct {
	catalog CatalogService
	logger  *slog.Logger
}

func NewImportService(catalog CatalogService, logger *slog.Logger) ImportService {
	return &importService{
		catalog: catalog,
		logger:  logger,
	}
}

// Canonical row fields.
const (
	fieldName         = "name"
	fieldYear         = "year"
	fieldSeason       = "season"
	fieldCategory     = "category"
	fieldColorCode    = "color_code"
	fieldColorName    = "color_name"
	fieldSize         = "size"
	fieldTagPrice     = "tag_price"
	fieldSellingPrice = "selling_price"
	fieldCostPrice    = "cost_price"
	fieldDescription  = "description"
)

// headerAliases maps normalized header spellings (Korean and English
// variants) to canonical fields.
var headerAliases = map[string]string{
	"name":         fieldName,
	"productname":  fieldName,
	"상품명":          fieldName,
	"제품명":          fieldName,
	"year":         fieldYear,
	"연도":           fieldYear,
	"년도":           fieldYear,
	"season":       fieldSeason,
	"시즌":           fieldSeason,
	"category":     fieldCategory,
	"categorycode": fieldCategory,
	"카테고리":         fieldCategory,
	"카테고리코드":       fieldCategory,
	"color":        fieldColorCode,
	"colorcode":    fieldColorCode,
	"컬러":           fieldColorCode,
	"컬러코드":         fieldColorCode,
	"색상코드":         fieldColorCode,
	"colorname":    fieldColorName,
	"컬러명":          fieldColorName,
	"색상":           fieldColorName,
	"색상명":          fieldColorName,
	"size":         fieldSize,
	"sizes":        fieldSize,
	"사이즈":          fieldSize,
	"tagprice":     fieldTagPrice,
	"listprice":    fieldTagPrice,
	"정상가":          fieldTagPrice,
	"태그가":          fieldTagPrice,
	"sellingprice": fieldSellingPrice,
	"price":        fieldSellingPrice,
	"판매가":          fieldSellingPrice,
	"costprice":    fieldCostPrice,
	"cost":         fieldCostPrice,
	"원가":           fieldCostPrice,
	"description":  fieldDescription,
	"설명":           fieldDescription,
	"상세설명":         fieldDescription,
}

// normalizeHeader folds a raw column header for tolerant matching: NFKC
// (spreadsheets love full-width characters), lower case, separator
// characters dropped.
func normalizeHeader(header string) string {
	folded := strings.ToLower(norm.NFKC.String(strings.TrimSpace(header)))

	var b strings.Builder

	for _, r := range folded {
		switch r {
		case ' ', '\t', '_', '-', '(', ')', '.':
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

// canonicalRow maps one raw row into the canonical shape. rowNumber is
// 1-based over the input data rows.
func canonicalRow(rowNumber int, raw map[string]string) models.ImportRow {
	row := models.ImportRow{Index: rowNumber}

	for header, value := range raw {
		value = strings.TrimSpace(value)

		switch headerAliases[normalizeHeader(header)] {
		case fieldName:
			row.Name = value
		case fieldYear:
			row.Year = value
		case fieldSeason:
			row.Season = value
		case fieldCategory:
			row.CategoryCode = value
		case fieldColorCode:
			row.ColorCode = value
		case fieldColorName:
			row.ColorName = value
		case fieldSize:
			row.Size = value
		case fieldTagPrice:
			row.TagPrice = value
		case fieldSellingPrice:
			row.SellingPrice = value
		case fieldCostPrice:
			row.CostPrice = value
		case fieldDescription:
			row.Description = value
		}
	}

	return row
}

func splitSizes(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '/' || r == ';' || r == ' '
	})
}

// ParseRows normalizes headers, groups rows into candidate products by
// (name, year, season, category) and colors into candidate variants, and
// validates every group independently. Errored candidates stay in the
// preview so callers can inspect exactly what failed before committing.
func (s *importService) ParseRows(ctx context.Context, rows []map[string]string) *models.ImportPreview {
	preview := &models.ImportPreview{TotalRows: len(rows)}

	type group struct {
		rows []models.ImportRow
	}

	var order []string

	groups := make(map[string]*group)

	for i, raw := range rows {
		row := canonicalRow(i+1, raw)

		// Group on the canonical season so "SS" and "SPRING_SUMMER" rows
		// land in one candidate instead of colliding at commit.
		seasonKey := row.Season
		if season, ok := models.ParseSeason(row.Season); ok {
			seasonKey = string(season)
		}

		key := strings.Join([]string{row.Name, row.Year, seasonKey, row.CategoryCode}, "\x1f")

		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}

		g.rows = append(g.rows, row)
	}

	for _, key := range order {
		preview.Candidates = append(preview.Candidates, s.buildCandidate(groups[key].rows))
	}

	s.logger.Info("import rows parsed",
		slog.Int("rows", len(rows)),
		slog.Int("candidates", len(preview.Candidates)))

	return preview
}

func (s *importService) buildCandidate(rows []models.ImportRow) *models.ImportCandidate {
	candidate := &models.ImportCandidate{}
	base := rows[0]

	for _, row := range rows {
		candidate.Rows = append(candidate.Rows, row.Index)
	}

	addError := func(row int, field, message string) {
		candidate.Errors = append(candidate.Errors, models.RowError{Row: row, Field: field, Message: message})
	}

	req := models.CreateProductRequest{
		Name:         base.Name,
		CategoryCode: base.CategoryCode,
		Description:  base.Description,
	}

	if base.Name == "" {
		addError(base.Index, fieldName, "product name is required")
	}

	if base.CategoryCode == "" {
		addError(base.Index, fieldCategory, "category code is required")
	}

	if base.Year == "" {
		addError(base.Index, fieldYear, "year is required")
	} else if year, err := strconv.Atoi(base.Year); err != nil || year < 2000 || year > 2099 {
		addError(base.Index, fieldYear, fmt.Sprintf("invalid year '%s'", base.Year))
	} else {
		req.Year = year
	}

	if season, ok := models.ParseSeason(base.Season); ok {
		req.Season = season
	} else {
		addError(base.Index, fieldSeason, fmt.Sprintf("invalid season '%s'", base.Season))
	}

	if base.TagPrice == "" {
		addError(base.Index, fieldTagPrice, "tag price is required")
	} else if tag, err := strconv.ParseInt(base.TagPrice, 10, 64); err != nil || tag <= 0 {
		addError(base.Index, fieldTagPrice, fmt.Sprintf("invalid tag price '%s'", base.TagPrice))
	} else {
		req.TagPrice = tag
	}

	if base.CostPrice != "" {
		if cost, err := strconv.ParseInt(base.CostPrice, 10, 64); err != nil || cost < 0 {
			addError(base.Index, fieldCostPrice, fmt.Sprintf("invalid cost price '%s'", base.CostPrice))
		} else {
			req.CostPrice = cost
		}
	}

	variantIndex := make(map[string]int)

	for _, row := range rows {
		if row.ColorCode == "" {
			addError(row.Index, fieldColorCode, "color code is required")

			continue
		}

		var selling int64

		if row.SellingPrice == "" {
			addError(row.Index, fieldSellingPrice, "selling price is required")
		} else if parsed, err := strconv.ParseInt(row.SellingPrice, 10, 64); err != nil || parsed <= 0 {
			addError(row.Index, fieldSellingPrice, fmt.Sprintf("invalid selling price '%s'", row.SellingPrice))
		} else {
			selling = parsed
		}

		sizes := splitSizes(row.Size)
		if len(sizes) == 0 {
			addError(row.Index, fieldSize, "at least one size is required")
		}

		for _, size := range sizes {
			if _, err := stylecode.SizeFor(size); err != nil {
				addError(row.Index, fieldSize, fmt.Sprintf("unknown size code '%s'", size))
			}
		}

		idx, ok := variantIndex[row.ColorCode]
		if !ok {
			variantIndex[row.ColorCode] = len(req.Variants)
			req.Variants = append(req.Variants, models.CreateVariantInput{
				ColorCode:    row.ColorCode,
				ColorName:    row.ColorName,
				SellingPrice: selling,
				Sizes:        sizes,
			})

			if req.TagPrice > 0 && selling > 0 && pricing.IsOutlet(req.TagPrice, selling) {
				candidate.Warnings = append(candidate.Warnings,
					fmt.Sprintf("selling price %d for color %s will trigger outlet classification", selling, row.ColorCode))
			}

			continue
		}

		// Repeated color: merge size lists, keep the first selling price.
		variant := &req.Variants[idx]
		if selling > 0 && variant.SellingPrice > 0 && selling != variant.SellingPrice {
			candidate.Warnings = append(candidate.Warnings,
				fmt.Sprintf("conflicting selling prices for color %s, keeping %d", row.ColorCode, variant.SellingPrice))
		}

		for _, size := range sizes {
			seen := false

			for _, existing := range variant.Sizes {
				if existing == size {
					seen = true

					break
				}
			}

			if !seen {
				variant.Sizes = append(variant.Sizes, size)
			}
		}
	}

	if len(req.Variants) == 0 && len(candidate.Errors) == 0 {
		addError(base.Index, fieldColorCode, "no variants could be formed")
	}

	candidate.Request = req

	return candidate
}

// Commit creates every error-free candidate through the catalog service,
// one transaction per candidate. A failed candidate is recorded with its
// first row index and skipped; subsequent candidates still commit.
func (s *importService) Commit(ctx context.Context, candidates []*models.ImportCandidate) *models.ImportResult {
	result := &models.ImportResult{}

	for _, candidate := range candidates {
		firstRow := 0
		if len(candidate.Rows) > 0 {
			firstRow = candidate.Rows[0]
		}

		if candidate.HasErrors() {
			result.Failed++
			result.Errors = append(result.Errors, candidate.Errors...)
			metrics.ImportRows.WithLabelValues(metrics.ImportResultSkipped).Inc()

			continue
		}

		if _, err := s.catalog.CreateProduct(ctx, &candidate.Request); err != nil {
			result.Failed++

			message := err.Error()
			if appErr, ok := appErrors.IsAppError(err); ok && appErr.Detail != "" {
				message = message + ": " + appErr.Detail
			}

			result.Errors = append(result.Errors, models.RowError{Row: firstRow, Message: message})
			metrics.ImportRows.WithLabelValues(metrics.ImportResultFailed).Inc()
			s.logger.Warn("import candidate failed",
				slog.Int("row", firstRow),
				slog.String("name", candidate.Request.Name),
				slog.String("error", message))

			continue
		}

		result.Success++

		metrics.ImportRows.WithLabelValues(metrics.ImportResultCommitted).Inc()
	}

	s.logger.Info("import committed",
		slog.Int("success", result.Success),
		slog.Int("failed", result.Failed))

	return result
}
