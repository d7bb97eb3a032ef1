package models

import (
	"time"

	"github.com/google/uuid"
)

type Season string

const (
	SeasonSpringSummer Season = "SPRING_SUMMER"
	SeasonFallWinter   Season = "FALL_WINTER"
)

// Code returns the two-letter season token embedded in style codes.
func (s Season) Code() string {
	if s == SeasonFallWinter {
		return "FW"
	}

	return "SS"
}

func (s Season) Valid() bool {
	return s == SeasonSpringSummer || s == SeasonFallWinter
}

// ParseSeason accepts both the enum names and the short style-code tokens.
func ParseSeason(value string) (Season, bool) {
	switch value {
	case "SPRING_SUMMER", "SS", "S/S":
		return SeasonSpringSummer, true
	case "FALL_WINTER", "FW", "F/W":
		return SeasonFallWinter, true
	default:
		return "", false
	}
}

type ProductStatus string

const (
	ProductStatusDraft        ProductStatus = "DRAFT"
	ProductStatusActive       ProductStatus = "ACTIVE"
	ProductStatusSoldOut      ProductStatus = "SOLD_OUT"
	ProductStatusDiscontinued ProductStatus = "DISCONTINUED"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusSoldOut, ProductStatusDiscontinued:
		return true
	default:
		return false
	}
}

type OptionStatus string

const (
	OptionStatusActive  OptionStatus = "ACTIVE"
	OptionStatusSoldOut OptionStatus = "SOLD_OUT"
)

type PriceChangeType string

const (
	PriceChangeTag     PriceChangeType = "TAG_PRICE"
	PriceChangeSelling PriceChangeType = "SELLING_PRICE"
)

type Category struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is one designed garment per year/season/category (a "style").
// StyleCode is assigned once at creation and never changes. Prices are
// integer won.
type Product struct {
	ID          uuid.UUID     `json:"id"`
	StyleCode   string        `json:"style_code"`
	Name        string        `json:"name"`
	Year        int           `json:"year"`
	Season      Season        `json:"season"`
	CategoryID  uuid.UUID     `json:"category_id"`
	TagPrice    int64         `json:"tag_price"`
	CostPrice   int64         `json:"cost_price"`
	IsOutlet    bool          `json:"is_outlet"`
	Status      ProductStatus `json:"status"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Category    *Category     `json:"category,omitempty"`
	Variants    []*Variant    `json:"variants,omitempty"`
}

// Variant is one color of a product. Its lifecycle status is never stored:
// it is derived from the options so it cannot drift from them.
type Variant struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	ColorCode    string    `json:"color_code"`
	ColorName    string    `json:"color_name"`
	SellingPrice int64     `json:"selling_price"`
	DiscountRate int       `json:"discount_rate"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Options      []*Option `json:"options,omitempty"`
}

// EffectiveStatus derives the variant status from its loaded options.
func (v *Variant) EffectiveStatus() OptionStatus {
	if len(v.Options) == 0 {
		return OptionStatusActive
	}

	for _, opt := range v.Options {
		if opt.Status == OptionStatusActive {
			return OptionStatusActive
		}
	}

	return OptionStatusSoldOut
}

// Option is one size of a variant, the smallest sellable unit. SKUCode is a
// pure function of (style code, color code, size) and can always be
// re-derived.
type Option struct {
	ID          uuid.UUID    `json:"id"`
	VariantID   uuid.UUID    `json:"variant_id"`
	SKUCode     string       `json:"sku_code"`
	SizeCode    string       `json:"size_code"`
	SizeLabel   string       `json:"size_label"`
	SizeSuffix  string       `json:"size_suffix"`
	SizeOrdinal int          `json:"size_ordinal"`
	Status      OptionStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PriceHistory is an append-only audit record; entries are never updated or
// deleted.
type PriceHistory struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	ChangeType    PriceChangeType `json:"change_type"`
	PreviousPrice int64           `json:"previous_price"`
	NewPrice      int64           `json:"new_price"`
	Reason        string          `json:"reason"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CreateVariantInput struct {
	ColorCode    string   `json:"color_code" validate:"required,min=1,max=10"`
	ColorName    string   `json:"color_name"`
	SellingPrice int64    `json:"selling_price" validate:"required,gt=0"`
	Sizes        []string `json:"sizes" validate:"required,min=1"`
}

type CreateProductRequest struct {
	Name         string               `json:"name" validate:"required,min=1,max=200"`
	Year         int                  `json:"year" validate:"required,gte=2000,lte=2099"`
	Season       Season               `json:"season" validate:"required,oneof=SPRING_SUMMER FALL_WINTER"`
	CategoryCode string               `json:"category_code" validate:"required"`
	TagPrice     int64                `json:"tag_price" validate:"required,gt=0"`
	CostPrice    int64                `json:"cost_price" validate:"gte=0"`
	Description  string               `json:"description"`
	Variants     []CreateVariantInput `json:"variants" validate:"required,min=1,dive"`
}

// MinSellingPrice returns the cheapest requested variant price. Outlet
// eligibility is a product-level aggregate over this minimum.
func (r *CreateProductRequest) MinSellingPrice() int64 {
	min := int64(0)
	for i, v := range r.Variants {
		if i == 0 || v.SellingPrice < min {
			min = v.SellingPrice
		}
	}

	return min
}

type ProductFilter struct {
	Status       *ProductStatus `json:"status,omitempty"`
	Season       *Season        `json:"season,omitempty"`
	Year         *int           `json:"year,omitempty"`
	CategoryCode *string        `json:"category_code,omitempty"`
	Outlet       *bool          `json:"outlet,omitempty"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
}
