package domain

import (
	"time"
)

type StockStatus string

const (
	StockAvailable StockStatus = "available"
	StockLow       StockStatus = "low_stock"
	StockOut       StockStatus = "out_of_stock"
)

// StockStatusFor derives the status tier from a quantity and the
// configured minimum level: zero is out of stock, at or below the
// minimum is low stock.
func StockStatusFor(qty, minLevel int) StockStatus {
	switch {
	case qty == 0:
		return StockOut
	case qty <= minLevel:
		return StockLow
	default:
		return StockAvailable
	}
}

type Product struct {
	ID            string           `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string           `gorm:"size:180;not null" json:"name"`
	Slug          string           `gorm:"uniqueIndex;size:140;not null" json:"slug"`
	Description   string           `gorm:"type:text" json:"description"`
	Price         int64            `gorm:"not null" json:"price"`
	CategoryID    string           `gorm:"type:uuid;index" json:"category_id"`
	Category      *Category        `json:"category,omitempty"`
	Condition     string           `gorm:"size:40" json:"condition"`
	Featured      bool             `gorm:"default:false;index" json:"featured"`
	Gender        string           `gorm:"size:20" json:"gender,omitempty"`
	Sizes         []string         `gorm:"type:jsonb;serializer:json" json:"sizes"`
	Tags          []string         `gorm:"type:jsonb;serializer:json" json:"tags"`
	Images        []ProductImage   `json:"images"`
	Variants      []ProductVariant `json:"variants"`
	Active        bool             `gorm:"column:is_active;default:true;index" json:"is_active"`
	StockQuantity int              `gorm:"default:0" json:"stock_quantity"`
	StockStatus   StockStatus      `gorm:"size:20;default:available" json:"stock_status"`
	MinStockLevel int              `gorm:"default:1" json:"min_stock_level"`
	MaxStockLevel int              `gorm:"default:100" json:"max_stock_level"`
	SKU           string           `gorm:"size:100" json:"sku,omitempty"`
	WeightGrams   int              `gorm:"default:0" json:"weight_grams,omitempty"`
	Dimensions    string           `gorm:"size:100" json:"dimensions,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// CategoryName prefers the joined category record and falls back to
// whatever slug the product carries, so both sources render the same way.
func (p *Product) CategoryName() string {
	if p.Category != nil && p.Category.Name != "" {
		return p.Category.Name
	}
	return p.CategorySlug()
}

func (p *Product) CategorySlug() string {
	if p.Category != nil && p.Category.Slug != "" {
		return p.Category.Slug
	}
	return p.CategoryID
}

// AllSizes returns variant sizes when variant records exist, otherwise
// the static sizes list.
func (p *Product) AllSizes() []string {
	if len(p.Variants) > 0 {
		out := make([]string, 0, len(p.Variants))
		for _, v := range p.Variants {
			out = append(out, v.Size)
		}
		return out
	}
	return p.Sizes
}

type ProductImage struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID string    `gorm:"type:uuid;index" json:"-"`
	URL       string    `gorm:"column:image_url;size:255" json:"url"`
	Alt       string    `gorm:"column:alt_text;size:140" json:"alt"`
	Primary   bool      `gorm:"column:is_primary;default:false" json:"primary"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time `json:"-"`
}

type ProductVariant struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID     string    `gorm:"type:uuid;index" json:"-"`
	Size          string    `gorm:"size:30" json:"size"`
	StockQuantity int       `gorm:"default:0" json:"stock_quantity"`
	Available     bool      `gorm:"column:is_available;default:true" json:"is_available"`
	CreatedAt     time.Time `json:"-"`
}

// ProductFilter predicates are ANDed; nil/empty fields are no-ops.
type ProductFilter struct {
	Category  string
	MinPrice  *int64
	MaxPrice  *int64
	Condition string
	Sizes     []string
	Tags      []string
	Gender    string
}

// ProductUpdate is a partial field replacement; nil fields are left
// untouched. The slug is re-derived only when Name is set.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *int64
	CategoryID  *string
	Condition   *string
	Featured    *bool
	Tags        []string
	Sizes       []string
}

type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type ProductStats struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"byCategory"`
	PriceRange *PriceRange    `json:"priceRange"`
	Conditions []string       `json:"conditions"`
	Sizes      []string       `json:"sizes"`
}

type Page struct {
	Products    []Product `json:"products"`
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
	TotalItems  int       `json:"totalItems"`
}
