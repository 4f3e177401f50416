// Package staticjson serves the catalog from records bundled into the
// binary. It is the fallback source used whenever no database is
// configured or a remote query fails, and it is read-only.
package staticjson

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/suroccidente/storefront/internal/domain"
	"github.com/suroccidente/storefront/internal/usecase"
)

//go:embed data/*.json
var dataFS embed.FS

type Source struct {
	products   []domain.Product
	categories []domain.Category
	site       domain.SiteConfig
}

// staticProduct is the on-disk shape: category is a slug, resolved to a
// category record at load time so products come out in the same shape
// the remote source produces.
type staticProduct struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Slug          string                `json:"slug"`
	Description   string                `json:"description"`
	Price         int64                 `json:"price"`
	Category      string                `json:"category"`
	Condition     string                `json:"condition"`
	Featured      bool                  `json:"featured"`
	Gender        string                `json:"gender"`
	Images        []domain.ProductImage `json:"images"`
	Sizes         []string              `json:"sizes"`
	Tags          []string              `json:"tags"`
	Active        bool                  `json:"is_active"`
	StockQuantity int                   `json:"stock_quantity"`
	StockStatus   domain.StockStatus    `json:"stock_status"`
	MinStockLevel int                   `json:"min_stock_level"`
	MaxStockLevel int                   `json:"max_stock_level"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func New() (*Source, error) {
	var cats struct {
		Categories []domain.Category `json:"categories"`
	}
	if err := loadJSON("data/categories.json", &cats); err != nil {
		return nil, err
	}
	sort.SliceStable(cats.Categories, func(i, j int) bool {
		return cats.Categories[i].SortOrder < cats.Categories[j].SortOrder
	})

	bySlug := make(map[string]*domain.Category, len(cats.Categories))
	for i := range cats.Categories {
		bySlug[cats.Categories[i].Slug] = &cats.Categories[i]
	}

	var prods struct {
		Products []staticProduct `json:"products"`
	}
	if err := loadJSON("data/products.json", &prods); err != nil {
		return nil, err
	}

	s := &Source{categories: cats.Categories}
	for _, sp := range prods.Products {
		if !sp.Active {
			continue
		}
		p := domain.Product{
			ID:            sp.ID,
			Name:          sp.Name,
			Slug:          sp.Slug,
			Description:   sp.Description,
			Price:         sp.Price,
			Condition:     sp.Condition,
			Featured:      sp.Featured,
			Gender:        sp.Gender,
			Images:        sp.Images,
			Sizes:         sp.Sizes,
			Tags:          sp.Tags,
			Active:        true,
			StockQuantity: sp.StockQuantity,
			StockStatus:   sp.StockStatus,
			MinStockLevel: sp.MinStockLevel,
			MaxStockLevel: sp.MaxStockLevel,
			CreatedAt:     sp.CreatedAt,
			UpdatedAt:     sp.UpdatedAt,
		}
		if p.StockStatus == "" {
			p.StockStatus = domain.StockStatusFor(p.StockQuantity, p.MinStockLevel)
		}
		if cat, ok := bySlug[sp.Category]; ok {
			p.Category = cat
			p.CategoryID = cat.ID
		} else {
			p.CategoryID = sp.Category
		}
		s.products = append(s.products, p)
	}

	var site struct {
		Site domain.SiteConfig `json:"site"`
	}
	if err := loadJSON("data/site-config.json", &site); err != nil {
		return nil, err
	}
	s.site = site.Site
	return s, nil
}

func loadJSON(name string, v any) error {
	b, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("static catalog: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("static catalog %s: %w", name, err)
	}
	return nil
}

func (s *Source) SiteConfig() domain.SiteConfig { return s.site }

func (s *Source) Products(ctx context.Context) ([]domain.Product, error) {
	return s.products, nil
}

func (s *Source) FeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	for _, p := range s.products {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Source) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Source) ProductsByCategory(ctx context.Context, categorySlug string) ([]domain.Product, error) {
	out := []domain.Product{}
	for _, p := range s.products {
		if p.CategorySlug() == categorySlug {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Source) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return usecase.SearchProducts(s.products, query), nil
}

func (s *Source) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.categories, nil
}

func (s *Source) CategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	for i := range s.categories {
		if s.categories[i].Slug == slug {
			return &s.categories[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Source) CategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	for i := range s.categories {
		if s.categories[i].ID == id {
			return &s.categories[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Source) RelatedProducts(ctx context.Context, p *domain.Product, limit int) ([]domain.Product, error) {
	return usecase.RelatedProducts(s.products, p, limit), nil
}
