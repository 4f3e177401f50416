package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/suroccidente/storefront/internal/domain"
	"github.com/suroccidente/storefront/internal/metrics"
)

// CatalogUC serves every catalog read through one of two sources,
// resolved at construction: the remote database when configured, the
// bundled static data otherwise. Remote failures degrade to the static
// source; callers never see the difference, the metrics do.
type CatalogUC struct {
	Remote domain.CatalogSource // nil when the read tier is unconfigured
	Writer domain.CatalogWriter // nil when the write tier is unconfigured
	Static domain.CatalogSource
	Site   domain.SiteConfig
}

func fallbackQuery[T any](uc *CatalogUC, op string, remote func(domain.CatalogSource) (T, error), static func(domain.CatalogSource) (T, error)) (T, error) {
	if uc.Remote == nil {
		metrics.CatalogServed.WithLabelValues(op, "static").Inc()
		return static(uc.Static)
	}
	v, err := remote(uc.Remote)
	if err == nil {
		metrics.CatalogServed.WithLabelValues(op, "remote").Inc()
		return v, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		metrics.CatalogFallbacks.WithLabelValues(op, "not_found").Inc()
	} else {
		log.Warn().Err(err).Str("operation", op).Msg("remote catalog query failed, serving static fallback")
		metrics.CatalogFallbacks.WithLabelValues(op, "query_error").Inc()
	}
	metrics.CatalogServed.WithLabelValues(op, "static").Inc()
	return static(uc.Static)
}

func (uc *CatalogUC) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	return fallbackQuery(uc, "products",
		func(s domain.CatalogSource) ([]domain.Product, error) { return s.Products(ctx) },
		func(s domain.CatalogSource) ([]domain.Product, error) { return s.Products(ctx) })
}

func (uc *CatalogUC) GetFeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	return fallbackQuery(uc, "featured_products",
		func(s domain.CatalogSource) ([]domain.Product, error) { return s.FeaturedProducts(ctx) },
		func(s domain.CatalogSource) ([]domain.Product, error) { return s.FeaturedProducts(ctx) })
}

func (uc *CatalogUC) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return fallbackQuery(uc, "product_by_id",
		func(s domain.CatalogSource) (*domain.Product, error) { return s.ProductByID(ctx, id) },
		func(s domain.CatalogSource) (*domain.Product, error) { return s.ProductByID(ctx, id) })
}

func (uc *CatalogUC) GetProductsByCategory(ctx context.Context, categorySlug string) ([]domain.Product, error) {
	return fallbackQuery(uc, "products_by_category",
		func(s domain.CatalogSource) ([]domain.Product, error) { return s.ProductsByCategory(ctx, categorySlug) },
		func(s domain.CatalogSource) ([]domain.Product, error) { return s.ProductsByCategory(ctx, categorySlug) })
}

func (uc *CatalogUC) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return fallbackQuery(uc, "search_products",
		func(s domain.CatalogSource) ([]domain.Product, error) { return s.SearchProducts(ctx, query) },
		func(s domain.CatalogSource) ([]domain.Product, error) { return s.SearchProducts(ctx, query) })
}

func (uc *CatalogUC) GetAllCategories(ctx context.Context) ([]domain.Category, error) {
	return fallbackQuery(uc, "categories",
		func(s domain.CatalogSource) ([]domain.Category, error) { return s.Categories(ctx) },
		func(s domain.CatalogSource) ([]domain.Category, error) { return s.Categories(ctx) })
}

func (uc *CatalogUC) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return fallbackQuery(uc, "category_by_slug",
		func(s domain.CatalogSource) (*domain.Category, error) { return s.CategoryBySlug(ctx, slug) },
		func(s domain.CatalogSource) (*domain.Category, error) { return s.CategoryBySlug(ctx, slug) })
}

func (uc *CatalogUC) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	return fallbackQuery(uc, "category_by_id",
		func(s domain.CatalogSource) (*domain.Category, error) { return s.CategoryByID(ctx, id) },
		func(s domain.CatalogSource) (*domain.Category, error) { return s.CategoryByID(ctx, id) })
}

func (uc *CatalogUC) GetRelatedProducts(ctx context.Context, p *domain.Product, limit int) ([]domain.Product, error) {
	return fallbackQuery(uc, "related_products",
		func(s domain.CatalogSource) ([]domain.Product, error) { return s.RelatedProducts(ctx, p, limit) },
		func(s domain.CatalogSource) ([]domain.Product, error) { return s.RelatedProducts(ctx, p, limit) })
}

// GetProductStats aggregates over whichever source answers the product
// list, so the stats fall back along with it.
func (uc *CatalogUC) GetProductStats(ctx context.Context) (domain.ProductStats, error) {
	products, err := uc.GetAllProducts(ctx)
	if err != nil {
		return domain.ProductStats{}, err
	}
	return StatsFor(products), nil
}

// GetSiteConfig always comes from the bundled data.
func (uc *CatalogUC) GetSiteConfig() domain.SiteConfig { return uc.Site }

// --- writes: no fallback, the static catalog is read-only ---

func (uc *CatalogUC) CreateProduct(ctx context.Context, p *domain.Product, actor string) (*domain.Product, error) {
	if uc.Writer == nil {
		return nil, fmt.Errorf("create product: %w", domain.ErrReadOnlySource)
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("create product: name is required: %w", domain.ErrInvalidInput)
	}
	if p.Price < 0 {
		return nil, fmt.Errorf("create product: price must not be negative: %w", domain.ErrInvalidInput)
	}
	created, err := uc.Writer.CreateProduct(ctx, p, actor)
	if err != nil {
		log.Error().Err(err).Str("name", p.Name).Msg("create product")
		return nil, err
	}
	return created, nil
}

func (uc *CatalogUC) UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate, actor string) (*domain.Product, error) {
	if uc.Writer == nil {
		return nil, fmt.Errorf("update product: %w", domain.ErrReadOnlySource)
	}
	updated, err := uc.Writer.UpdateProduct(ctx, id, upd, actor)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Str("product_id", id).Msg("update product")
		}
		return nil, err
	}
	return updated, nil
}

func (uc *CatalogUC) UpdateStock(ctx context.Context, id string, newQuantity int, reason, referenceID, actor, notes string) (*domain.Product, *domain.StockMovement, error) {
	if uc.Writer == nil {
		return nil, nil, fmt.Errorf("update stock: %w", domain.ErrReadOnlySource)
	}
	if newQuantity < 0 {
		return nil, nil, fmt.Errorf("update stock: quantity must not be negative: %w", domain.ErrInvalidInput)
	}
	if reason == "" {
		reason = "adjustment"
	}
	p, mv, err := uc.Writer.UpdateStock(ctx, id, newQuantity, reason, referenceID, actor, notes)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Str("product_id", id).Msg("update stock")
		}
		return nil, nil, err
	}
	return p, mv, nil
}

func (uc *CatalogUC) DeleteProduct(ctx context.Context, id string, actor string) (*domain.Product, error) {
	if uc.Writer == nil {
		return nil, fmt.Errorf("delete product: %w", domain.ErrReadOnlySource)
	}
	p, err := uc.Writer.SoftDeleteProduct(ctx, id, actor)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Str("product_id", id).Msg("delete product")
		}
		return nil, err
	}
	return p, nil
}

func (uc *CatalogUC) Movements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if uc.Writer == nil {
		return nil, fmt.Errorf("stock movements: %w", domain.ErrReadOnlySource)
	}
	return uc.Writer.Movements(ctx, productID, limit)
}

func (uc *CatalogUC) History(ctx context.Context, productID string, limit int) ([]domain.ProductHistory, error) {
	if uc.Writer == nil {
		return nil, fmt.Errorf("product history: %w", domain.ErrReadOnlySource)
	}
	return uc.Writer.History(ctx, productID, limit)
}
