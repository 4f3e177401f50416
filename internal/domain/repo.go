package domain

import "context"

// CatalogSource is the read side of the catalog. Two implementations
// exist: the Postgres-backed remote source and the bundled static JSON
// source. The catalog service picks one at construction and both return
// the same shapes, so callers never learn which one answered.
type CatalogSource interface {
	Products(ctx context.Context) ([]Product, error)
	FeaturedProducts(ctx context.Context) ([]Product, error)
	ProductByID(ctx context.Context, id string) (*Product, error)
	ProductsByCategory(ctx context.Context, categorySlug string) ([]Product, error)
	SearchProducts(ctx context.Context, query string) ([]Product, error)
	Categories(ctx context.Context) ([]Category, error)
	CategoryBySlug(ctx context.Context, slug string) (*Category, error)
	CategoryByID(ctx context.Context, id string) (*Category, error)
	RelatedProducts(ctx context.Context, p *Product, limit int) ([]Product, error)
}

// CatalogWriter is the write side. Only the Postgres source implements
// it; a nil writer means the deployment is read-only.
type CatalogWriter interface {
	CreateProduct(ctx context.Context, p *Product, actor string) (*Product, error)
	UpdateProduct(ctx context.Context, id string, upd ProductUpdate, actor string) (*Product, error)
	UpdateStock(ctx context.Context, id string, newQuantity int, reason, referenceID, actor, notes string) (*Product, *StockMovement, error)
	SoftDeleteProduct(ctx context.Context, id string, actor string) (*Product, error)
	Movements(ctx context.Context, productID string, limit int) ([]StockMovement, error)
	History(ctx context.Context, productID string, limit int) ([]ProductHistory, error)
}
