package staticjson

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suroccidente/storefront/internal/domain"
)

func TestNewLoadsBundledCatalog(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	products, err := s.Products(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 7, "inactive products are not served")
	for _, p := range products {
		assert.True(t, p.Active)
		assert.NotEmpty(t, p.StockStatus)
		require.NotNil(t, p.Category, "category slugs resolve to records at load")
		assert.Equal(t, p.Category.ID, p.CategoryID)
	}
}

func TestCategoriesSortedByOrder(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	cats, err := s.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 4)
	assert.Equal(t, "camisetas", cats[0].Slug)
	assert.Equal(t, "accesorios", cats[3].Slug)
}

func TestFeaturedProducts(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	featured, err := s.FeaturedProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, featured, 3)
	for _, p := range featured {
		assert.True(t, p.Featured)
	}
}

func TestProductByID(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	p, err := s.ProductByID(ctx, "p1000000-0000-4000-8000-000000000004")
	require.NoError(t, err)
	assert.Equal(t, "Vestido Negro Elegante", p.Name)
	assert.Equal(t, domain.StockLow, p.StockStatus)

	_, err = s.ProductByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Inactive products are invisible even by direct id.
	_, err = s.ProductByID(ctx, "p1000000-0000-4000-8000-000000000008")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductsByCategory(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	got, err := s.ProductsByCategory(context.Background(), "accesorios")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	empty, err := s.ProductsByCategory(context.Background(), "zapatos")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSearchProducts(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	got, err := s.SearchProducts(context.Background(), "vestido")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCategoryLookups(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	c, err := s.CategoryBySlug(ctx, "jeans")
	require.NoError(t, err)
	assert.Equal(t, "Jeans", c.Name)

	byID, err := s.CategoryByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "jeans", byID.Slug)

	_, err = s.CategoryBySlug(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSiteConfig(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	cfg := s.SiteConfig()
	assert.Equal(t, "Sur Occidente", cfg.Name)
	assert.Equal(t, "573001234567", cfg.Contact.WhatsApp)
}
