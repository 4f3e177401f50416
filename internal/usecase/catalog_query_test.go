package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suroccidente/storefront/internal/domain"
)

func i64(v int64) *int64 { return &v }

func sampleCatalog() []domain.Product {
	camisetas := &domain.Category{ID: "c1", Name: "Camisetas", Slug: "camisetas"}
	jeans := &domain.Category{ID: "c2", Name: "Jeans", Slug: "jeans"}
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Product{
		{ID: "p1", Name: "Camiseta Básica", Price: 30000, Category: camisetas, CategoryID: "c1",
			Condition: "nuevo", Sizes: []string{"S", "M"}, Tags: []string{"algodón", "básico"},
			Gender: "mujer", CreatedAt: base},
		{ID: "p2", Name: "Camiseta Estampada", Price: 45000, Category: camisetas, CategoryID: "c1",
			Condition: "nuevo", Sizes: []string{"M", "L"}, Tags: []string{"estampado"},
			CreatedAt: base.Add(24 * time.Hour)},
		{ID: "p3", Name: "Jean Clásico", Price: 120000, Category: jeans, CategoryID: "c2",
			Condition: "usado", Sizes: []string{"32"}, Tags: []string{"denim"},
			Gender: "hombre", CreatedAt: base.Add(48 * time.Hour)},
		{ID: "p4", Name: "Jean Slim", Price: 95000, Category: jeans, CategoryID: "c2",
			Condition: "nuevo", Sizes: []string{"30", "32"}, Tags: []string{"denim", "slim"},
			CreatedAt: base.Add(72 * time.Hour)},
	}
}

func TestFilterProductsUnsetFieldsMatchEverything(t *testing.T) {
	all := sampleCatalog()
	got := FilterProducts(all, domain.ProductFilter{})
	assert.Len(t, got, len(all))
}

func TestFilterProductsCombinesPredicates(t *testing.T) {
	all := sampleCatalog()

	got := FilterProducts(all, domain.ProductFilter{Category: "jeans", Condition: "nuevo"})
	require.Len(t, got, 1)
	assert.Equal(t, "p4", got[0].ID)

	got = FilterProducts(all, domain.ProductFilter{MinPrice: i64(40000), MaxPrice: i64(100000)})
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ID)
	assert.Equal(t, "p4", got[1].ID)

	got = FilterProducts(all, domain.ProductFilter{Sizes: []string{"32"}})
	assert.Len(t, got, 2)

	got = FilterProducts(all, domain.ProductFilter{Tags: []string{"denim", "algodón"}})
	assert.Len(t, got, 3)
}

func TestFilterProductsGenderSkipsUnsetProducts(t *testing.T) {
	all := sampleCatalog()
	got := FilterProducts(all, domain.ProductFilter{Gender: "mujer"})
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	// p2 and p4 carry no gender and must not be excluded.
	assert.Equal(t, []string{"p1", "p2", "p4"}, ids)
}

func TestSearchProducts(t *testing.T) {
	all := sampleCatalog()

	got := SearchProducts(all, "camiseta")
	assert.Len(t, got, 2)

	got = SearchProducts(all, "DENIM")
	assert.Len(t, got, 2)

	got = SearchProducts(all, "jeans")
	assert.Len(t, got, 2, "category name should match")

	got = SearchProducts(all, "   ")
	assert.Equal(t, all, got, "blank query returns the input unchanged")

	got = SearchProducts(all, "noexiste")
	assert.Empty(t, got)
}

func TestSortProducts(t *testing.T) {
	all := sampleCatalog()

	byPrice := SortProducts(all, "price", "asc")
	require.Len(t, byPrice, 4)
	assert.Equal(t, "p1", byPrice[0].ID)
	assert.Equal(t, "p3", byPrice[3].ID)

	byPriceDesc := SortProducts(all, "price", "desc")
	assert.Equal(t, "p3", byPriceDesc[0].ID)

	byDate := SortProducts(all, "created_at", "desc")
	assert.Equal(t, "p4", byDate[0].ID)

	// Input order is never mutated.
	assert.Equal(t, "p1", all[0].ID)

	unknown := SortProducts(all, "weight", "asc")
	assert.Equal(t, all, unknown)
}

func TestSortProductsNameUsesSpanishCollation(t *testing.T) {
	ps := []domain.Product{
		{ID: "a", Name: "Zapato"},
		{ID: "b", Name: "Ábrigo"},
		{ID: "c", Name: "Camisa"},
	}
	got := SortProducts(ps, "name", "asc")
	// Accented Á collates with A, ahead of C and Z.
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "a", got[2].ID)
}

func TestPaginateProducts(t *testing.T) {
	all := make([]domain.Product, 7)
	for i := range all {
		all[i].ID = string(rune('a' + i))
	}

	p1 := PaginateProducts(all, 1, 3)
	assert.Len(t, p1.Products, 3)
	assert.Equal(t, 3, p1.TotalPages)
	assert.Equal(t, 7, p1.TotalItems)

	p3 := PaginateProducts(all, 3, 3)
	assert.Len(t, p3.Products, 1)

	past := PaginateProducts(all, 9, 3)
	assert.Empty(t, past.Products)
	assert.Equal(t, 9, past.CurrentPage)

	defaults := PaginateProducts(all, 0, 0)
	assert.Equal(t, 1, defaults.CurrentPage)
	assert.Len(t, defaults.Products, 7)
	assert.Equal(t, 1, defaults.TotalPages)
}

func TestRelatedProductsPadsAcrossCategories(t *testing.T) {
	all := sampleCatalog()

	got := RelatedProducts(all, &all[2], 4) // p3, jeans
	require.Len(t, got, 3)
	// Same-category first, then cross-category padding.
	assert.Equal(t, "p4", got[0].ID)
	assert.Equal(t, "p1", got[1].ID)
	assert.Equal(t, "p2", got[2].ID)

	got = RelatedProducts(all, &all[2], 1)
	require.Len(t, got, 1)
	assert.Equal(t, "p4", got[0].ID)
}

func TestStatsFor(t *testing.T) {
	stats := StatsFor(sampleCatalog())
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByCategory["Camisetas"])
	assert.Equal(t, 2, stats.ByCategory["Jeans"])
	require.NotNil(t, stats.PriceRange)
	assert.Equal(t, int64(30000), stats.PriceRange.Min)
	assert.Equal(t, int64(120000), stats.PriceRange.Max)
	assert.Equal(t, []string{"nuevo", "usado"}, stats.Conditions)
	assert.Contains(t, stats.Sizes, "32")
}

func TestStatsForEmptySet(t *testing.T) {
	stats := StatsFor(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Nil(t, stats.PriceRange)
	assert.Empty(t, stats.Conditions)
}
