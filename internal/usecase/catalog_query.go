package usecase

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/suroccidente/storefront/internal/domain"
)

const DefaultPageSize = 12

// FilterProducts applies every set predicate of f, ANDed. Unset fields
// match everything.
func FilterProducts(products []domain.Product, f domain.ProductFilter) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.Category != "" && p.CategorySlug() != f.Category {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		if f.Condition != "" && p.Condition != f.Condition {
			continue
		}
		if len(f.Sizes) > 0 && !anyOf(f.Sizes, p.AllSizes()) {
			continue
		}
		if len(f.Tags) > 0 && !anyOf(f.Tags, p.Tags) {
			continue
		}
		if f.Gender != "" && p.Gender != "" && p.Gender != f.Gender {
			continue
		}
		out = append(out, p)
	}
	return out
}

func anyOf(wanted, have []string) bool {
	for _, w := range wanted {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

// SearchProducts matches case-insensitively against name, description,
// tags and category. A blank query returns the input unchanged.
func SearchProducts(products []domain.Product, query string) []domain.Product {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return products
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Description), term) ||
			tagMatches(p.Tags, term) ||
			strings.Contains(strings.ToLower(p.CategoryName()), term) {
			out = append(out, p)
		}
	}
	return out
}

func tagMatches(tags []string, term string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

// SortProducts returns a sorted copy. Keys: name (Spanish collation),
// price, created_at. An unrecognized key preserves the original order.
func SortProducts(products []domain.Product, sortBy, sortOrder string) []domain.Product {
	sorted := make([]domain.Product, len(products))
	copy(sorted, products)

	var cmp func(a, b *domain.Product) int
	switch sortBy {
	case "name":
		col := collate.New(language.Spanish)
		cmp = func(a, b *domain.Product) int { return col.CompareString(a.Name, b.Name) }
	case "price":
		cmp = func(a, b *domain.Product) int {
			switch {
			case a.Price < b.Price:
				return -1
			case a.Price > b.Price:
				return 1
			}
			return 0
		}
	case "created_at":
		cmp = func(a, b *domain.Product) int {
			switch {
			case a.CreatedAt.Before(b.CreatedAt):
				return -1
			case a.CreatedAt.After(b.CreatedAt):
				return 1
			}
			return 0
		}
	default:
		return sorted
	}

	desc := sortOrder == "desc"
	sort.SliceStable(sorted, func(i, j int) bool {
		c := cmp(&sorted[i], &sorted[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return sorted
}

// PaginateProducts slices out a 1-indexed page. Pages past the end come
// back empty; page counts use ceiling division.
func PaginateProducts(products []domain.Product, page, limit int) domain.Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	total := len(products)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	end := start + limit
	var slice []domain.Product
	switch {
	case start >= total:
		slice = []domain.Product{}
	case end > total:
		slice = products[start:total]
	default:
		slice = products[start:end]
	}

	return domain.Page{
		Products:    slice,
		TotalPages:  totalPages,
		CurrentPage: page,
		TotalItems:  total,
	}
}

// RelatedProducts picks up to limit same-category products excluding p
// itself, padding with other-category products when the category runs
// short. Same-category results keep priority in the ordering.
func RelatedProducts(all []domain.Product, p *domain.Product, limit int) []domain.Product {
	if limit <= 0 {
		limit = 4
	}
	related := make([]domain.Product, 0, limit)
	for _, c := range all {
		if c.ID != p.ID && c.CategorySlug() == p.CategorySlug() {
			related = append(related, c)
		}
	}
	if len(related) < limit {
		for _, c := range all {
			if c.ID != p.ID && c.CategorySlug() != p.CategorySlug() {
				related = append(related, c)
			}
		}
	}
	if len(related) > limit {
		related = related[:limit]
	}
	return related
}

// StatsFor aggregates the product set in a single pass. An empty set
// yields a nil price range rather than sentinel values.
func StatsFor(products []domain.Product) domain.ProductStats {
	stats := domain.ProductStats{
		Total:      len(products),
		ByCategory: map[string]int{},
	}
	conditions := map[string]struct{}{}
	sizes := map[string]struct{}{}

	for i := range products {
		p := &products[i]
		stats.ByCategory[p.CategoryName()]++
		if p.Condition != "" {
			conditions[p.Condition] = struct{}{}
		}
		for _, s := range p.AllSizes() {
			sizes[s] = struct{}{}
		}
		if stats.PriceRange == nil {
			stats.PriceRange = &domain.PriceRange{Min: p.Price, Max: p.Price}
		} else {
			if p.Price < stats.PriceRange.Min {
				stats.PriceRange.Min = p.Price
			}
			if p.Price > stats.PriceRange.Max {
				stats.PriceRange.Max = p.Price
			}
		}
	}

	stats.Conditions = make([]string, 0, len(conditions))
	for c := range conditions {
		stats.Conditions = append(stats.Conditions, c)
	}
	sort.Strings(stats.Conditions)

	stats.Sizes = make([]string, 0, len(sizes))
	for s := range sizes {
		stats.Sizes = append(stats.Sizes, s)
	}
	sort.Strings(stats.Sizes)
	return stats
}
