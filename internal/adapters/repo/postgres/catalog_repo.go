package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/suroccidente/storefront/internal/domain"
)

// CatalogRepo is the read-tier view of the remote catalog. Every query
// is scoped to active rows and joined with images, variants and the
// category so results match the uniform product shape.
type CatalogRepo struct{ db *gorm.DB }

func NewCatalogRepo(db *gorm.DB) *CatalogRepo { return &CatalogRepo{db: db} }

func (r *CatalogRepo) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("is_active = ?", true).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
		Preload("Variants").
		Preload("Category")
}

func (r *CatalogRepo) Products(ctx context.Context) ([]domain.Product, error) {
	var list []domain.Product
	if err := r.base(ctx).Order("created_at desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *CatalogRepo) FeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	var list []domain.Product
	if err := r.base(ctx).Where("featured = ?", true).Order("created_at desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *CatalogRepo) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.base(ctx).First(&p, "products.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepo) ProductsByCategory(ctx context.Context, categorySlug string) ([]domain.Product, error) {
	var list []domain.Product
	err := r.base(ctx).
		Joins("JOIN categories ON categories.id = products.category_id").
		Where("categories.slug = ?", categorySlug).
		Order("products.created_at desc").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *CatalogRepo) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	term := strings.TrimSpace(query)
	if term == "" {
		return r.Products(ctx)
	}
	like := "%" + term + "%"
	tag, _ := json.Marshal([]string{strings.ToLower(term)})
	var list []domain.Product
	err := r.base(ctx).
		Where("name ILIKE ? OR description ILIKE ? OR tags @> ?", like, like, string(tag)).
		Order("created_at desc").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *CatalogRepo) Categories(ctx context.Context) ([]domain.Category, error) {
	var list []domain.Category
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order asc").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *CatalogRepo) CategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	var c domain.Category
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&c, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CatalogRepo) CategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// RelatedProducts runs the two-phase query: same-category first, then
// padding from other categories, both excluding the product itself.
func (r *CatalogRepo) RelatedProducts(ctx context.Context, p *domain.Product, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 4
	}
	var related []domain.Product
	err := r.base(ctx).
		Where("category_id = ? AND products.id <> ?", p.CategoryID, p.ID).
		Limit(limit).
		Find(&related).Error
	if err != nil {
		return nil, err
	}
	if len(related) < limit {
		var others []domain.Product
		err := r.base(ctx).
			Where("category_id <> ? AND products.id <> ?", p.CategoryID, p.ID).
			Limit(limit - len(related)).
			Find(&others).Error
		if err != nil {
			return nil, err
		}
		related = append(related, others...)
	}
	return related, nil
}
