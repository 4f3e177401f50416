package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/suroccidente/storefront/internal/domain"
)

// AdminRepo is the write-tier view of the remote catalog, opened with
// the elevated service credential. Products are never hard-deleted;
// every stock change lands in the movement ledger and the history.
type AdminRepo struct{ db *gorm.DB }

func NewAdminRepo(db *gorm.DB) *AdminRepo { return &AdminRepo{db: db} }

func (r *AdminRepo) Migrate() error {
	return r.db.AutoMigrate(
		&domain.Category{},
		&domain.Product{},
		&domain.ProductImage{},
		&domain.ProductVariant{},
		&domain.StockMovement{},
		&domain.ProductHistory{},
	)
}

func (r *AdminRepo) CreateProduct(ctx context.Context, p *domain.Product, actor string) (*domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.MinStockLevel == 0 {
		p.MinStockLevel = 1
	}
	if p.MaxStockLevel == 0 {
		p.MaxStockLevel = 100
	}
	p.Active = true
	p.StockStatus = domain.StockStatusFor(p.StockQuantity, p.MinStockLevel)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := uniqueSlug(tx, domain.Slugify(p.Name), p.ID)
		if err != nil {
			return err
		}
		p.Slug = slug
		for i := range p.Images {
			if p.Images[i].ID == "" {
				p.Images[i].ID = uuid.NewString()
			}
			p.Images[i].ProductID = p.ID
		}
		for i := range p.Variants {
			if p.Variants[i].ID == "" {
				p.Variants[i].ID = uuid.NewString()
			}
			p.Variants[i].ProductID = p.ID
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}

		snapshot, _ := json.Marshal(p)
		if err := tx.Create(&domain.ProductHistory{
			ID:        uuid.NewString(),
			ProductID: p.ID,
			Action:    "created",
			NewValue:  string(snapshot),
			ChangedBy: actor,
		}).Error; err != nil {
			return err
		}

		if p.StockQuantity > 0 {
			return tx.Create(&domain.StockMovement{
				ID:            uuid.NewString(),
				ProductID:     p.ID,
				MovementType:  domain.MovementIn,
				Quantity:      p.StockQuantity,
				PreviousStock: 0,
				NewStock:      p.StockQuantity,
				Reason:        "initial_stock",
				CreatedBy:     actor,
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (r *AdminRepo) UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate, actor string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if upd.Name != nil && *upd.Name != p.Name {
			p.Name = *upd.Name
			slug, err := uniqueSlug(tx, domain.Slugify(p.Name), p.ID)
			if err != nil {
				return err
			}
			p.Slug = slug
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		if upd.Price != nil {
			p.Price = *upd.Price
		}
		if upd.CategoryID != nil {
			p.CategoryID = *upd.CategoryID
		}
		if upd.Condition != nil {
			p.Condition = *upd.Condition
		}
		if upd.Featured != nil {
			p.Featured = *upd.Featured
		}
		if upd.Tags != nil {
			p.Tags = upd.Tags
		}
		if upd.Sizes != nil {
			p.Sizes = upd.Sizes
		}
		p.UpdatedAt = time.Now()
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateStock runs the read-modify-write in one transaction: derive the
// new status tier, write the product row, then append exactly one
// movement and one history row reflecting the change.
func (r *AdminRepo) UpdateStock(ctx context.Context, id string, newQuantity int, reason, referenceID, actor, notes string) (*domain.Product, *domain.StockMovement, error) {
	var p domain.Product
	var mv domain.StockMovement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		previous := p.StockQuantity
		delta := newQuantity - previous

		p.StockQuantity = newQuantity
		p.StockStatus = domain.StockStatusFor(newQuantity, p.MinStockLevel)
		p.UpdatedAt = time.Now()
		if err := tx.Model(&domain.Product{}).Where("id = ?", id).Updates(map[string]any{
			"stock_quantity": p.StockQuantity,
			"stock_status":   p.StockStatus,
			"updated_at":     p.UpdatedAt,
		}).Error; err != nil {
			return err
		}

		qty := delta
		if qty < 0 {
			qty = -qty
		}
		mv = domain.StockMovement{
			ID:            uuid.NewString(),
			ProductID:     id,
			MovementType:  domain.MovementTypeFor(delta),
			Quantity:      qty,
			PreviousStock: previous,
			NewStock:      newQuantity,
			Reason:        reason,
			ReferenceID:   referenceID,
			CreatedBy:     actor,
			Notes:         notes,
		}
		if err := tx.Create(&mv).Error; err != nil {
			return err
		}

		return tx.Create(&domain.ProductHistory{
			ID:        uuid.NewString(),
			ProductID: id,
			Action:    "stock_changed",
			FieldName: "stock_quantity",
			OldValue:  strconv.Itoa(previous),
			NewValue:  strconv.Itoa(newQuantity),
			ChangedBy: actor,
			Notes:     notes,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &p, &mv, nil
}

func (r *AdminRepo) SoftDeleteProduct(ctx context.Context, id string, actor string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		p.Active = false
		p.UpdatedAt = time.Now()
		if err := tx.Model(&domain.Product{}).Where("id = ?", id).Updates(map[string]any{
			"is_active":  false,
			"updated_at": p.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&domain.ProductHistory{
			ID:        uuid.NewString(),
			ProductID: id,
			Action:    "deactivated",
			FieldName: "is_active",
			OldValue:  "true",
			NewValue:  "false",
			ChangedBy: actor,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *AdminRepo) Movements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	q := r.db.WithContext(ctx).Order("created_at desc")
	if productID != "" {
		q = q.Where("product_id = ?", productID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []domain.StockMovement
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *AdminRepo) History(ctx context.Context, productID string, limit int) ([]domain.ProductHistory, error) {
	q := r.db.WithContext(ctx).Order("created_at desc")
	if productID != "" {
		q = q.Where("product_id = ?", productID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []domain.ProductHistory
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// uniqueSlug appends a -N suffix until the slug is free. excludeID lets
// an update keep its own slug.
func uniqueSlug(tx *gorm.DB, base, excludeID string) (string, error) {
	if base == "" {
		base = uuid.NewString()[:8]
	}
	slug := base
	for i := 2; ; i++ {
		var count int64
		q := tx.Model(&domain.Product{}).Where("slug = ?", slug)
		if excludeID != "" {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
