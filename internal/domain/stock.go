package domain

import "time"

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// MovementTypeFor derives the ledger entry type from the sign of the
// quantity delta.
func MovementTypeFor(delta int) MovementType {
	switch {
	case delta > 0:
		return MovementIn
	case delta < 0:
		return MovementOut
	default:
		return MovementAdjustment
	}
}

// StockMovement is an append-only inventory ledger entry. Rows are only
// ever produced as a side effect of stock updates and product creation.
type StockMovement struct {
	ID            string       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID     string       `gorm:"type:uuid;index" json:"product_id"`
	MovementType  MovementType `gorm:"size:20;not null" json:"movement_type"`
	Quantity      int          `gorm:"not null" json:"quantity"`
	PreviousStock int          `json:"previous_stock"`
	NewStock      int          `json:"new_stock"`
	Reason        string       `gorm:"size:60" json:"reason"`
	ReferenceID   string       `gorm:"size:100" json:"reference_id,omitempty"`
	CreatedBy     string       `gorm:"size:100" json:"created_by"`
	Notes         string       `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ProductHistory is an append-only audit entry. Old and new values are
// stored as strings or serialized JSON.
type ProductHistory struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID string    `gorm:"type:uuid;index" json:"product_id"`
	Action    string    `gorm:"size:40;not null" json:"action"`
	FieldName string    `gorm:"size:60" json:"field_name,omitempty"`
	OldValue  string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue  string    `gorm:"type:text" json:"new_value,omitempty"`
	ChangedBy string    `gorm:"size:100" json:"changed_by"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
