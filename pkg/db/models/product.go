package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents one catalog product variant. Alias is the admin-assigned
// short name used to resolve free-text order drafts; a nil alias keeps the
// product out of the draft alias index. A nil StockQty means the product is
// untracked and never blocks a reservation.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Title     string          `gorm:"column:title;not null"`
	Alias     *string         `gorm:"column:alias"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	StockQty  *int            `gorm:"column:stock_qty"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate mints the id in code; the SQL schema keeps a server-side
// default for rows inserted outside the application.
func (m *Product) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
