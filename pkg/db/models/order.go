package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/pkg/enums"
)

// OrderItem snapshots one line of a created order.
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
}

// Order is a customer order created through the storefront. Reconciliation
// stamps SellerID/SellerName/AttributedAt when a confirmed payment is matched
// back to the order.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerPhone string            `gorm:"column:customer_phone;not null;index:idx_orders_phone"`
	TotalPrice    decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status        enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Items         []OrderItem       `gorm:"column:items;type:jsonb;serializer:json"`
	BundleCode    *string           `gorm:"column:bundle_code"`
	SellerID      *uuid.UUID        `gorm:"column:seller_id;type:uuid"`
	SellerName    *string           `gorm:"column:seller_name"`
	AttributedAt  *time.Time        `gorm:"column:attributed_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate mints the id in code; the SQL schema keeps a server-side
// default for rows inserted outside the application.
func (m *Order) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
