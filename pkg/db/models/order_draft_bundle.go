package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BundleItem is one resolved line of a parsed order draft.
type BundleItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Alias     string    `json:"alias"`
	Qty       int       `json:"qty"`
}

// OrderDraftBundle is the immutable, code-addressable snapshot produced from a
// successfully parsed free-text order draft. Redemption is a pure read; rows
// are never deleted by the engine.
type OrderDraftBundle struct {
	Code          string          `gorm:"column:code;primaryKey"`
	DeliveryPrice decimal.Decimal `gorm:"column:delivery_price;type:numeric(12,2);not null"`
	NoteText      string          `gorm:"column:note_text;not null;default:''"`
	Items         []BundleItem    `gorm:"column:items;type:jsonb;serializer:json"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
