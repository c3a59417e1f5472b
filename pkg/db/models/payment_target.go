package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentTarget is one destination a payment link can point at. A target is
// usable when it is active and carries a non-empty link.
type PaymentTarget struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SellerID  *uuid.UUID `gorm:"column:seller_id;type:uuid"`
	Label     string     `gorm:"column:label;not null"`
	LinkURL   string     `gorm:"column:link_url;not null"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Usable reports whether the scheduler may hand out this target's link.
func (t PaymentTarget) Usable() bool {
	return t.IsActive && t.LinkURL != ""
}

// BeforeCreate mints the id in code; the SQL schema keeps a server-side
// default for rows inserted outside the application.
func (m *PaymentTarget) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
