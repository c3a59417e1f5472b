package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Seller is a payment counterparty. CounterpartyID is the 12-digit identifier
// that appears on confirmed-payment receipts.
type Seller struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	DisplayName    string    `gorm:"column:display_name;not null"`
	CounterpartyID string    `gorm:"column:counterparty_id;not null;uniqueIndex"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate mints the id in code; the SQL schema keeps a server-side
// default for rows inserted outside the application.
func (m *Seller) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
