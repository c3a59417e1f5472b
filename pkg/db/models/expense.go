package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expense is an admin bookkeeping entry recorded through the chat shorthand.
type Expense struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Category   string          `gorm:"column:category;not null"`
	RecordedBy string          `gorm:"column:recorded_by;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate mints the id in code; the SQL schema keeps a server-side
// default for rows inserted outside the application.
func (m *Expense) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
