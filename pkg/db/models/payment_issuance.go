package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentIssuance records that one payment link was sent to one customer.
// ExternalMessageID carries the transport's idempotency key when present;
// the unique index makes replayed deliveries collapse onto one row. The row
// flips unpaid->paid at most once, during reconciliation.
type PaymentIssuance struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ExternalMessageID *string          `gorm:"column:external_message_id;uniqueIndex"`
	CustomerID        string           `gorm:"column:customer_id;not null;index:idx_issuance_customer"`
	ConversationID    string           `gorm:"column:conversation_id;not null;index:idx_issuance_conversation"`
	TargetID          *uuid.UUID       `gorm:"column:target_id;type:uuid"`
	LinkURL           string           `gorm:"column:link_url;not null"`
	SourceText        string           `gorm:"column:source_text;not null;default:''"`
	BundleCode        *string          `gorm:"column:bundle_code"`
	ExpectedAmount    *decimal.Decimal `gorm:"column:expected_amount;type:numeric(12,2)"`
	IsPaid            bool             `gorm:"column:is_paid;not null;default:false"`
	PaidAmount        *decimal.Decimal `gorm:"column:paid_amount;type:numeric(12,2)"`
	PaidAt            *time.Time       `gorm:"column:paid_at"`
	ProofRef          *string          `gorm:"column:proof_ref"`
	MatchedOrderID    *uuid.UUID       `gorm:"column:matched_order_id;type:uuid"`
	SellerID          *uuid.UUID       `gorm:"column:seller_id;type:uuid"`
	ReceivedAt        time.Time        `gorm:"column:received_at;autoCreateTime"`
}

// BeforeCreate mints the id in code; the SQL schema keeps a server-side
// default for rows inserted outside the application.
func (m *PaymentIssuance) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
