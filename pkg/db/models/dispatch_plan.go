package models

import (
	"time"

	"github.com/google/uuid"
)

// DispatchPlanID is the primary key of the singleton plan row.
const DispatchPlanID = 1

// DispatchStep is one position in the round-robin chain: the target repeats
// RepeatCount times before the cursor moves on.
type DispatchStep struct {
	TargetID    uuid.UUID `json:"target_id"`
	RepeatCount int       `json:"repeat_count"`
}

// DispatchPlan is the persisted round-robin schedule over payment targets.
// Invariants: 0 <= CursorIndex < len(Chain) (or the chain is empty) and
// 0 <= SentInStep < Chain[CursorIndex].RepeatCount.
type DispatchPlan struct {
	ID            int            `gorm:"column:id;primaryKey"`
	Chain         []DispatchStep `gorm:"column:chain;type:jsonb;serializer:json"`
	CursorIndex   int            `gorm:"column:cursor_index;not null;default:0"`
	SentInStep    int            `gorm:"column:sent_in_step;not null;default:0"`
	LastUpdatedBy *string        `gorm:"column:last_updated_by"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
