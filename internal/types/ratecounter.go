package types

import (
	"time"

	"github.com/google/uuid"
)

// RateCounter is one per-bot minute window. The composite key lets the
// repository bump the count with a single conditional upsert.
type RateCounter struct {
	BotID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"bot_id"`
	WindowStart time.Time `gorm:"column:window_start;primaryKey" json:"window_start"`
	Count       int       `gorm:"column:count;not null;default:0" json:"count"`
}

func (RateCounter) TableName() string {
	return "rate_counters"
}
