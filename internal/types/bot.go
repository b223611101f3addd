package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Bot is the tenant root. Every source, chunk, query log, widget token and
// rate counter hangs off a bot, and every owner-facing operation checks
// OwnerID before touching anything below it.
type Bot struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID            uuid.UUID     `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner              *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerID;references:ID" json:"-"`
	Name               string         `gorm:"column:name;not null" json:"name"`
	Description        string         `gorm:"column:description" json:"description"`
	SystemPrompt       string         `gorm:"column:system_prompt" json:"system_prompt"`
	ModelProvider      string         `gorm:"column:model_provider;not null;default:'openai'" json:"model_provider"`
	ModelName          string         `gorm:"column:model_name;not null;default:'gpt-4o-mini'" json:"model_name"`
	Temperature        float64        `gorm:"column:temperature;not null;default:0.2" json:"temperature"`
	MaxTokens          int            `gorm:"column:max_tokens;not null;default:1024" json:"max_tokens"`
	TopK               int            `gorm:"column:top_k;not null;default:5" json:"top_k"`
	MinScore           float64        `gorm:"column:min_score;not null;default:0.25" json:"min_score"`
	RateLimitPerMinute int            `gorm:"column:rate_limit_per_minute;not null;default:60" json:"rate_limit_per_minute"`
	RetentionDays      int            `gorm:"column:retention_days;not null;default:90" json:"retention_days"`
	Settings           datatypes.JSON `gorm:"type:jsonb;column:settings" json:"settings,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Bot) TableName() string {
	return "bots"
}
