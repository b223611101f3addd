package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WidgetToken stores only the sha256 of the issued secret. The plaintext is
// returned once at creation and never persisted.
type WidgetToken struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BotID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"bot_id"`
	Bot            *Bot           `gorm:"constraint:OnDelete:CASCADE;foreignKey:BotID;references:ID" json:"-"`
	TokenHash      string         `gorm:"column:token_hash;not null" json:"-"`
	TokenPrefix    string         `gorm:"column:token_prefix;not null" json:"token_prefix"`
	Label          string         `gorm:"column:label" json:"label,omitempty"`
	AllowedDomains datatypes.JSON `gorm:"type:jsonb;column:allowed_domains" json:"allowed_domains,omitempty"`
	ExpiresAt      *time.Time     `gorm:"column:expires_at" json:"expires_at,omitempty"`
	LastUsedAt     *time.Time     `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (WidgetToken) TableName() string {
	return "widget_tokens"
}
