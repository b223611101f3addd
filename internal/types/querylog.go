package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	FeedbackUp   = "up"
	FeedbackDown = "down"
)

type QueryLog struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BotID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"bot_id"`
	Bot              *Bot           `gorm:"constraint:OnDelete:CASCADE;foreignKey:BotID;references:ID" json:"-"`
	SessionID        string         `gorm:"column:session_id;index" json:"session_id,omitempty"`
	PageURL          string         `gorm:"column:page_url" json:"page_url,omitempty"`
	QueryText        string         `gorm:"column:query_text;not null" json:"query_text"`
	ResponseSummary  string         `gorm:"column:response_summary" json:"response_summary,omitempty"`
	Confidence       *float64       `gorm:"column:confidence" json:"confidence,omitempty"`
	Citations        datatypes.JSON `gorm:"type:jsonb;column:citations" json:"citations,omitempty"`
	LatencyMs        int            `gorm:"column:latency_ms" json:"latency_ms"`
	PromptTokens     int            `gorm:"column:prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int            `gorm:"column:completion_tokens" json:"completion_tokens"`
	TotalTokens      int            `gorm:"column:total_tokens" json:"total_tokens"`
	Provider         string         `gorm:"column:provider" json:"provider,omitempty"`
	ModelName        string         `gorm:"column:model_name" json:"model_name,omitempty"`
	UserFeedback     *string        `gorm:"column:user_feedback" json:"user_feedback,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (QueryLog) TableName() string {
	return "query_logs"
}
