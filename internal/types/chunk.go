package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type Chunk struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BotID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"bot_id"`
	Bot        *Bot            `gorm:"constraint:OnDelete:CASCADE;foreignKey:BotID;references:ID" json:"-"`
	SourceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"source_id"`
	Source     *Source         `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceID;references:ID" json:"-"`
	Index      int             `gorm:"column:index;not null" json:"index"`
	Text       string          `gorm:"column:text;not null" json:"text"`
	TokenCount int             `gorm:"column:token_count;not null" json:"token_count"`
	CharStart  int             `gorm:"column:char_start;not null" json:"char_start"`
	CharEnd    int             `gorm:"column:char_end;not null" json:"char_end"`
	Heading    string          `gorm:"column:heading" json:"heading,omitempty"`
	Embedding  pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	CreatedAt  time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (Chunk) TableName() string {
	return "chunks"
}
