package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Source types name the document format, which picks the parser. html
// sources are crawled from their URL; the file formats come from uploads
// and never carry one.
const (
	SourceTypePDF  = "pdf"
	SourceTypeDOCX = "docx"
	SourceTypeHTML = "html"
	SourceTypeText = "text"
)

// Source status lifecycle: uploaded -> parsing -> indexed | failed.
// Rows in "uploaded" form the ingestion queue.
const (
	SourceStatusUploaded = "uploaded"
	SourceStatusParsing  = "parsing"
	SourceStatusIndexed  = "indexed"
	SourceStatusFailed   = "failed"
)

type Source struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BotID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"bot_id"`
	Bot             *Bot           `gorm:"constraint:OnDelete:CASCADE;foreignKey:BotID;references:ID" json:"-"`
	Type            string         `gorm:"column:type;not null" json:"type"`
	Name            string         `gorm:"column:name;not null" json:"name"`
	URL             string         `gorm:"column:url" json:"url,omitempty"`
	StoragePath     string         `gorm:"column:storage_path" json:"storage_path,omitempty"`
	MimeType        string         `gorm:"column:mime_type" json:"mime_type,omitempty"`
	SizeBytes       int64          `gorm:"column:size_bytes" json:"size_bytes"`
	Checksum        string         `gorm:"column:checksum" json:"checksum,omitempty"`
	Etag            string         `gorm:"column:etag" json:"etag,omitempty"`
	LastModified    string         `gorm:"column:last_modified" json:"last_modified,omitempty"`
	Status          string         `gorm:"column:status;not null;default:'uploaded';index" json:"status"`
	ErrorMessage    string         `gorm:"column:error_message" json:"error_message,omitempty"`
	ChunkCount      int            `gorm:"column:chunk_count;not null;default:0" json:"chunk_count"`
	Metadata        datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	LastIngestedAt  *time.Time     `gorm:"column:last_ingested_at" json:"last_ingested_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Source) TableName() string {
	return "sources"
}
