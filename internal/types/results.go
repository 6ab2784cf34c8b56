package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProcessingResult is one successful extraction outcome. Append-only.
type ProcessingResult struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkerID    string         `gorm:"column:worker_id;index" json:"worker_id"`
	DocumentID  string         `gorm:"column:document_id;index" json:"document_id"`
	FilePath    string         `gorm:"column:file_path" json:"file_path"`
	SchemaName  string         `gorm:"column:schema_name" json:"schema_name,omitempty"`
	Result      datatypes.JSON `gorm:"column:result" json:"result"`
	ProcessedAt time.Time      `gorm:"column:processed_at;not null;index" json:"processed_at"`
}

func (ProcessingResult) TableName() string { return "processing_results" }

// ProcessingError is one failed extraction outcome. Append-only.
type ProcessingError struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkerID    string         `gorm:"column:worker_id;index" json:"worker_id"`
	DocumentID  string         `gorm:"column:document_id;index" json:"document_id"`
	FilePath    string         `gorm:"column:file_path" json:"file_path"`
	SchemaName  string         `gorm:"column:schema_name" json:"schema_name,omitempty"`
	Result      datatypes.JSON `gorm:"column:result" json:"result"`
	ProcessedAt time.Time      `gorm:"column:processed_at;not null;index" json:"processed_at"`
}

func (ProcessingError) TableName() string { return "processing_errors" }
