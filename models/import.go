package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportStatus is the lifecycle state of an import job.
type ImportStatus string

const (
	ImportStatusPreparing  ImportStatus = "preparing"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusPaused     ImportStatus = "paused"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// Terminal reports whether no further chunks will run without an
// explicit retry/resume transition.
func (s ImportStatus) Terminal() bool {
	return s == ImportStatusCompleted
}

// Import is a persisted import job. processed_products only ever grows;
// it is advanced once per committed chunk.
type Import struct {
	ID                uuid.UUID         `json:"id" bson:"_id"`
	Name              string            `json:"name" bson:"name"`
	FileType          string            `json:"file_type" bson:"file_type"`
	Status            ImportStatus      `json:"status" bson:"status"`
	TotalProducts     int               `json:"total_products" bson:"total_products"`
	ProcessedProducts int               `json:"processed_products" bson:"processed_products"`
	BatchSize         int               `json:"batch_size" bson:"batch_size"`
	ScheduleType      string            `json:"schedule_type" bson:"schedule_type"`
	Mapping           map[string]string `json:"mapping" bson:"mapping"`
	VariationPath     string            `json:"variation_path,omitempty" bson:"variation_path,omitempty"`
	ProductType       string            `json:"product_type" bson:"product_type"`
	CreatedAt         time.Time         `json:"created_at" bson:"created_at"`
	LastRun           *time.Time        `json:"last_run,omitempty" bson:"last_run,omitempty"`
}

// LogLevel classifies an import log entry.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// ImportLogEntry is an append-only record of one import event. Entries
// are never mutated after insert.
type ImportLogEntry struct {
	ID         uuid.UUID `json:"id" bson:"_id"`
	ImportID   uuid.UUID `json:"import_id" bson:"import_id"`
	Level      LogLevel  `json:"level" bson:"level"`
	Message    string    `json:"message" bson:"message"`
	ProductSKU string    `json:"product_sku,omitempty" bson:"product_sku,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// ChunkResult summarises one ProcessChunk invocation. Skipped means
// another worker held the chunk lock and nothing was attempted.
type ChunkResult struct {
	Status         ImportStatus     `json:"status"`
	Skipped        bool             `json:"skipped,omitempty"`
	ProcessedDelta int              `json:"processed_delta"`
	CreatedCount   int              `json:"created_count"`
	UpdatedCount   int              `json:"updated_count"`
	FailedCount    int              `json:"failed_count"`
	Logs           []ImportLogEntry `json:"logs,omitempty"`
}
