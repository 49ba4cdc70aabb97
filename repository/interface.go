package repository

import (
	"context"

	"feed-import-service/models"

	"github.com/google/uuid"
)

// ImportStore persists import jobs and their append-only log entries.
type ImportStore interface {
	CreateImport(ctx context.Context, imp *models.Import) error
	GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error)
	ListImports(ctx context.Context, limit int) ([]models.Import, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ImportStatus) error
	// CommitChunk advances processed_products by delta, sets the status and
	// last_run, and appends the chunk's log entries. Progress and logs
	// commit together: a reader never observes the counter advance without
	// the corresponding entries existing.
	CommitChunk(ctx context.Context, id uuid.UUID, delta int, status models.ImportStatus, logs []models.ImportLogEntry) error
	AppendLog(ctx context.Context, entry models.ImportLogEntry) error
	// ListLogs returns the most recent entries for an import, newest first.
	// An empty level matches all levels; excluding patterns drop entries
	// whose message matches any of them.
	ListLogs(ctx context.Context, importID uuid.UUID, limit int, level models.LogLevel, excluding []string) ([]models.ImportLogEntry, error)
}

// RecordSource hands out the parsed product records of a feed. The core
// depends only on this shape, never on XML/CSV specifics.
type RecordSource interface {
	SaveFeed(ctx context.Context, importID uuid.UUID, fields []string, records []models.ProductRecord) error
	Fields(ctx context.Context, importID uuid.UUID) ([]string, error)
	// Slice returns records[offset:offset+limit], clamped to the feed end.
	Slice(ctx context.Context, importID uuid.UUID, offset, limit int) ([]models.ProductRecord, error)
	Count(ctx context.Context, importID uuid.UUID) (int, error)
}

// CatalogStore is the external key-by-SKU upsert store the import writes
// into. Implementations live outside this service; the runner only needs
// these five operations.
type CatalogStore interface {
	// FindBySKU returns the catalog id for a SKU, or "" when absent.
	FindBySKU(ctx context.Context, sku string) (string, error)
	UpsertProduct(ctx context.Context, dto *models.ProductDTO) (string, error)
	UpsertVariation(ctx context.Context, parentID string, dto *models.VariationDTO) (string, error)
	// EnsureAttributeTerm creates the vocabulary term for (taxonomy, slug)
	// unless it already exists.
	EnsureAttributeTerm(ctx context.Context, taxonomy, slug, displayName string) error
	// SyncVariableProduct recalculates a variable product's lookup data
	// after its variations changed.
	SyncVariableProduct(ctx context.Context, id string) error
}
