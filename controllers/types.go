package controllers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"feed-import-service/models"
	"feed-import-service/services"
)

// Config holds controller configuration
type Config struct {
	ContextTimeout time.Duration
	InferTimeout   time.Duration
}

// Default configuration values
const (
	DefaultContextTimeout = 30 * time.Second
	// Mapping inference waits on the language model, so it gets a
	// longer leash than plain CRUD calls.
	DefaultInferTimeout = 90 * time.Second
)

// ImportAPI defines the interface for import service operations
type ImportAPI interface {
	CreateImport(ctx context.Context, req *services.CreateImportRequest) (*models.Import, error)
	GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error)
	ListImports(ctx context.Context, limit int) ([]models.Import, error)
	FeedFields(ctx context.Context, id uuid.UUID) ([]string, error)
	Pause(ctx context.Context, id uuid.UUID) (*models.Import, error)
	Resume(ctx context.Context, id uuid.UUID) (*models.Import, error)
	Retry(ctx context.Context, id uuid.UUID) (*models.Import, error)
	ProcessChunk(ctx context.Context, id uuid.UUID) (*models.ChunkResult, error)
	InferMapping(ctx context.Context, req *services.InferMappingRequest) (*models.InferenceResult, error)
	ListLogs(ctx context.Context, id uuid.UUID, q services.ListLogsQuery) ([]models.ImportLogEntry, error)
}
