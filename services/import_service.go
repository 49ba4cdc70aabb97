package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"feed-import-service/models"
	"feed-import-service/repository"
)

const defaultBatchSize = 10

// ImportService is the application facade: import lifecycle, mapping
// inference and log listing behind one type the controllers talk to.
type ImportService struct {
	imports   repository.ImportStore
	feeds     repository.RecordSource
	runner    *ImportRunner
	inference *InferenceService
	queue     *redis.Client
	chunkSize int
}

// NewImportService builds the facade. chunkSize is the configured batch
// size applied to imports that do not request their own.
func NewImportService(imports repository.ImportStore, feeds repository.RecordSource, runner *ImportRunner, inference *InferenceService, chunkSize int) *ImportService {
	if chunkSize <= 0 {
		chunkSize = defaultBatchSize
	}
	return &ImportService{
		imports:   imports,
		feeds:     feeds,
		runner:    runner,
		inference: inference,
		chunkSize: chunkSize,
	}
}

// WithQueue enables background processing: non-manual imports and
// resumed or retried imports are handed to the redis worker queue.
func (s *ImportService) WithQueue(rdb *redis.Client) *ImportService {
	s.queue = rdb
	return s
}

func (s *ImportService) enqueue(ctx context.Context, id uuid.UUID) {
	if s.queue == nil {
		return
	}
	if err := EnqueueImport(ctx, s.queue, id); err != nil {
		zap.L().Error("enqueue import failed", zap.String("import_id", id.String()), zap.Error(err))
	}
}

// CreateImport stores the parsed feed and registers the job in the
// preparing state. Nothing is written to the catalog until the first
// chunk runs.
func (s *ImportService) CreateImport(ctx context.Context, req *CreateImportRequest) (*models.Import, error) {
	imp := &models.Import{
		ID:            uuid.New(),
		Name:          req.Name,
		FileType:      req.FileType,
		Status:        models.ImportStatusPreparing,
		BatchSize:     req.BatchSize,
		ScheduleType:  req.ScheduleType,
		Mapping:       req.Mapping,
		VariationPath: req.VariationPath,
		ProductType:   req.ProductType,
		CreatedAt:     time.Now().UTC(),
	}
	if imp.BatchSize <= 0 {
		imp.BatchSize = s.chunkSize
	}
	if imp.ScheduleType == "" {
		imp.ScheduleType = "manual"
	}
	if imp.ProductType == "" {
		imp.ProductType = "simple"
	}

	if err := s.feeds.SaveFeed(ctx, imp.ID, req.Fields, req.Records); err != nil {
		return nil, fmt.Errorf("save feed for import %s: %w", imp.ID, err)
	}

	// The stored feed is authoritative for the total, not the request
	// payload.
	total, err := s.feeds.Count(ctx, imp.ID)
	if err != nil {
		return nil, fmt.Errorf("count feed records for import %s: %w", imp.ID, err)
	}
	imp.TotalProducts = total

	if err := s.imports.CreateImport(ctx, imp); err != nil {
		return nil, fmt.Errorf("create import: %w", err)
	}

	zap.L().Info("import created",
		zap.String("import_id", imp.ID.String()),
		zap.String("name", imp.Name),
		zap.Int("total_products", imp.TotalProducts))

	// Manual imports are driven through the process endpoint; scheduled
	// ones go straight to the background worker.
	if imp.ScheduleType != "manual" {
		s.enqueue(ctx, imp.ID)
	}
	return imp, nil
}

func (s *ImportService) GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	return s.imports.GetImport(ctx, id)
}

// FeedFields returns the source field list of an import's stored feed,
// for remapping an already uploaded feed.
func (s *ImportService) FeedFields(ctx context.Context, id uuid.UUID) ([]string, error) {
	if _, err := s.imports.GetImport(ctx, id); err != nil {
		return nil, err
	}
	return s.feeds.Fields(ctx, id)
}

func (s *ImportService) ListImports(ctx context.Context, limit int) ([]models.Import, error) {
	return s.imports.ListImports(ctx, limit)
}

// Pause suspends a running import between chunks. The chunk in flight,
// if any, finishes and commits; no new chunk starts afterwards.
func (s *ImportService) Pause(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	return s.transition(ctx, id, models.ImportStatusPaused,
		models.ImportStatusPreparing, models.ImportStatusProcessing)
}

// Resume puts a paused import back into processing. Progress picks up
// from processed_products; nothing is replayed.
func (s *ImportService) Resume(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	imp, err := s.transition(ctx, id, models.ImportStatusProcessing, models.ImportStatusPaused)
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, id)
	return imp, nil
}

// Retry puts a failed import back into processing at its committed
// offset.
func (s *ImportService) Retry(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	imp, err := s.transition(ctx, id, models.ImportStatusProcessing, models.ImportStatusFailed)
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, id)
	return imp, nil
}

func (s *ImportService) transition(ctx context.Context, id uuid.UUID, to models.ImportStatus, from ...models.ImportStatus) (*models.Import, error) {
	imp, err := s.imports.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, st := range from {
		if imp.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("import %s is %s, cannot move to %s", id, imp.Status, to)
	}

	if err := s.imports.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	imp.Status = to
	zap.L().Info("import status changed",
		zap.String("import_id", id.String()),
		zap.String("status", string(to)))
	return imp, nil
}

func (s *ImportService) ProcessChunk(ctx context.Context, id uuid.UUID) (*models.ChunkResult, error) {
	return s.runner.ProcessChunk(ctx, id)
}

func (s *ImportService) InferMapping(ctx context.Context, req *InferMappingRequest) (*models.InferenceResult, error) {
	return s.inference.InferMapping(ctx, req.Fields, req.Samples)
}

func (s *ImportService) ListLogs(ctx context.Context, id uuid.UUID, q ListLogsQuery) ([]models.ImportLogEntry, error) {
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.imports.ListLogs(ctx, id, limit, q.Level, q.Excluding)
}
