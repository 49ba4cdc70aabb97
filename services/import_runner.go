package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"feed-import-service/catalog"
	"feed-import-service/models"
	"feed-import-service/repository"
)

// ImportRunner executes one chunk of an import at a time. A chunk call
// is safe to repeat and safe to race: the per-import lock makes
// concurrent triggers a no-op, and progress only moves forward through
// CommitChunk.
type ImportRunner struct {
	imports      repository.ImportStore
	feeds        repository.RecordSource
	catalog      repository.CatalogStore
	locker       *ChunkLocker
	resolver     *AttributeResolver
	defaultBatch int
}

// NewImportRunner builds a runner. defaultBatch is the operator-level
// chunk bound, used for imports that did not set their own batch size.
func NewImportRunner(imports repository.ImportStore, feeds repository.RecordSource, cat repository.CatalogStore, locker *ChunkLocker, resolver *AttributeResolver, defaultBatch int) *ImportRunner {
	if defaultBatch <= 0 {
		defaultBatch = defaultBatchSize
	}
	return &ImportRunner{
		imports:      imports,
		feeds:        feeds,
		catalog:      cat,
		locker:       locker,
		resolver:     resolver,
		defaultBatch: defaultBatch,
	}
}

// ProcessChunk runs the next chunk of records for an import. Terminal
// and suspended imports return immediately; everything else advances
// processed_products by the number of records attempted, whether each
// record succeeded or not, so a re-run never re-reads the same slice.
func (r *ImportRunner) ProcessChunk(ctx context.Context, importID uuid.UUID) (*models.ChunkResult, error) {
	imp, err := r.imports.GetImport(ctx, importID)
	if err != nil {
		return nil, fmt.Errorf("load import %s: %w", importID, err)
	}

	switch imp.Status {
	case models.ImportStatusCompleted, models.ImportStatusPaused, models.ImportStatusFailed:
		return &models.ChunkResult{Status: imp.Status}, nil
	}

	if r.locker != nil {
		token, ok, err := r.locker.Acquire(ctx, importID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &models.ChunkResult{Status: imp.Status, Skipped: true}, nil
		}
		defer r.locker.Release(ctx, importID, token)
	}

	if imp.Status == models.ImportStatusPreparing {
		if err := r.imports.UpdateStatus(ctx, importID, models.ImportStatusProcessing); err != nil {
			return nil, fmt.Errorf("start import %s: %w", importID, err)
		}
		imp.Status = models.ImportStatusProcessing
	}

	offset := imp.ProcessedProducts
	if imp.TotalProducts > 0 && offset >= imp.TotalProducts {
		if err := r.imports.UpdateStatus(ctx, importID, models.ImportStatusCompleted); err != nil {
			return nil, err
		}
		return &models.ChunkResult{Status: models.ImportStatusCompleted}, nil
	}

	batch := imp.BatchSize
	if batch <= 0 {
		batch = r.defaultBatch
	}

	records, err := r.feeds.Slice(ctx, importID, offset, batch)
	if err != nil {
		readErr := &models.ChunkReadError{Offset: offset, Err: err}
		entry := newLog(importID, models.LogLevelError, readErr.Error(), "")
		if commitErr := r.imports.CommitChunk(ctx, importID, 0, models.ImportStatusFailed, []models.ImportLogEntry{entry}); commitErr != nil {
			zap.L().Error("chunk failure commit failed", zap.String("import_id", importID.String()), zap.Error(commitErr))
		}
		return nil, readErr
	}
	if len(records) == 0 {
		if err := r.imports.UpdateStatus(ctx, importID, models.ImportStatusCompleted); err != nil {
			return nil, err
		}
		return &models.ChunkResult{Status: models.ImportStatusCompleted}, nil
	}

	result := &models.ChunkResult{ProcessedDelta: len(records)}
	for _, rec := range records {
		entry, created, err := r.importRecord(ctx, imp, rec)
		if err != nil {
			result.FailedCount++
			var upsertErr *models.ProductUpsertError
			sku := ""
			if errors.As(err, &upsertErr) {
				sku = upsertErr.SKU
			}
			result.Logs = append(result.Logs, newLog(importID, models.LogLevelError, err.Error(), sku))
			continue
		}
		if created {
			result.CreatedCount++
		} else {
			result.UpdatedCount++
		}
		result.Logs = append(result.Logs, entry)
	}

	result.Status = models.ImportStatusProcessing
	if imp.TotalProducts > 0 && offset+len(records) >= imp.TotalProducts {
		result.Status = models.ImportStatusCompleted
	}

	if err := r.imports.CommitChunk(ctx, importID, result.ProcessedDelta, result.Status, result.Logs); err != nil {
		return nil, fmt.Errorf("commit chunk for import %s: %w", importID, err)
	}
	return result, nil
}

// importRecord upserts one parent product and, for variable products,
// its attribute terms and variations. The returned flag reports whether
// the parent was created rather than updated.
func (r *ImportRunner) importRecord(ctx context.Context, imp *models.Import, rec models.ProductRecord) (models.ImportLogEntry, bool, error) {
	dto := BuildProductDTO(rec, imp.Mapping, imp.ProductType)
	if dto.SKU == "" {
		return models.ImportLogEntry{}, false, &models.ProductUpsertError{SKU: "", Err: errors.New("record has no mapped sku")}
	}

	existingID, err := r.catalog.FindBySKU(ctx, dto.SKU)
	if err != nil {
		return models.ImportLogEntry{}, false, &models.ProductUpsertError{SKU: dto.SKU, Err: fmt.Errorf("sku lookup: %w", err)}
	}
	created := existingID == ""

	var resolved *ResolvedAttributes
	if dto.Type == "variable" {
		resolved = r.resolver.Resolve(rec.Variations, imp.Mapping)
		dto.Attributes = resolved.Definitions
	}

	productID, err := r.catalog.UpsertProduct(ctx, dto)
	if err != nil {
		return models.ImportLogEntry{}, false, &models.ProductUpsertError{SKU: dto.SKU, Err: err}
	}

	if dto.Type == "variable" {
		if err := r.importVariations(ctx, imp, rec, dto, resolved, productID); err != nil {
			return models.ImportLogEntry{}, false, err
		}
	}

	action := "updated"
	if created {
		action = "created"
	}
	msg := fmt.Sprintf("product %s %s", dto.SKU, action)
	if n := len(rec.Variations); n > 0 {
		msg = fmt.Sprintf("%s with %d variations", msg, n)
	}
	return newLog(imp.ID, models.LogLevelSuccess, msg, dto.SKU), created, nil
}

func (r *ImportRunner) importVariations(ctx context.Context, imp *models.Import, rec models.ProductRecord, dto *models.ProductDTO, resolved *ResolvedAttributes, productID string) error {
	for _, def := range resolved.Definitions {
		taxonomy := catalog.AttributeTaxonomy(def.Name)
		for _, option := range def.Options {
			if err := r.catalog.EnsureAttributeTerm(ctx, taxonomy, catalog.Slugify(option), option); err != nil {
				return &models.ProductUpsertError{SKU: dto.SKU, Err: fmt.Errorf("attribute term %s/%s: %w", taxonomy, option, err)}
			}
		}
	}

	for i, vrec := range rec.Variations {
		vdto := BuildVariationDTO(vrec, imp.Mapping)
		vdto.Attributes = resolved.Assignments[i]
		if _, err := r.catalog.UpsertVariation(ctx, productID, vdto); err != nil {
			sku := vdto.SKU
			if sku == "" {
				sku = dto.SKU
			}
			return &models.ProductUpsertError{SKU: sku, Err: fmt.Errorf("variation %d: %w", i, err)}
		}
	}

	for _, note := range resolved.Notes {
		zap.L().Warn("attribute collision", zap.String("import_id", imp.ID.String()), zap.String("sku", dto.SKU), zap.String("note", note))
	}

	if err := r.catalog.SyncVariableProduct(ctx, productID); err != nil {
		return &models.ProductUpsertError{SKU: dto.SKU, Err: fmt.Errorf("sync variable product: %w", err)}
	}
	return nil
}

func newLog(importID uuid.UUID, level models.LogLevel, message, sku string) models.ImportLogEntry {
	return models.ImportLogEntry{
		ID:         uuid.New(),
		ImportID:   importID,
		Level:      level,
		Message:    message,
		ProductSKU: sku,
		CreatedAt:  time.Now().UTC(),
	}
}
