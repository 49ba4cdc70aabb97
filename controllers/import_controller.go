package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"feed-import-service/models"
)

// ImportController exposes the import lifecycle and mapping inference
// over HTTP.
type ImportController struct {
	svc       ImportAPI
	validator *RequestValidator
	config    Config
}

func NewImportController(svc ImportAPI, cfg Config) *ImportController {
	if cfg.ContextTimeout <= 0 {
		cfg.ContextTimeout = DefaultContextTimeout
	}
	if cfg.InferTimeout <= 0 {
		cfg.InferTimeout = DefaultInferTimeout
	}
	return &ImportController{
		svc:       svc,
		validator: NewRequestValidator(),
		config:    cfg,
	}
}

// CreateImport registers a new import job with its parsed feed.
func (ic *ImportController) CreateImport(c *gin.Context) {
	req, err := ic.validator.ParseCreateImportRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.config.ContextTimeout)
	defer cancel()

	imp, err := ic.svc.CreateImport(ctx, req)
	if err != nil {
		zap.L().Error("Error creating import", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create import"})
		return
	}
	c.JSON(http.StatusCreated, imp)
}

// GetImport returns one import job with its progress counters.
func (ic *ImportController) GetImport(c *gin.Context) {
	id, err := ic.validator.ParseImportID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.config.ContextTimeout)
	defer cancel()

	imp, err := ic.svc.GetImport(ctx, id)
	if err != nil {
		ic.renderLookupError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, imp)
}

// FeedFields returns the source field list of an import's stored feed.
func (ic *ImportController) FeedFields(c *gin.Context) {
	id, err := ic.validator.ParseImportID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.config.ContextTimeout)
	defer cancel()

	fields, err := ic.svc.FeedFields(ctx, id)
	if err != nil {
		ic.renderLookupError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields, "count": len(fields)})
}

// ListImports returns recent import jobs, newest first.
func (ic *ImportController) ListImports(c *gin.Context) {
	limit, err := ic.validator.ParseListLimit(c, 50, MaxListLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.config.ContextTimeout)
	defer cancel()

	imports, err := ic.svc.ListImports(ctx, limit)
	if err != nil {
		zap.L().Error("Error listing imports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list imports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imports": imports, "count": len(imports)})
}

// ProcessChunk runs the next chunk of an import synchronously.
func (ic *ImportController) ProcessChunk(c *gin.Context) {
	id, err := ic.validator.ParseImportID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.config.ContextTimeout)
	defer cancel()

	result, err := ic.svc.ProcessChunk(ctx, id)
	if err != nil {
		var readErr *models.ChunkReadError
		if errors.As(err, &readErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": readErr.Error()})
			return
		}
		zap.L().Error("Error processing chunk", zap.String("import_id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process chunk"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Pause suspends a running import between chunks.
func (ic *ImportController) Pause(c *gin.Context) {
	ic.transition(c, ic.svc.Pause)
}

// Resume continues a paused import from its committed offset.
func (ic *ImportController) Resume(c *gin.Context) {
	ic.transition(c, ic.svc.Resume)
}

// Retry puts a failed import back into processing.
func (ic *ImportController) Retry(c *gin.Context) {
	ic.transition(c, ic.svc.Retry)
}

func (ic *ImportController) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*models.Import, error)) {
	id, err := ic.validator.ParseImportID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.config.ContextTimeout)
	defer cancel()

	imp, err := fn(ctx, id)
	if err != nil {
		// Invalid transitions read as client errors, not server faults.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, imp)
}

// ListLogs returns recent log entries for an import, newest first.
func (ic *ImportController) ListLogs(c *gin.Context) {
	id, err := ic.validator.ParseImportID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q, err := ic.validator.ParseListLogsQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.config.ContextTimeout)
	defer cancel()

	logs, err := ic.svc.ListLogs(ctx, id, q)
	if err != nil {
		ic.renderLookupError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// InferMapping asks the inference engine for a field mapping proposal.
func (ic *ImportController) InferMapping(c *gin.Context) {
	req, err := ic.validator.ParseInferMappingRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.config.InferTimeout)
	defer cancel()

	result, err := ic.svc.InferMapping(ctx, req)
	if err != nil {
		var infErr *models.SchemaInferenceError
		if errors.As(err, &infErr) {
			zap.L().Warn("Mapping inference failed", zap.String("reason", infErr.Reason), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": infErr.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ic *ImportController) renderLookupError(c *gin.Context, id uuid.UUID, err error) {
	if errors.Is(err, models.ErrImportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Import not found"})
		return
	}
	zap.L().Error("Error loading import", zap.String("import_id", id.String()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load import"})
}
