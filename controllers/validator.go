package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"feed-import-service/catalog"
	"feed-import-service/models"
	"feed-import-service/services"
)

// Validation constants
const (
	MaxListLimit = 500
	MaxLogLimit  = 500
)

// RequestValidator handles all input validation
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(),
	}
}

// ParseImportID validates the :id path parameter.
func (rv *RequestValidator) ParseImportID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid import id")
	}
	return id, nil
}

// ParseListLimit validates the limit query parameter with a default.
func (rv *RequestValidator) ParseListLimit(c *gin.Context, def, max int) (int, error) {
	raw := strings.TrimSpace(c.DefaultQuery("limit", strconv.Itoa(def)))
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.New("invalid limit value")
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}

// ParseCreateImportRequest validates the import creation payload,
// including that every mapping target is a known catalog field.
func (rv *RequestValidator) ParseCreateImportRequest(c *gin.Context) (*services.CreateImportRequest, error) {
	var req services.CreateImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if err := rv.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	for src, tgt := range req.Mapping {
		if strings.TrimSpace(src) == "" {
			return nil, errors.New("mapping contains an empty source field")
		}
		if !catalog.IsTarget(tgt) {
			return nil, fmt.Errorf("unknown mapping target %q for source %q", tgt, src)
		}
	}
	return &req, nil
}

// ParseInferMappingRequest validates the inference payload.
func (rv *RequestValidator) ParseInferMappingRequest(c *gin.Context) (*services.InferMappingRequest, error) {
	var req services.InferMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if err := rv.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	for _, f := range req.Fields {
		if strings.TrimSpace(f) == "" {
			return nil, errors.New("fields contains an empty entry")
		}
	}
	return &req, nil
}

// ParseListLogsQuery validates log listing filters. The excluding
// parameter takes comma-separated substrings to hide from the result.
func (rv *RequestValidator) ParseListLogsQuery(c *gin.Context) (services.ListLogsQuery, error) {
	q := services.ListLogsQuery{}

	limit, err := rv.ParseListLimit(c, 100, MaxLogLimit)
	if err != nil {
		return q, err
	}
	q.Limit = limit

	if raw := strings.TrimSpace(c.Query("level")); raw != "" {
		switch models.LogLevel(raw) {
		case models.LogLevelInfo, models.LogLevelSuccess, models.LogLevelWarning, models.LogLevelError:
			q.Level = models.LogLevel(raw)
		default:
			return q, fmt.Errorf("invalid log level %q", raw)
		}
	}

	if raw := strings.TrimSpace(c.Query("excluding")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				q.Excluding = append(q.Excluding, part)
			}
		}
	}
	return q, nil
}
