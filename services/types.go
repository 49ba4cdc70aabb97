package services

import "feed-import-service/models"

// CreateImportRequest carries everything needed to register a new import
// job together with its parsed feed records.
type CreateImportRequest struct {
	Name          string                 `json:"name" validate:"required"`
	FileType      string                 `json:"file_type" validate:"required,oneof=xml csv"`
	BatchSize     int                    `json:"batch_size" validate:"omitempty,min=1,max=500"`
	ScheduleType  string                 `json:"schedule_type" validate:"omitempty,oneof=manual hourly daily"`
	ProductType   string                 `json:"product_type" validate:"omitempty,oneof=simple variable"`
	Mapping       map[string]string      `json:"mapping" validate:"required,min=1"`
	VariationPath string                 `json:"variation_path"`
	Fields        []string               `json:"fields" validate:"required,min=1"`
	Records       []models.ProductRecord `json:"records" validate:"required,min=1"`
}

// InferMappingRequest is the payload for the mapping inference endpoint.
type InferMappingRequest struct {
	Fields  []string               `json:"fields" validate:"required,min=1"`
	Samples []models.ProductRecord `json:"samples" validate:"omitempty,max=20"`
}

// ListLogsQuery filters the import log listing.
type ListLogsQuery struct {
	Limit     int             `json:"limit"`
	Level     models.LogLevel `json:"level"`
	Excluding []string        `json:"excluding"`
}
