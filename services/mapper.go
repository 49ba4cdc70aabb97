package services

import (
	"crypto/md5"
	"fmt"
	"strings"

	"feed-import-service/catalog"
	"feed-import-service/models"
)

// BuildProductDTO applies the resolved mapping to one parsed record and
// returns the normalized parent product.
func BuildProductDTO(rec models.ProductRecord, mapping map[string]string, productType string) *models.ProductDTO {
	dto := &models.ProductDTO{
		Type:   productType,
		Fields: make(map[string]string),
	}

	for src, tgt := range mapping {
		raw, ok := rec.Fields[src]
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		switch {
		case strings.HasPrefix(tgt, "variation_"), catalog.IsAttributeTarget(tgt):
			// variation-scoped values are applied per variation record
		case strings.HasPrefix(tgt, catalog.MetaPrefix):
			if dto.Meta == nil {
				dto.Meta = make(map[string]string)
			}
			dto.Meta[tgt[len(catalog.MetaPrefix):]] = raw
		case tgt == "sku":
			dto.SKU = strings.TrimSpace(raw)
			dto.Fields[tgt] = strings.TrimSpace(raw)
		case tgt == "name":
			dto.Name = raw
			dto.Fields[tgt] = raw
		default:
			dto.Fields[tgt] = raw
		}
	}

	if len(rec.Variations) > 0 {
		dto.Type = "variable"
	}
	return dto
}

// BuildVariationDTO applies the variation-scoped part of the mapping to one
// variation record. Mapping sources are full feed paths; variation record
// fields are keyed by bare names, so lookup goes through the last path
// segment.
func BuildVariationDTO(vrec models.VariationRecord, mapping map[string]string) *models.VariationDTO {
	dto := &models.VariationDTO{
		Fields:     make(map[string]string),
		Attributes: make(map[string]string),
	}

	byLastSegment := make(map[string]string)
	for src, tgt := range mapping {
		if strings.HasPrefix(tgt, "variation_") {
			byLastSegment[catalog.LastSegment(src)] = strings.TrimPrefix(tgt, "variation_")
		}
	}

	for name, raw := range vrec.Fields {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if tgt, ok := byLastSegment[strings.ToLower(name)]; ok {
			dto.Fields[tgt] = raw
			if tgt == "sku" {
				dto.SKU = strings.TrimSpace(raw)
			}
		}
	}

	if len(vrec.Downloads) > 0 {
		dto.Downloads = make(map[string]models.Download, len(vrec.Downloads))
		for _, dl := range vrec.Downloads {
			dto.Downloads[DownloadKey(dl.File, dto.SKU)] = dl
		}
	}
	return dto
}

// DownloadKey derives a stable identifier for a downloadable file from
// its URL, combined with the owning SKU for variations, so re-imports
// never create duplicate file entries for the same URL.
func DownloadKey(fileURL, sku string) string {
	seed := fileURL
	if sku != "" {
		seed = fileURL + ":" + sku
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(seed)))
}
