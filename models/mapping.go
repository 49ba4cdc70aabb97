package models

// MappingProvenance records how a source field ended up mapped.
type MappingProvenance string

const (
	ProvenanceOracle   MappingProvenance = "oracle"
	ProvenanceAutofill MappingProvenance = "autofill"
)

// ProductStructure describes the detected shape of a feed.
type ProductStructure struct {
	Type               string   `json:"type"` // "simple" or "variable"
	HasVariations      bool     `json:"has_variations"`
	VariationPath      string   `json:"variation_path,omitempty"`
	DetectedAttributes []string `json:"detected_attributes,omitempty"`
}

// MappingCounts breaks the source fields down by how they were resolved.
type MappingCounts struct {
	Total      int `json:"total"`
	Oracle     int `json:"oracle"`
	AutoFilled int `json:"auto_filled"`
	Unmapped   int `json:"unmapped"`
}

// InferenceResult is the outcome of a mapping inference run. Every source
// field appears either in Mappings or in Unmapped, never both, never
// neither.
type InferenceResult struct {
	Mappings         map[string]string            `json:"mappings"`
	Confidence       map[string]int               `json:"confidence"`
	Provenance       map[string]MappingProvenance `json:"provenance"`
	Unmapped         []string                     `json:"unmapped"`
	ProductStructure ProductStructure             `json:"product_structure"`
	Counts           MappingCounts                `json:"counts"`
}
