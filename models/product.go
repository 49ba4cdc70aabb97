package models

// ProductRecord is one parsed feed row: flat source-field paths mapped to
// raw values, plus any nested variation rows the parser extracted. Records
// are transient; they live only for the duration of one chunk.
type ProductRecord struct {
	Fields     map[string]string `json:"fields"`
	Variations []VariationRecord `json:"variations,omitempty"`
}

// VariationRecord is one variation row scoped under the feed's variation
// path. Attributes holds the explicit attributes container when the feed
// has one; attribute-like top-level fields stay in Fields.
type VariationRecord struct {
	Fields     map[string]string `json:"fields"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Downloads  []Download        `json:"downloads,omitempty"`
}

// Download is a downloadable file attached to a product or variation.
type Download struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// ProductDTO is the normalized product handed to the catalog store.
type ProductDTO struct {
	SKU        string              `json:"sku"`
	Name       string              `json:"name"`
	Type       string              `json:"type"` // "simple" or "variable"
	Fields     map[string]string   `json:"fields"`
	Meta       map[string]string   `json:"meta,omitempty"`
	Attributes []AttributeDTO      `json:"attributes,omitempty"`
	Downloads  map[string]Download `json:"downloads,omitempty"`
}

// AttributeDTO is a product-level attribute definition: a named axis of
// variation with its ordered option list.
type AttributeDTO struct {
	Key       string   `json:"key"`  // normalized slug key
	Name      string   `json:"name"` // display name
	Options   []string `json:"options"`
	Variation bool     `json:"variation"`
}

// VariationDTO is one normalized variation of a variable product. The
// Attributes map carries slug keys and slug values; the catalog store
// matches variations to parent option lists by slug equality.
type VariationDTO struct {
	SKU        string              `json:"sku"`
	Fields     map[string]string   `json:"fields"`
	Attributes map[string]string   `json:"attributes"`
	Downloads  map[string]Download `json:"downloads,omitempty"`
}
