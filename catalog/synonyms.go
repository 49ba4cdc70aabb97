package catalog

import (
	"regexp"
	"strings"
)

// variationPathPattern matches source paths that live inside a repeating
// variation container, whatever the feed calls it.
var variationPathPattern = regexp.MustCompile(`(?i)variation|variant|offer`)

// IsVariationPath reports whether path looks like it belongs to a
// variation container.
func IsVariationPath(path string) bool {
	return variationPathPattern.MatchString(path)
}

// VariationSynonyms maps bare field names (the last path segment,
// lower-cased) to their variation-scoped target. Keys cover the common
// spellings seen across supplier feeds.
var VariationSynonyms = map[string]string{
	"sku":              "variation_sku",
	"price":            "variation_price",
	"regular_price":    "variation_price",
	"sale_price":       "variation_sale_price",
	"special_price":    "variation_sale_price",
	"stock":            "variation_stock_quantity",
	"stock_quantity":   "variation_stock_quantity",
	"quantity":         "variation_stock_quantity",
	"qty":              "variation_stock_quantity",
	"stock_status":     "variation_stock_status",
	"manage_stock":     "variation_manage_stock",
	"weight":           "variation_weight",
	"length":           "variation_length",
	"width":            "variation_width",
	"height":           "variation_height",
	"image":            "variation_image",
	"picture":          "variation_image",
	"description":      "variation_description",
	"virtual":          "variation_virtual",
	"is_virtual":       "variation_virtual",
	"downloadable":     "variation_downloadable",
	"is_downloadable":  "variation_downloadable",
	"download_limit":   "variation_download_limit",
	"download_expiry":  "variation_download_expiry",
	"gtin":             "variation_gtin",
	"ean":              "variation_gtin",
	"upc":              "variation_gtin",
	"barcode":          "variation_gtin",
	"backorders":       "variation_backorders",
	"low_stock_amount": "variation_low_stock_amount",
}

// ReservedVariationFields are variation record field names that carry
// system data, never attribute values. The attribute resolver skips them
// when scanning top-level variation fields.
var ReservedVariationFields = map[string]bool{
	"sku":             true,
	"price":           true,
	"sale_price":      true,
	"stock_quantity":  true,
	"stock_status":    true,
	"manage_stock":    true,
	"weight":          true,
	"length":          true,
	"width":           true,
	"height":          true,
	"virtual":         true,
	"downloadable":    true,
	"download_limit":  true,
	"download_expiry": true,
	"downloads":       true,
	"image":           true,
	"attributes":      true,
}

// FieldKeywords maps target fields to keyword hints in the languages
// supplier feeds actually arrive in. Embedded into the oracle prompt so
// the proposer has vocabulary beyond English.
var FieldKeywords = map[string][]string{
	"name":           {"title", "product_name", "nosaukums", "nazwa", "nombre", "titel", "nazvanie"},
	"description":    {"desc", "long_description", "apraksts", "opis", "descripcion", "beschreibung"},
	"regular_price":  {"price", "cena", "preis", "precio", "prix", "base_price"},
	"sale_price":     {"special_price", "discount_price", "akcijas_cena", "promo_price"},
	"stock_quantity": {"stock", "qty", "quantity", "daudzums", "ilosc", "bestand"},
	"sku":            {"article", "artikul", "item_number", "product_code", "kods"},
	"categories":     {"category", "kategorija", "kategorie", "categoria", "product_cat"},
	"images":         {"image", "picture", "photo", "attels", "bild", "img_url"},
	"brand":          {"manufacturer", "vendor", "razotajs", "marke", "marca"},
	"gtin":           {"ean", "upc", "barcode", "isbn"},
	"weight":         {"svars", "gewicht", "peso", "waga"},
}

// AttributeSegments returns the attribute name when the path's final two
// segments look like attributes.<name> or attribute.<name>, else "".
func AttributeSegments(path string) string {
	segs := splitPath(path)
	if len(segs) < 2 {
		return ""
	}
	parent := strings.ToLower(segs[len(segs)-2])
	if parent == "attributes" || parent == "attribute" {
		return strings.ToLower(segs[len(segs)-1])
	}
	return ""
}

// LastSegment returns the final path segment of a dotted/bracketed source
// path, lower-cased.
func LastSegment(path string) string {
	segs := splitPath(path)
	if len(segs) == 0 {
		return ""
	}
	return strings.ToLower(segs[len(segs)-1])
}

var indexSuffix = regexp.MustCompile(`\[\d+\]$`)

func splitPath(path string) []string {
	raw := strings.Split(path, ".")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		s = indexSuffix.ReplaceAllString(strings.TrimSpace(s), "")
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
