package services

import (
	"testing"

	"feed-import-service/models"
)

func TestBuildProductDTO(t *testing.T) {
	rec := models.ProductRecord{Fields: map[string]string{
		"kods":      " SKU-100 ",
		"nosaukums": "Krekls",
		"cena":      "19.99",
		"supplier":  "ACME",
		"empty":     "  ",
	}}
	mapping := map[string]string{
		"kods":      "sku",
		"nosaukums": "name",
		"cena":      "regular_price",
		"supplier":  "meta:supplier_code",
		"empty":     "description",
	}

	dto := BuildProductDTO(rec, mapping, "simple")

	if dto.SKU != "SKU-100" {
		t.Fatalf("sku = %q, want trimmed SKU-100", dto.SKU)
	}
	if dto.Name != "Krekls" {
		t.Fatalf("name = %q", dto.Name)
	}
	if dto.Fields["regular_price"] != "19.99" {
		t.Fatalf("regular_price = %q", dto.Fields["regular_price"])
	}
	if dto.Meta["supplier_code"] != "ACME" {
		t.Fatalf("meta = %v, want supplier_code=ACME", dto.Meta)
	}
	if _, ok := dto.Fields["description"]; ok {
		t.Fatal("blank source value must not populate a target")
	}
	if dto.Type != "simple" {
		t.Fatalf("type = %q", dto.Type)
	}
}

func TestBuildProductDTOVariableWhenVariationsPresent(t *testing.T) {
	rec := models.ProductRecord{
		Fields:     map[string]string{"kods": "P-1"},
		Variations: []models.VariationRecord{{Fields: map[string]string{"sku": "P-1-S"}}},
	}
	dto := BuildProductDTO(rec, map[string]string{"kods": "sku"}, "simple")
	if dto.Type != "variable" {
		t.Fatalf("type = %q, want variable", dto.Type)
	}
}

func TestBuildProductDTOSkipsVariationTargets(t *testing.T) {
	rec := models.ProductRecord{Fields: map[string]string{"price": "5.00"}}
	mapping := map[string]string{"price": "variation_price"}

	dto := BuildProductDTO(rec, mapping, "simple")
	if len(dto.Fields) != 0 {
		t.Fatalf("variation-scoped target leaked into parent fields: %v", dto.Fields)
	}
}

func TestBuildVariationDTO(t *testing.T) {
	vrec := models.VariationRecord{Fields: map[string]string{
		"sku":   "V-42",
		"price": "12.50",
		"qty":   "7",
	}}
	mapping := map[string]string{
		"variations.variation[0].sku":   "variation_sku",
		"variations.variation[0].price": "variation_price",
		"variations.variation[0].qty":   "variation_stock_quantity",
		"nosaukums":                     "name",
	}

	dto := BuildVariationDTO(vrec, mapping)

	if dto.SKU != "V-42" {
		t.Fatalf("sku = %q", dto.SKU)
	}
	if dto.Fields["price"] != "12.50" {
		t.Fatalf("price = %q", dto.Fields["price"])
	}
	if dto.Fields["stock_quantity"] != "7" {
		t.Fatalf("stock_quantity = %q", dto.Fields["stock_quantity"])
	}
	if _, ok := dto.Fields["name"]; ok {
		t.Fatal("parent-scoped mapping leaked into variation fields")
	}
}

func TestBuildVariationDTODownloads(t *testing.T) {
	vrec := models.VariationRecord{
		Fields: map[string]string{"sku": "V-1"},
		Downloads: []models.Download{
			{Name: "Manual", File: "https://cdn.example.com/manual.pdf"},
		},
	}
	mapping := map[string]string{"variations.variation[0].sku": "variation_sku"}

	first := BuildVariationDTO(vrec, mapping)
	second := BuildVariationDTO(vrec, mapping)

	if len(first.Downloads) != 1 {
		t.Fatalf("got %d downloads, want 1", len(first.Downloads))
	}
	for key := range first.Downloads {
		if _, ok := second.Downloads[key]; !ok {
			t.Fatal("download key not stable across rebuilds")
		}
	}
}

func TestDownloadKeyStableAndScopedBySKU(t *testing.T) {
	url := "https://cdn.example.com/file.zip"
	if DownloadKey(url, "A") != DownloadKey(url, "A") {
		t.Fatal("same inputs must give the same key")
	}
	if DownloadKey(url, "A") == DownloadKey(url, "B") {
		t.Fatal("different SKUs must give different keys for the same file")
	}
	if DownloadKey(url, "") == DownloadKey(url, "A") {
		t.Fatal("parent and variation keys must differ")
	}
}
