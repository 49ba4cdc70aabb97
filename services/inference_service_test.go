package services

import (
	"context"
	"errors"
	"testing"

	"feed-import-service/models"
	"feed-import-service/oracle"
)

type stubOracle struct {
	response string
	err      error
	calls    int
	lastOpts oracle.GenerateOptions
}

func (s *stubOracle) Generate(ctx context.Context, prompt string, opts oracle.GenerateOptions) (string, error) {
	s.calls++
	s.lastOpts = opts
	return s.response, s.err
}

func TestInferMappingPartitionsEverySourceField(t *testing.T) {
	stub := &stubOracle{response: `{"mappings":{"title":"name","cena":"regular_price"},"confidence":{"title":95}}`}
	svc := NewInferenceService(stub)

	fields := []string{"title", "cena", "internal_id", "variations.variation[0].price"}
	result, err := svc.InferMapping(context.Background(), fields, nil)
	if err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}

	seen := make(map[string]int)
	for src := range result.Mappings {
		seen[src]++
	}
	for _, src := range result.Unmapped {
		seen[src]++
	}
	for _, f := range fields {
		if seen[f] != 1 {
			t.Fatalf("field %q appears %d times across mappings+unmapped, want exactly 1", f, seen[f])
		}
	}
	if len(seen) != len(fields) {
		t.Fatalf("partition covers %d fields, want %d", len(seen), len(fields))
	}
}

func TestInferMappingUsesLowTemperature(t *testing.T) {
	stub := &stubOracle{response: `{"mappings":{"title":"name"}}`}
	svc := NewInferenceService(stub)

	if _, err := svc.InferMapping(context.Background(), []string{"title"}, nil); err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}
	if stub.lastOpts.Temperature != oracleTemperature {
		t.Fatalf("temperature = %v, want %v", stub.lastOpts.Temperature, oracleTemperature)
	}
}

func TestInferMappingRecoversFencedResponse(t *testing.T) {
	stub := &stubOracle{response: "Here is the mapping you asked for:\n```json\n{\"mappings\":{\"title\":\"name\"},\"confidence\":{\"title\":90}}\n```\nLet me know if you need anything else."}
	svc := NewInferenceService(stub)

	result, err := svc.InferMapping(context.Background(), []string{"title"}, nil)
	if err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}
	if result.Mappings["title"] != "name" {
		t.Fatalf("mappings[title] = %q, want name", result.Mappings["title"])
	}
	if result.Confidence["title"] != 90 {
		t.Fatalf("confidence[title] = %d, want 90", result.Confidence["title"])
	}
}

func TestInferMappingRecoversJSONBuriedInProse(t *testing.T) {
	stub := &stubOracle{response: `Sure! Based on the field names I'd suggest {"mappings":{"cena":"regular_price"}} which covers everything.`}
	svc := NewInferenceService(stub)

	result, err := svc.InferMapping(context.Background(), []string{"cena"}, nil)
	if err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}
	if result.Mappings["cena"] != "regular_price" {
		t.Fatalf("mappings[cena] = %q, want regular_price", result.Mappings["cena"])
	}
}

func TestInferMappingSkipsStrayBraceBeforeJSON(t *testing.T) {
	stub := &stubOracle{response: `Sure { here is the mapping: {"mappings":{"title":"name"}}`}
	svc := NewInferenceService(stub)

	result, err := svc.InferMapping(context.Background(), []string{"title"}, nil)
	if err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}
	if result.Mappings["title"] != "name" {
		t.Fatalf("mappings[title] = %q, want name", result.Mappings["title"])
	}
}

func TestInferMappingAcceptsBareMappingObject(t *testing.T) {
	stub := &stubOracle{response: `{"title":"name","cena":"regular_price"}`}
	svc := NewInferenceService(stub)

	result, err := svc.InferMapping(context.Background(), []string{"title", "cena"}, nil)
	if err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}
	if result.Mappings["title"] != "name" || result.Mappings["cena"] != "regular_price" {
		t.Fatalf("unexpected mappings: %v", result.Mappings)
	}
}

func TestInferMappingDiscardsHallucinatedFields(t *testing.T) {
	stub := &stubOracle{response: `{"mappings":{"title":"name","ghost_field":"sku","cena":"not_a_real_target"}}`}
	svc := NewInferenceService(stub)

	result, err := svc.InferMapping(context.Background(), []string{"title", "cena"}, nil)
	if err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}
	if _, ok := result.Mappings["ghost_field"]; ok {
		t.Fatal("hallucinated source field survived validation")
	}
	if tgt, ok := result.Mappings["cena"]; ok && tgt == "not_a_real_target" {
		t.Fatal("invalid target survived validation")
	}
	if result.Mappings["title"] != "name" {
		t.Fatalf("valid pair dropped: %v", result.Mappings)
	}
}

func TestInferMappingAutofillsAttributePaths(t *testing.T) {
	stub := &stubOracle{response: `{"mappings":{}}`}
	svc := NewInferenceService(stub)

	fields := []string{"variations.variation[0].attributes.size"}
	result, err := svc.InferMapping(context.Background(), fields, nil)
	if err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}

	tgt := result.Mappings[fields[0]]
	if tgt != "attribute:size" {
		t.Fatalf("autofill target = %q, want attribute:size", tgt)
	}
	if result.Provenance[fields[0]] != models.ProvenanceAutofill {
		t.Fatalf("provenance = %q, want autofill", result.Provenance[fields[0]])
	}
	if result.Confidence[fields[0]] != autofillAttributeConfidence {
		t.Fatalf("confidence = %d, want %d", result.Confidence[fields[0]], autofillAttributeConfidence)
	}

	found := false
	for _, a := range result.ProductStructure.DetectedAttributes {
		if a == "size" {
			found = true
		}
	}
	if !found {
		t.Fatalf("size missing from detected attributes: %v", result.ProductStructure.DetectedAttributes)
	}
}

func TestInferMappingAutofillsSynonymFields(t *testing.T) {
	stub := &stubOracle{response: `{"mappings":{}}`}
	svc := NewInferenceService(stub)

	fields := []string{"variations.variation[0].qty", "variations.variation[0].ean"}
	result, err := svc.InferMapping(context.Background(), fields, nil)
	if err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}
	if result.Mappings[fields[0]] != "variation_stock_quantity" {
		t.Fatalf("qty mapped to %q", result.Mappings[fields[0]])
	}
	if result.Mappings[fields[1]] != "variation_gtin" {
		t.Fatalf("ean mapped to %q", result.Mappings[fields[1]])
	}
	for _, f := range fields {
		if result.Confidence[f] != autofillSynonymConfidence {
			t.Fatalf("confidence[%s] = %d, want %d", f, result.Confidence[f], autofillSynonymConfidence)
		}
	}
}

func TestInferMappingAutofillIsIdempotent(t *testing.T) {
	stub := &stubOracle{response: `{"mappings":{}}`}
	svc := NewInferenceService(stub)

	fields := []string{"variations.variation[0].attributes.color", "variations.variation[0].price", "plain_field"}
	first, err := svc.InferMapping(context.Background(), fields, nil)
	if err != nil {
		t.Fatalf("first InferMapping failed: %v", err)
	}
	second, err := svc.InferMapping(context.Background(), fields, nil)
	if err != nil {
		t.Fatalf("second InferMapping failed: %v", err)
	}

	if len(first.Mappings) != len(second.Mappings) {
		t.Fatalf("run sizes differ: %d vs %d", len(first.Mappings), len(second.Mappings))
	}
	for src, tgt := range first.Mappings {
		if second.Mappings[src] != tgt {
			t.Fatalf("mapping for %q changed between runs: %q vs %q", src, tgt, second.Mappings[src])
		}
	}
}

func TestInferMappingOracleFailure(t *testing.T) {
	stub := &stubOracle{err: errors.New("connection refused")}
	svc := NewInferenceService(stub)

	_, err := svc.InferMapping(context.Background(), []string{"title"}, nil)
	var infErr *models.SchemaInferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("error type = %T, want *SchemaInferenceError", err)
	}
}

func TestInferMappingUnparseableResponse(t *testing.T) {
	long := "I cannot produce the mapping right now because the schema looks ambiguous. " +
		"Perhaps you could clarify which of the fields is the primary identifier and then " +
		"I will be happy to produce the requested JSON document for every single field you listed above."
	stub := &stubOracle{response: long}
	svc := NewInferenceService(stub)

	_, err := svc.InferMapping(context.Background(), []string{"title"}, nil)
	var infErr *models.SchemaInferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("error type = %T, want *SchemaInferenceError", err)
	}
	if infErr.Excerpt == "" {
		t.Fatal("expected a response excerpt in the error")
	}
	if len(infErr.Excerpt) > excerptLimit+3 {
		t.Fatalf("excerpt not truncated, len=%d", len(infErr.Excerpt))
	}
}

func TestInferMappingEmptyFields(t *testing.T) {
	svc := NewInferenceService(&stubOracle{})
	if _, err := svc.InferMapping(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty source fields")
	}
}

func TestInferMappingCounts(t *testing.T) {
	stub := &stubOracle{response: `{"mappings":{"title":"name"}}`}
	svc := NewInferenceService(stub)

	fields := []string{"title", "variations.variation[0].qty", "mystery"}
	result, err := svc.InferMapping(context.Background(), fields, nil)
	if err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}

	c := result.Counts
	if c.Total != 3 || c.Oracle != 1 || c.AutoFilled != 1 || c.Unmapped != 1 {
		t.Fatalf("counts = %+v, want total 3, oracle 1, autofilled 1, unmapped 1", c)
	}
}

func TestInferMappingVariationStructureFallback(t *testing.T) {
	stub := &stubOracle{response: `{"mappings":{}}`}
	svc := NewInferenceService(stub)

	fields := []string{"title", "variations.variation[0].sku"}
	result, err := svc.InferMapping(context.Background(), fields, nil)
	if err != nil {
		t.Fatalf("InferMapping failed: %v", err)
	}

	ps := result.ProductStructure
	if !ps.HasVariations {
		t.Fatal("variation-shaped paths present but HasVariations is false")
	}
	if ps.VariationPath != "variations" {
		t.Fatalf("variation path = %q, want variations", ps.VariationPath)
	}
	if ps.Type != "variable" {
		t.Fatalf("type = %q, want variable", ps.Type)
	}
}

func TestMergeSamplesUnionsAcrossRecords(t *testing.T) {
	samples := []models.ProductRecord{
		{Fields: map[string]string{"title": "Shirt", "color": ""}},
		{Fields: map[string]string{"color": "Red", "extra": "yes"}},
	}
	merged := mergeSamples(samples)

	if merged["title"] != "Shirt" {
		t.Fatalf("title = %q", merged["title"])
	}
	if merged["color"] != "Red" {
		t.Fatalf("empty value not replaced by later sample: %q", merged["color"])
	}
	if merged["extra"] != "yes" {
		t.Fatalf("field from second record missing: %v", merged)
	}
}
