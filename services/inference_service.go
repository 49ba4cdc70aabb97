package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"feed-import-service/catalog"
	"feed-import-service/models"
	"feed-import-service/oracle"

	"go.uber.org/zap"
)

const (
	// MaxSampleRecords bounds how many sample records get merged into the
	// prompt. Different records expose different optional fields, so the
	// merge is a union across samples, not just the first record.
	MaxSampleRecords = 5

	autofillAttributeConfidence = 85
	autofillSynonymConfidence   = 80
	defaultOracleConfidence     = 70

	oracleTemperature = 0.1
	oracleMaxTokens   = 4096

	excerptLimit = 240
)

// InferenceService proposes a complete source-field to target-field
// mapping. The oracle produces the proposal; recovery, validation and
// auto-fill after it are deterministic and guarantee that
// every source field is accounted for.
type InferenceService struct {
	oracle oracle.Client
}

func NewInferenceService(client oracle.Client) *InferenceService {
	return &InferenceService{oracle: client}
}

// oracleProposal is the JSON shape requested from the oracle.
type oracleProposal struct {
	Mappings         map[string]string `json:"mappings"`
	Confidence       map[string]int    `json:"confidence"`
	Unmapped         []string          `json:"unmapped"`
	ProductStructure struct {
		Type               string   `json:"type"`
		HasVariations      bool     `json:"has_variations"`
		VariationPath      string   `json:"variation_path"`
		DetectedAttributes []string `json:"detected_attributes"`
	} `json:"product_structure"`
}

// InferMapping builds the full mapping for sourceFields. Every source
// field ends up either in Mappings or in Unmapped; the two sets partition
// the input exactly.
func (s *InferenceService) InferMapping(ctx context.Context, sourceFields []string, samples []models.ProductRecord) (*models.InferenceResult, error) {
	if len(sourceFields) == 0 {
		return nil, fmt.Errorf("no source fields to map")
	}

	prompt := buildMappingPrompt(sourceFields, mergeSamples(samples))

	raw, err := s.oracle.Generate(ctx, prompt, oracle.GenerateOptions{
		Temperature:     oracleTemperature,
		MaxOutputTokens: oracleMaxTokens,
	})
	if err != nil {
		return nil, &models.SchemaInferenceError{Reason: "oracle call failed", Err: err}
	}

	proposal, err := recoverProposal(raw)
	if err != nil {
		return nil, err
	}

	sourceSet := make(map[string]bool, len(sourceFields))
	for _, f := range sourceFields {
		sourceSet[f] = true
	}

	result := &models.InferenceResult{
		Mappings:   make(map[string]string),
		Confidence: make(map[string]int),
		Provenance: make(map[string]models.MappingProvenance),
	}
	var detected []string

	// Validation: keep only pairs whose source actually exists in the feed
	// and whose target exists in the catalog. Everything else is a
	// hallucination and gets dropped.
	discarded := 0
	for src, tgt := range proposal.Mappings {
		if !sourceSet[src] || !catalog.IsTarget(tgt) {
			discarded++
			continue
		}
		result.Mappings[src] = tgt
		result.Provenance[src] = models.ProvenanceOracle
		if conf, ok := proposal.Confidence[src]; ok && conf >= 0 && conf <= 100 {
			result.Confidence[src] = conf
		} else {
			result.Confidence[src] = defaultOracleConfidence
		}
		if name := catalog.AttributeName(tgt); name != "" {
			detected = append(detected, strings.ToLower(name))
		}
	}
	if discarded > 0 {
		zap.L().Warn("discarded invalid oracle mappings", zap.Int("count", discarded))
	}

	// Deterministic auto-fill for the fields the oracle missed.
	for _, f := range sourceFields {
		if _, ok := result.Mappings[f]; ok {
			continue
		}
		tgt, conf, attr := autofillTarget(f)
		if tgt == "" {
			result.Unmapped = append(result.Unmapped, f)
			continue
		}
		result.Mappings[f] = tgt
		result.Confidence[f] = conf
		result.Provenance[f] = models.ProvenanceAutofill
		if attr != "" {
			detected = append(detected, attr)
		}
	}

	detected = append(detected, proposal.ProductStructure.DetectedAttributes...)

	result.ProductStructure = buildStructure(proposal, sourceFields, detected)
	result.Counts = countMappings(result, len(sourceFields))
	return result, nil
}

// autofillTarget resolves one unmapped field deterministically. It only
// fires for variation-shaped paths; everything else stays genuinely
// unmapped for the caller to resolve. Pure function of path and the
// synonym table, so running it twice gives the same answer.
func autofillTarget(field string) (target string, confidence int, attribute string) {
	if !catalog.IsVariationPath(field) {
		return "", 0, ""
	}
	if name := catalog.AttributeSegments(field); name != "" {
		return catalog.AttributePrefix + name, autofillAttributeConfidence, name
	}
	if tgt, ok := catalog.VariationSynonyms[catalog.LastSegment(field)]; ok {
		return tgt, autofillSynonymConfidence, ""
	}
	return "", 0, ""
}

func buildStructure(proposal *oracleProposal, sourceFields []string, detected []string) models.ProductStructure {
	structure := models.ProductStructure{
		Type:          proposal.ProductStructure.Type,
		HasVariations: proposal.ProductStructure.HasVariations,
		VariationPath: proposal.ProductStructure.VariationPath,
	}

	// Case-insensitive dedupe, first spelling wins.
	seen := make(map[string]bool)
	for _, name := range detected {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		structure.DetectedAttributes = append(structure.DetectedAttributes, key)
	}
	sort.Strings(structure.DetectedAttributes)

	if !structure.HasVariations {
		for _, f := range sourceFields {
			if catalog.IsVariationPath(f) {
				structure.HasVariations = true
				break
			}
		}
	}
	if structure.VariationPath == "" && structure.HasVariations {
		structure.VariationPath = detectVariationPath(sourceFields)
	}
	if structure.Type == "" {
		if structure.HasVariations || len(structure.DetectedAttributes) > 0 {
			structure.Type = "variable"
		} else {
			structure.Type = "simple"
		}
	}
	return structure
}

// detectVariationPath cuts the first variation-shaped path at the segment
// that matched, giving the prefix of the repeating container.
func detectVariationPath(sourceFields []string) string {
	for _, f := range sourceFields {
		if !catalog.IsVariationPath(f) {
			continue
		}
		segs := strings.Split(f, ".")
		for i, seg := range segs {
			if catalog.IsVariationPath(seg) {
				return strings.Join(segs[:i+1], ".")
			}
		}
	}
	return ""
}

func countMappings(result *models.InferenceResult, total int) models.MappingCounts {
	counts := models.MappingCounts{Total: total, Unmapped: len(result.Unmapped)}
	for _, prov := range result.Provenance {
		switch prov {
		case models.ProvenanceOracle:
			counts.Oracle++
		case models.ProvenanceAutofill:
			counts.AutoFilled++
		}
	}
	return counts
}

// mergeSamples unions the field paths seen across up to MaxSampleRecords
// records, keeping the first non-empty value per path as representative.
func mergeSamples(samples []models.ProductRecord) map[string]string {
	merged := make(map[string]string)
	for i, rec := range samples {
		if i >= MaxSampleRecords {
			break
		}
		for path, value := range flattenRecord(rec) {
			if existing, ok := merged[path]; !ok || existing == "" {
				if !ok || value != "" {
					merged[path] = value
				}
			}
		}
	}
	return merged
}

// flattenRecord expands a record into full source paths, including the
// nested variation rows.
func flattenRecord(rec models.ProductRecord) map[string]string {
	flat := make(map[string]string, len(rec.Fields))
	for k, v := range rec.Fields {
		flat[k] = v
	}
	for i, vrec := range rec.Variations {
		prefix := fmt.Sprintf("variations.variation[%d].", i)
		for k, v := range vrec.Fields {
			flat[prefix+k] = v
		}
		for k, v := range vrec.Attributes {
			flat[prefix+"attributes."+k] = v
		}
	}
	return flat
}

// recoverProposal digs the proposal JSON out of whatever the oracle
// actually returned: clean JSON, fenced JSON, JSON buried in prose, or a
// bare {source: target} object.
func recoverProposal(raw string) (*oracleProposal, error) {
	text := stripFences(strings.TrimSpace(raw))
	if text == "" {
		return nil, &models.SchemaInferenceError{Reason: "oracle returned empty response"}
	}

	var proposal oracleProposal
	if err := json.Unmarshal([]byte(text), &proposal); err == nil && proposal.Mappings != nil {
		return &proposal, nil
	}

	// Structural scan: first balanced {...} span that carries a
	// "mappings" key.
	if span := findMappingsObject(text); span != "" {
		if err := json.Unmarshal([]byte(span), &proposal); err == nil && proposal.Mappings != nil {
			return &proposal, nil
		}
	}

	// Tolerate an oracle that returned {source: target, ...} directly.
	var bare map[string]string
	if err := json.Unmarshal([]byte(text), &bare); err == nil && len(bare) > 0 {
		return &oracleProposal{Mappings: bare}, nil
	}

	return nil, &models.SchemaInferenceError{
		Reason:  "oracle response could not be parsed",
		Excerpt: truncate(raw, excerptLimit),
	}
}

// stripFences removes a leading/trailing markdown code fence, with or
// without a language tag, leaving surrounding prose outside the fence
// behind.
func stripFences(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	rest := text[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// drop the fence line itself (may carry "json")
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{}") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// findMappingsObject returns the first balanced top-level object in text
// that contains a "mappings" key, or "".
func findMappingsObject(text string) string {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			ch := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					span := text[start : i+1]
					if strings.Contains(span, `"mappings"`) {
						return span
					}
					start = i // skip past this object
					i = len(text)
				}
			}
		}
		// A scan that ran unbalanced to the end just means this opening
		// brace was stray prose; the next one may still start valid JSON.
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// buildMappingPrompt renders the task description: the full source field
// list with representative samples, the complete target catalog, and the
// multi-language keyword hints.
func buildMappingPrompt(sourceFields []string, samples map[string]string) string {
	var b strings.Builder

	b.WriteString("You map product feed fields onto a fixed catalog schema.\n\n")
	b.WriteString("Source fields:\n")
	for _, f := range sourceFields {
		b.WriteString("- ")
		b.WriteString(f)
		if v, ok := samples[f]; ok && v != "" {
			b.WriteString(" (sample: ")
			b.WriteString(truncate(v, 80))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}

	b.WriteString("\nTarget fields:\n")
	for _, f := range catalog.AllTargets() {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("- attribute:<name> for variation attributes (e.g. attribute:size)\n")
	b.WriteString("- meta:<name> for custom fields\n")

	b.WriteString("\nKeyword hints (field names arrive in many languages):\n")
	targets := make([]string, 0, len(catalog.FieldKeywords))
	for t := range catalog.FieldKeywords {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	for _, t := range targets {
		b.WriteString(t)
		b.WriteString(": ")
		b.WriteString(strings.Join(catalog.FieldKeywords[t], ", "))
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with strict JSON only, no prose, in this shape:\n")
	b.WriteString(`{"mappings":{"<source>":"<target>"},"confidence":{"<source>":0-100},"unmapped":["<source>"],"product_structure":{"type":"simple|variable","has_variations":false,"variation_path":"","detected_attributes":[]}}`)
	b.WriteString("\nEvery source field must appear exactly once, either in mappings or unmapped.\n")

	return b.String()
}
