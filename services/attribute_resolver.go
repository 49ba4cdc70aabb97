package services

import (
	"fmt"
	"sort"
	"strings"

	"feed-import-service/catalog"
	"feed-import-service/models"
)

// AttributeResolver unifies variation attributes across all variations of
// one product and establishes the attribute taxonomy. In lenient mode
// (default) raw values that normalize to the same slug collapse into one
// option; strict mode records a note for each collision instead of
// merging silently.
type AttributeResolver struct {
	Strict bool
}

func NewAttributeResolver(strict bool) *AttributeResolver {
	return &AttributeResolver{Strict: strict}
}

// ResolvedAttributes is the outcome for one parent product: the
// product-level attribute definitions plus the per-variation slug
// assignments, index-aligned with the input variations.
type ResolvedAttributes struct {
	Definitions []models.AttributeDTO
	Assignments []map[string]string
	Notes       []string
}

type attributeAccumulator struct {
	displayName string
	options     []string          // display values, first-appearance order
	slugs       map[string]string // value slug -> first raw value it came from
}

// Resolve scans every variation for attribute values: the explicit
// attributes container first, then top-level fields that are neither
// reserved system fields nor mapped to a system target. Option lists are
// the union of every value seen across variations; a variation missing an
// attribute simply has no entry for that key in its assignment.
func (r *AttributeResolver) Resolve(variations []models.VariationRecord, mapping map[string]string) *ResolvedAttributes {
	result := &ResolvedAttributes{
		Assignments: make([]map[string]string, len(variations)),
	}

	accumulators := make(map[string]*attributeAccumulator)
	var order []string

	systemFields := systemMappedFields(mapping)

	for i, vrec := range variations {
		assignment := make(map[string]string)

		collect := func(name, raw string) {
			raw = strings.TrimSpace(raw)
			if name == "" || raw == "" {
				return
			}
			key := catalog.Slugify(name)
			valueSlug := catalog.Slugify(raw)
			if key == "" || valueSlug == "" {
				return
			}

			acc, ok := accumulators[key]
			if !ok {
				acc = &attributeAccumulator{displayName: name, slugs: make(map[string]string)}
				accumulators[key] = acc
				order = append(order, key)
			}
			if first, seen := acc.slugs[valueSlug]; seen {
				if first != raw && r.Strict {
					result.Notes = append(result.Notes, fmt.Sprintf(
						"attribute %q: values %q and %q collapse to slug %q", name, first, raw, valueSlug))
				}
			} else {
				acc.slugs[valueSlug] = raw
				acc.options = append(acc.options, raw)
			}
			// Assignments carry slugs, never display strings: the catalog
			// store matches variations to option lists by slug equality.
			assignment[key] = valueSlug
		}

		// Sorted iteration keeps definition order stable run to run.
		for _, name := range sortedKeys(vrec.Attributes) {
			collect(name, vrec.Attributes[name])
		}
		for _, name := range sortedKeys(vrec.Fields) {
			lower := strings.ToLower(name)
			if catalog.ReservedVariationFields[lower] || systemFields[lower] {
				continue
			}
			collect(name, vrec.Fields[name])
		}

		result.Assignments[i] = assignment
	}

	for _, key := range order {
		acc := accumulators[key]
		result.Definitions = append(result.Definitions, models.AttributeDTO{
			Key:       key,
			Name:      acc.displayName,
			Options:   acc.options,
			Variation: true,
		})
	}
	return result
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// systemMappedFields returns the lower-cased bare names of variation
// fields the mapping already routes to a non-attribute target; those are
// system data, not attributes.
func systemMappedFields(mapping map[string]string) map[string]bool {
	fields := make(map[string]bool)
	for src, tgt := range mapping {
		if strings.HasPrefix(tgt, "variation_") {
			fields[catalog.LastSegment(src)] = true
		}
	}
	return fields
}
