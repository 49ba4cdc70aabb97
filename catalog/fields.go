// Package catalog holds the fixed target-field catalog and the synonym
// tables used for heuristic field matching. Pure data plus small lookup
// helpers; extending the catalog means editing tables, not logic.
package catalog

import "strings"

// TargetFields is the full catalog of scalar product fields a source
// field may map onto.
var TargetFields = []string{
	"id",
	"sku",
	"name",
	"description",
	"short_description",
	"regular_price",
	"sale_price",
	"stock_quantity",
	"stock_status",
	"manage_stock",
	"backorders",
	"low_stock_amount",
	"categories",
	"tags",
	"images",
	"brand",
	"weight",
	"length",
	"width",
	"height",
	"type",
	"virtual",
	"downloadable",
	"download_limit",
	"download_expiry",
	"gtin",
}

// VariationTargetFields are the variation-scoped counterparts.
var VariationTargetFields = []string{
	"variation_sku",
	"variation_price",
	"variation_sale_price",
	"variation_stock_quantity",
	"variation_stock_status",
	"variation_manage_stock",
	"variation_weight",
	"variation_length",
	"variation_width",
	"variation_height",
	"variation_image",
	"variation_description",
	"variation_virtual",
	"variation_downloadable",
	"variation_download_limit",
	"variation_download_expiry",
	"variation_gtin",
	"variation_backorders",
	"variation_low_stock_amount",
}

const (
	// AttributePrefix marks dynamic attribute targets: "attribute:size".
	AttributePrefix = "attribute:"
	// MetaPrefix marks custom meta targets: "meta:my_field".
	MetaPrefix = "meta:"
)

var targetSet = func() map[string]bool {
	set := make(map[string]bool, len(TargetFields)+len(VariationTargetFields))
	for _, f := range TargetFields {
		set[f] = true
	}
	for _, f := range VariationTargetFields {
		set[f] = true
	}
	return set
}()

// IsTarget reports whether target is a valid mapping destination: a
// catalog member, a meta:* custom field, or an attribute:* dynamic field
// with a non-empty name.
func IsTarget(target string) bool {
	if targetSet[target] {
		return true
	}
	if strings.HasPrefix(target, MetaPrefix) && len(target) > len(MetaPrefix) {
		return true
	}
	return IsAttributeTarget(target)
}

// IsAttributeTarget reports whether target is a dynamic attribute field.
func IsAttributeTarget(target string) bool {
	return strings.HasPrefix(target, AttributePrefix) && len(target) > len(AttributePrefix)
}

// AttributeName returns the attribute name of an attribute:* target, or
// "" when target is not one.
func AttributeName(target string) string {
	if !IsAttributeTarget(target) {
		return ""
	}
	return target[len(AttributePrefix):]
}

// AllTargets returns the complete list handed to the mapping oracle.
func AllTargets() []string {
	out := make([]string, 0, len(TargetFields)+len(VariationTargetFields))
	out = append(out, TargetFields...)
	out = append(out, VariationTargetFields...)
	return out
}
