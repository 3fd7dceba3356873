package index

import "strings"

// NormalizeFacetString lower-cases and trims a facet string value for use as
// a FacetStringDocids key, matching spec.md §4.3's "locale-insensitive
// normalization". The original (pre-normalization) string is kept alongside
// it in the table value via EncodeFacetStringValue so exact casing survives
// for display.
func NormalizeFacetString(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
