// Package config provides configuration structures for the search engine.
// It defines per-index settings (searchable/filterable fields, primary key)
// and the indexing pipeline's tunable knobs.
package config

import (
	"fmt"
	"strings"
)

// IndexSettings contains the configuration options for a single index that
// the indexing core consults while building postings. Settings that only
// matter at query time (ranking order, typo tolerance, distinct field) live
// with the query engine, which is out of scope for this package.
type IndexSettings struct {
	Name string `json:"name"` // Unique name for the index

	// SearchableFields lists the fields tokenized into WordDocids,
	// WordPairProximityDocids, WordPositionDocids and
	// FieldIdWordCountDocids, in priority order.
	SearchableFields []string `json:"searchable_fields"`

	// FilterableFields lists the fields parsed into FacetNumberDocids or
	// FacetStringDocids, depending on each value's runtime type.
	FilterableFields []string `json:"filterable_fields"`

	// FieldsWithoutPrefixSearch names searchable fields to exclude from
	// prefix search. It is validated against SearchableFields but not read by
	// the indexing pipeline: prefixes are derived from every indexed word,
	// whichever field it came from.
	FieldsWithoutPrefixSearch []string `json:"fields_without_prefix_search"`

	// PrimaryKey, when non-empty, pins the field used as the external
	// document id. If empty, Transform infers it (spec.md §4.2) and the
	// inferred choice is persisted; subsequent batches that would infer a
	// different key fail with ErrPrimaryKeyCannotBeChanged.
	PrimaryKey string `json:"primary_key,omitempty"`
}

// ApplyDefaults normalizes nil field slices to empty ones so downstream
// validation and persistence never have to special-case a missing key in
// the request body.
func (settings *IndexSettings) ApplyDefaults() {
	if settings.SearchableFields == nil {
		settings.SearchableFields = []string{}
	}
	if settings.FilterableFields == nil {
		settings.FilterableFields = []string{}
	}
	if settings.FieldsWithoutPrefixSearch == nil {
		settings.FieldsWithoutPrefixSearch = []string{}
	}
}

// knownFilterOperators lists filter operators a downstream filter parser
// recognizes; searchable or filterable field names ending in one of these
// are rejected to avoid ambiguous parses.
var knownFilterOperators = []string{
	"_contains_any_of", // must be before _contains
	"_ncontains",       // must be before _contains
	"_contains",
	"_exact",
	"_gte",
	"_lte",
	"_gt",
	"_lt",
	"_ne",
}

// ValidateFieldNames checks if any field names could cause conflicts with
// filter operators, or reference fields outside their required set.
func (settings *IndexSettings) ValidateFieldNames() []string {
	var conflicts []string

	allFields := make([]string, 0, len(settings.SearchableFields)+len(settings.FilterableFields))
	allFields = append(allFields, settings.SearchableFields...)
	allFields = append(allFields, settings.FilterableFields...)

	for _, field := range allFields {
		for _, op := range knownFilterOperators {
			if strings.HasSuffix(field, op) && field != op {
				conflicts = append(conflicts, fmt.Sprintf("field '%s' ends with operator '%s' which may cause parsing conflicts", field, op))
			}
		}
	}

	searchable := make(map[string]struct{}, len(settings.SearchableFields))
	for _, f := range settings.SearchableFields {
		searchable[f] = struct{}{}
	}
	for _, f := range settings.FieldsWithoutPrefixSearch {
		if _, ok := searchable[f]; !ok {
			conflicts = append(conflicts, fmt.Sprintf("field '%s' in fields_without_prefix_search must also be in searchable_fields", f))
		}
	}

	return conflicts
}
