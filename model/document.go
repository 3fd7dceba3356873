package model

import "strings"

// Document is a flexible map representing a schemaless JSON document.
// Field values are accessed by their string keys and are interpreted
// according to the index's settings (searchable, filterable, "_geo").
type Document map[string]interface{}

// GeoField is the reserved field name carrying a document's geo point, an
// object of the shape {"lat": <number>, "lng": <number>}.
const GeoField = "_geo"

// FieldValue returns the raw value stored under name, if present.
func (d Document) FieldValue(name string) (interface{}, bool) {
	v, ok := d[name]
	return v, ok
}

// PrimaryKeyValue extracts and trims the string value of the given primary
// key field. It returns ok=false if the field is absent, not a string, or
// blank after trimming.
func (d Document) PrimaryKeyValue(primaryKey string) (string, bool) {
	raw, ok := d[primaryKey]
	if !ok {
		return "", false
	}
	str, ok := raw.(string)
	if !ok {
		return "", false
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return "", false
	}
	return str, true
}

// InferPrimaryKeyField returns the first field name containing "id" as a
// case-insensitive substring, matching spec.md §4.2 step 1. Field names are
// considered in the order they iterate; callers that need determinism
// should sort the document's fields first (Transform does).
func InferPrimaryKeyField(fieldNames []string) (string, bool) {
	for _, name := range fieldNames {
		if strings.Contains(strings.ToLower(name), "id") {
			return name, true
		}
	}
	return "", false
}

// FieldNames returns the document's field names.
func (d Document) FieldNames() []string {
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	return names
}
