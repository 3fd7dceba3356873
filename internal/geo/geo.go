// Package geo validates and encodes the reserved "_geo" document field
// (spec.md §3, "GeoRTree + GeoDocids", and §4.2/§4.3). A document's geo
// point, once validated, is Morton-hashed into a single sortable uint64 so
// it can live as an ordered key in the geo_points table — the same
// Z-order-curve trick bleve's geopoint numeric field uses, here borrowed via
// blevesearch/geo rather than reimplemented.
package geo

import (
	"math"

	blevegeo "github.com/blevesearch/geo"

	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/gcbaptista/faceted-index/model"
)

// Point is a validated geo coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Extract reads and validates the "_geo" field of a document, matching
// spec.md §4.2's eager _geo validation: an object with finite lat,lng,
// otherwise InvalidGeoField. Returns ok=false (no error) if the document has
// no "_geo" field at all.
func Extract(doc model.Document) (Point, bool, error) {
	raw, ok := doc.FieldValue(model.GeoField)
	if !ok {
		return Point{}, false, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return Point{}, false, idxerrors.NewInvalidGeoFieldError("_geo must be an object")
	}

	lat, err := finiteNumber(obj, "lat")
	if err != nil {
		return Point{}, false, err
	}
	lng, err := finiteNumber(obj, "lng")
	if err != nil {
		return Point{}, false, err
	}
	return Point{Lat: lat, Lng: lng}, true, nil
}

func finiteNumber(obj map[string]interface{}, key string) (float64, error) {
	raw, ok := obj[key]
	if !ok {
		return 0, idxerrors.NewInvalidGeoFieldError("_geo." + key + " is missing")
	}
	v, ok := raw.(float64)
	if !ok {
		return 0, idxerrors.NewInvalidGeoFieldError("_geo." + key + " must be a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, idxerrors.NewInvalidGeoFieldError("_geo." + key + " must be finite")
	}
	return v, nil
}

// MortonKey encodes a point as a single uint64 preserving Z-order spatial
// locality, used as the key under which the point and its docid are stored
// in the geo_points table.
func MortonKey(p Point) uint64 {
	return blevegeo.MortonHash(p.Lng, p.Lat)
}

// FromMortonKey recovers the approximate coordinates encoded by MortonKey,
// used when decoding the geo_points table for diagnostics or reindexing.
func FromMortonKey(key uint64) Point {
	lng, lat := blevegeo.MortonUnhash(key)
	return Point{Lat: lat, Lng: lng}
}
