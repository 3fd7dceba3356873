package indexing

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/gcbaptista/faceted-index/index"
	geopkg "github.com/gcbaptista/faceted-index/internal/geo"
)

// accumulator is the per-worker (and, after fan-in, per-extraction-call)
// posting builder: keyed bitmaps for every docid-bearing table, plus a
// handful of raw byte-concatenated tables (docid word positions, geo
// points) that don't merge via bitmap union.
type accumulator struct {
	wordDocids        map[string]*roaring.Bitmap
	wordPairProximity map[string]*roaring.Bitmap
	wordPosition      map[string]*roaring.Bitmap
	fieldWordCount    map[string]*roaring.Bitmap
	facetNumber       map[string]*roaring.Bitmap
	facetString       map[string]*facetStringEntry
	fieldFaceted      map[string]*roaring.Bitmap
	geoDocids         *roaring.Bitmap
	geoPoints         []KV

	// docidWordPositions and docidFacetValues are the inverse tables keyed
	// by docid (spec.md §3 DocidFieldFacetValues, §2.3's
	// docid-word-positions chunk): byte-concatenated records rather than
	// bitmaps, so a purge can read back exactly what one document
	// contributed without re-tokenizing or re-parsing its facet values.
	docidWordPositions map[string][]byte
	docidFacetValues    map[string][]byte
}

type facetStringEntry struct {
	original string
	docids   *roaring.Bitmap
}

func newAccumulator() *accumulator {
	return &accumulator{
		wordDocids:          make(map[string]*roaring.Bitmap),
		wordPairProximity:   make(map[string]*roaring.Bitmap),
		wordPosition:        make(map[string]*roaring.Bitmap),
		fieldWordCount:      make(map[string]*roaring.Bitmap),
		facetNumber:         make(map[string]*roaring.Bitmap),
		facetString:         make(map[string]*facetStringEntry),
		fieldFaceted:        make(map[string]*roaring.Bitmap),
		geoDocids:           roaring.New(),
		docidWordPositions:  make(map[string][]byte),
		docidFacetValues:    make(map[string][]byte),
	}
}

func bitmapFor(m map[string]*roaring.Bitmap, key []byte) *roaring.Bitmap {
	k := string(key)
	rb, ok := m[k]
	if !ok {
		rb = roaring.New()
		m[k] = rb
	}
	return rb
}

func (a *accumulator) addWordDocid(word string, docid uint32) {
	bitmapFor(a.wordDocids, index.WordDocidsKey(word)).Add(docid)
}

func (a *accumulator) addWordPairProximity(w1, w2 string, prox uint8, docid uint32) {
	bitmapFor(a.wordPairProximity, index.WordPairProximityKey(w1, w2, prox)).Add(docid)
}

func (a *accumulator) addWordPosition(word string, position uint32, docid uint32) {
	bitmapFor(a.wordPosition, index.WordPositionKey(word, position)).Add(docid)
}

func (a *accumulator) addFieldWordCount(fieldID uint16, count uint8, docid uint32) {
	bitmapFor(a.fieldWordCount, index.FieldIDWordCountKey(fieldID, count)).Add(docid)
}

func (a *accumulator) addFacetNumber(fieldID uint16, value float64, docid uint32) {
	key := index.FacetNumberKey(fieldID, 0, value, value)
	bitmapFor(a.facetNumber, key).Add(docid)
}

func (a *accumulator) addFacetString(fieldID uint16, value string, docid uint32) {
	normalized := index.NormalizeFacetString(value)
	key := string(index.FacetStringKey(fieldID, normalized))
	entry, ok := a.facetString[key]
	if !ok {
		entry = &facetStringEntry{original: value, docids: roaring.New()}
		a.facetString[key] = entry
	}
	entry.docids.Add(docid)
}

func (a *accumulator) addFieldFaceted(fieldID uint16, docid uint32) {
	var keyBuf [2]byte
	keyBuf[0] = byte(fieldID >> 8)
	keyBuf[1] = byte(fieldID)
	bitmapFor(a.fieldFaceted, keyBuf[:]).Add(docid)
}

func (a *accumulator) addGeoPoint(docid uint32, p geopkg.Point) {
	a.geoDocids.Add(docid)
	a.geoPoints = append(a.geoPoints, KV{Key: geopkg.EncodeKey(p), Value: geopkg.EncodeValue(docid)})
}

// addDocidWordPosition records one (field, position, word) occurrence for
// docid in the DocidWordPositions inverse table.
func (a *accumulator) addDocidWordPosition(docid uint32, fieldID uint16, position uint32, word string) {
	key := string(index.DocidWordPositionsKey(docid))
	a.docidWordPositions[key] = append(a.docidWordPositions[key], index.EncodeWordPositionEntry(fieldID, position, word)...)
}

// addDocidFacetValue records one faceted field value for docid in the
// DocidFieldFacetValues inverse table, so a later purge can reconstruct
// exactly which facet postings to subtract without re-parsing the document.
func (a *accumulator) addDocidFacetValue(docid uint32, fieldID uint16, value interface{}) {
	entry, ok := index.EncodeFacetValueEntry(value)
	if !ok {
		return
	}
	key := string(index.DocidFieldFacetValuesKey(docid, fieldID))
	a.docidFacetValues[key] = append(a.docidFacetValues[key], entry...)
}

// result converts the accumulator's live bitmaps into an immutable
// workerResult ready for fan-in merging.
func (a *accumulator) result() workerResult {
	tables := make(map[ChunkKind]map[string]*roaring.Bitmap)
	tables[ChunkWordDocids] = a.wordDocids
	tables[ChunkWordPairProximityDocids] = a.wordPairProximity
	tables[ChunkWordPositionDocids] = a.wordPosition
	tables[ChunkFieldIDWordCountDocids] = a.fieldWordCount
	tables[ChunkFacetNumberDocids] = a.facetNumber
	tables[ChunkFieldFacetedDocids] = a.fieldFaceted

	facetStringBitmaps := make(map[string]*roaring.Bitmap, len(a.facetString))
	for k, v := range a.facetString {
		facetStringBitmaps[k] = v.docids
	}
	tables[ChunkFacetStringDocids] = facetStringBitmaps

	geoBitmaps := map[string]*roaring.Bitmap{"": a.geoDocids}
	tables[ChunkGeoDocids] = geoBitmaps

	originals := make(map[string]string, len(a.facetString))
	for k, v := range a.facetString {
		originals[k] = v.original
	}

	return workerResult{
		tables:               tables,
		facetStringOriginals: originals,
		geoPoints:            a.geoPoints,
		docidWordPositions:   a.docidWordPositions,
		docidFacetValues:     a.docidFacetValues,
	}
}

// mergeResult folds another worker's result into this accumulator, unioning
// bitmaps for shared keys.
func (a *accumulator) mergeResult(r workerResult) {
	merge := func(dst map[string]*roaring.Bitmap, src map[string]*roaring.Bitmap) {
		for k, v := range src {
			bitmapFor(dst, []byte(k)).Or(v)
		}
	}
	merge(a.wordDocids, r.tables[ChunkWordDocids])
	merge(a.wordPairProximity, r.tables[ChunkWordPairProximityDocids])
	merge(a.wordPosition, r.tables[ChunkWordPositionDocids])
	merge(a.fieldWordCount, r.tables[ChunkFieldIDWordCountDocids])
	merge(a.facetNumber, r.tables[ChunkFacetNumberDocids])
	merge(a.fieldFaceted, r.tables[ChunkFieldFacetedDocids])

	if geo, ok := r.tables[ChunkGeoDocids][""]; ok {
		a.geoDocids.Or(geo)
	}
	a.geoPoints = append(a.geoPoints, r.geoPoints...)

	for k, bitmap := range r.tables[ChunkFacetStringDocids] {
		entry, ok := a.facetString[k]
		if !ok {
			entry = &facetStringEntry{original: r.facetStringOriginals[k], docids: roaring.New()}
			a.facetString[k] = entry
		}
		entry.docids.Or(bitmap)
	}

	for k, v := range r.docidWordPositions {
		a.docidWordPositions[k] = append(a.docidWordPositions[k], v...)
	}
	for k, v := range r.docidFacetValues {
		a.docidFacetValues[k] = append(a.docidFacetValues[k], v...)
	}
}

// toChunks serializes the accumulator's live state into the TypedChunks the
// writer installs.
func (a *accumulator) toChunks() []TypedChunk {
	var chunks []TypedChunk

	appendBitmaps := func(kind ChunkKind, m map[string]*roaring.Bitmap) {
		if len(m) == 0 {
			return
		}
		entries := make([]KV, 0, len(m))
		for k, rb := range m {
			b, err := rb.ToBytes()
			if err != nil {
				continue
			}
			entries = append(entries, KV{Key: []byte(k), Value: b})
		}
		chunks = append(chunks, TypedChunk{Kind: kind, Entries: entries})
	}

	appendBitmaps(ChunkWordDocids, a.wordDocids)
	appendBitmaps(ChunkWordPairProximityDocids, a.wordPairProximity)
	appendBitmaps(ChunkWordPositionDocids, a.wordPosition)
	appendBitmaps(ChunkFieldIDWordCountDocids, a.fieldWordCount)
	appendBitmaps(ChunkFacetNumberDocids, a.facetNumber)
	appendBitmaps(ChunkFieldFacetedDocids, a.fieldFaceted)

	if len(a.facetString) > 0 {
		entries := make([]KV, 0, len(a.facetString))
		for k, entry := range a.facetString {
			bitmapBytes, err := entry.docids.ToBytes()
			if err != nil {
				continue
			}
			value := index.EncodeFacetStringValue(entry.original, bitmapBytes)
			entries = append(entries, KV{Key: []byte(k), Value: value})
		}
		chunks = append(chunks, TypedChunk{Kind: ChunkFacetStringDocids, Entries: entries})
	}

	if a.geoDocids.GetCardinality() > 0 {
		b, err := a.geoDocids.ToBytes()
		if err == nil {
			chunks = append(chunks, TypedChunk{Kind: ChunkGeoDocids, Entries: []KV{{Key: nil, Value: b}}})
		}
	}
	if len(a.geoPoints) > 0 {
		chunks = append(chunks, TypedChunk{Kind: ChunkGeoPoints, Entries: a.geoPoints})
	}

	if len(a.docidWordPositions) > 0 {
		entries := make([]KV, 0, len(a.docidWordPositions))
		for k, v := range a.docidWordPositions {
			entries = append(entries, KV{Key: []byte(k), Value: v})
		}
		chunks = append(chunks, TypedChunk{Kind: ChunkDocidWordPositions, Entries: entries})
	}
	if len(a.docidFacetValues) > 0 {
		entries := make([]KV, 0, len(a.docidFacetValues))
		for k, v := range a.docidFacetValues {
			entries = append(entries, KV{Key: []byte(k), Value: v})
		}
		chunks = append(chunks, TypedChunk{Kind: ChunkDocidFieldFacetValues, Entries: entries})
	}

	return chunks
}
