package indexing

import (
	"encoding/json"
	"io"
	"runtime"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/gcbaptista/faceted-index/index"
	"github.com/gcbaptista/faceted-index/internal/fieldmap"
	geopkg "github.com/gcbaptista/faceted-index/internal/geo"
	"github.com/gcbaptista/faceted-index/internal/tokenizer"
	"github.com/gcbaptista/faceted-index/model"
	docstore "github.com/gcbaptista/faceted-index/store"
)

// proximityWindow is the maximum token distance within an attribute that
// still contributes a word-pair-proximity entry (spec.md §4.3).
const proximityWindow = 7

// ExtractionInput bundles everything the Extraction stage needs (spec.md
// §4.3).
type ExtractionInput struct {
	Documents                sorterReader // iterator over (internalID_be_u32, obkv bytes)
	FieldsIdsMap             *fieldmap.FieldsIdMap
	SearchableFields         map[string]struct{} // field name set
	FacetedFields            map[string]struct{}
	GeoFieldID               uint16
	HasGeoField              bool
	StopWords                map[string]struct{}
	MaxPositionsPerAttribute int
	WorkerCount              int
}

// sorterReader is the minimal interface extraction needs from
// sorter.Reader, so tests can supply a fake.
type sorterReader interface {
	Next() (key, value []byte, err error)
}

// docRecord is one decoded document ready for per-field extraction.
type docRecord struct {
	docid  uint32
	fields map[uint16]interface{} // decoded JSON value per field id
}

// Extract drains the document stream and fans decoded documents out to a
// worker pool; each worker tokenizes and accumulates postings locally, and
// the results are folded into one set of TypedChunks per table kind.
// Errors from any worker abort the whole extraction and are returned
// directly (the spec's single Err-message-on-a-channel semantics are
// realized here by the fact that the first non-nil error from any goroutine
// short-circuits fan-in, matching "the writer drains the channel, reports
// the first error").
func Extract(in ExtractionInput) ([]TypedChunk, error) {
	workerCount := in.WorkerCount
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	docChan := make(chan docRecord, workerCount*4)
	resultChan := make(chan workerResult, workerCount)
	errChan := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc := newAccumulator()
			for doc := range docChan {
				if err := extractDocument(doc, in, acc, true); err != nil {
					select {
					case errChan <- err:
					default:
					}
					// Drain remaining documents without processing them so
					// the producer goroutine isn't blocked forever.
					for range docChan {
					}
					return
				}
			}
			resultChan <- acc.result()
		}()
	}

	go func() {
		defer close(docChan)
		for {
			k, v, err := in.Documents.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case errChan <- err:
				default:
				}
				return
			}
			records, err := docstore.Decode(v)
			if err != nil {
				select {
				case errChan <- err:
				default:
				}
				return
			}
			fields := make(map[uint16]interface{}, len(records))
			for _, r := range records {
				var value interface{}
				if json.Unmarshal(r.Raw, &value) == nil {
					fields[r.FieldID] = value
				}
			}
			docChan <- docRecord{docid: DecodeInternalIDKey(k), fields: fields}
		}
	}()

	wg.Wait()
	close(resultChan)

	select {
	case err := <-errChan:
		return nil, err
	default:
	}

	merged := newAccumulator()
	for r := range resultChan {
		merged.mergeResult(r)
	}
	return merged.result().toChunks(), nil
}

// fieldTextValues flattens a decoded field value into the text it
// contributes to tokenization: a bare string, or every string element of a
// []interface{} (e.g. a "cast" array), joined as separate attribute values.
func fieldTextValues(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// extractDocument tokenizes and facets one document into acc. extractFacets
// gates faceted-field extraction: the main extraction pass always sets it,
// while a purge re-deriving a replaced document's word postings sets it
// false because the faceted contribution is instead read back from the
// DocidFieldFacetValues inverse table (pipeline.go's purgeFacetValues),
// avoiding a second re-parse of the stored document for that part.
func extractDocument(doc docRecord, in ExtractionInput, acc *accumulator, extractFacets bool) error {
	for fieldID, value := range doc.fields {
		fieldName, ok := in.FieldsIdsMap.Name(fieldID)
		if !ok {
			continue
		}

		if _, searchable := in.SearchableFields[fieldName]; searchable {
			extractSearchableField(doc.docid, fieldID, value, in, acc)
		}
		if extractFacets {
			if _, faceted := in.FacetedFields[fieldName]; faceted {
				extractFacetedField(doc.docid, fieldID, value, acc)
			}
		}
	}

	if in.HasGeoField {
		if raw, ok := doc.fields[in.GeoFieldID]; ok {
			point, hasPoint, err := geopkg.Extract(model.Document{model.GeoField: raw})
			if err != nil {
				return err
			}
			if hasPoint {
				acc.addGeoPoint(doc.docid, point)
			}
		}
	}
	return nil
}

func extractSearchableField(docid uint32, fieldID uint16, value interface{}, in ExtractionInput, acc *accumulator) {
	for _, text := range fieldTextValues(value) {
		tokens := tokenizer.Tokenize(text)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) > in.MaxPositionsPerAttribute {
			tokens = tokens[:in.MaxPositionsPerAttribute]
		}

		wordCount := 0
		for pos, word := range tokens {
			wordCount++
			bucketedPos := index.BucketedPosition(fieldID, pos)

			// Stop words are dropped after position accounting: they still
			// contribute to word-count and word-position, but never enter
			// word-docids (spec.md §4.3).
			if _, stop := in.StopWords[word]; !stop {
				acc.addWordDocid(word, docid)
			}
			acc.addWordPosition(word, bucketedPos, docid)
			acc.addDocidWordPosition(docid, fieldID, bucketedPos, word)

			for d := 1; d <= proximityWindow && pos+d < len(tokens); d++ {
				other := tokens[pos+d]
				prox := index.Proximity(pos, pos+d)
				acc.addWordPairProximity(word, other, prox, docid)
			}
		}
		acc.addFieldWordCount(fieldID, index.ClampWordCount(wordCount), docid)
	}
}

func extractFacetedField(docid uint32, fieldID uint16, value interface{}, acc *accumulator) {
	switch v := value.(type) {
	case float64:
		acc.addFacetNumber(fieldID, v, docid)
		acc.addFieldFaceted(fieldID, docid)
		acc.addDocidFacetValue(docid, fieldID, v)
	case string:
		acc.addFacetString(fieldID, v, docid)
		acc.addFieldFaceted(fieldID, docid)
		acc.addDocidFacetValue(docid, fieldID, v)
	case []interface{}:
		for _, e := range v {
			switch ev := e.(type) {
			case float64:
				acc.addFacetNumber(fieldID, ev, docid)
				acc.addFieldFaceted(fieldID, docid)
				acc.addDocidFacetValue(docid, fieldID, ev)
			case string:
				acc.addFacetString(fieldID, ev, docid)
				acc.addFieldFaceted(fieldID, docid)
				acc.addDocidFacetValue(docid, fieldID, ev)
			}
		}
	}
}

// workerResult is what one worker goroutine hands back for fan-in.
type workerResult struct {
	tables               map[ChunkKind]map[string]*roaring.Bitmap
	facetStringOriginals map[string]string
	geoPoints            []KV
	docidWordPositions   map[string][]byte
	docidFacetValues     map[string][]byte
}
