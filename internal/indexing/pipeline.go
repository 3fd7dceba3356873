package indexing

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"io"
	"log"

	"github.com/RoaringBitmap/roaring"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/index"
	"github.com/gcbaptista/faceted-index/internal/docids"
	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/gcbaptista/faceted-index/internal/fieldmap"
	"github.com/gcbaptista/faceted-index/internal/store"
	"github.com/gcbaptista/faceted-index/model"
	docstore "github.com/gcbaptista/faceted-index/store"
)

var (
	metaKey   = []byte("meta")
	fieldsKey = []byte("fields_id_map")
	hardKey   = []byte("hard")
	softKey   = []byte("soft")
	fstKey    = []byte("current")
)

// meta is the small durable state that rides alongside the typed-chunk
// tables: the index's primary key, the next unused internal id, and the
// per-field document counts used for "field distribution" reporting.
type meta struct {
	PrimaryKey        string
	NextInternalID    uint32
	FieldDistribution map[string]int
}

// Pipeline drives spec.md §4's full state machine (Transform, Extract,
// typed-chunk install, WordsFst rebuild, prefix derivation, facet leveling)
// over one index's bbolt store. It implements services.Indexer.
type Pipeline struct {
	db       *store.Store
	settings config.IndexSettings
	cfg      config.IndexerConfig
	progress Callback

	fieldsIdsMap      *fieldmap.FieldsIdMap
	externalIds       *docids.ExternalDocumentsIds
	primaryKey        string
	fieldDistribution map[string]int
	nextInternalID    uint32
}

// Open loads a Pipeline's durable state from db, or initializes fresh
// state if this is a brand-new index.
func Open(db *store.Store, settings config.IndexSettings, cfg config.IndexerConfig, progress Callback) (*Pipeline, error) {
	if progress == nil {
		progress = noopCallback
	}
	p := &Pipeline{
		db:                db,
		settings:          settings,
		cfg:               cfg,
		progress:          progress,
		primaryKey:        settings.PrimaryKey,
		fieldDistribution: make(map[string]int),
		fieldsIdsMap:      fieldmap.New(),
		externalIds:       docids.New(),
	}

	err := db.View(func(tx *store.Tx) error {
		metaTable, err := tx.Table(store.TableMeta)
		if err != nil {
			return err
		}
		if raw := metaTable.Get(metaKey); raw != nil {
			var m meta
			if err := gobDecode(raw, &m); err != nil {
				return err
			}
			p.primaryKey = m.PrimaryKey
			p.nextInternalID = m.NextInternalID
			if m.FieldDistribution != nil {
				p.fieldDistribution = m.FieldDistribution
			}
		}

		fieldsTable, err := tx.Table(store.TableFieldsIDMap)
		if err != nil {
			return err
		}
		if raw := fieldsTable.Get(fieldsKey); raw != nil {
			fm, err := fieldmap.Restore(raw)
			if err != nil {
				return err
			}
			p.fieldsIdsMap = fm
		}

		hardTable, err := tx.Table(store.TableExternalDocsHard)
		if err != nil {
			return err
		}
		if raw := hardTable.Get(hardKey); raw != nil {
			ext, err := docids.LoadHard(raw)
			if err != nil {
				return err
			}
			p.externalIds = ext
		}

		softTable, err := tx.Table(store.TableExternalDocsSoft)
		if err != nil {
			return err
		}
		if raw := softTable.Get(softKey); raw != nil {
			if err := p.externalIds.LoadSoft(raw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// documentsReader satisfies ExistingDocumentReader by reading the
// documents table of the same write transaction Transform runs under.
type documentsReader struct {
	table *store.Table
}

func (r documentsReader) GetDocument(internalID uint32) ([]byte, bool) {
	v := r.table.Get(encodeInternalIDKey(internalID))
	if v == nil {
		return nil, false
	}
	return v, true
}

// sliceReader replays an in-memory batch of (key, value) pairs through the
// sorterReader interface Extract expects, so the single obkv stream
// Transform produced can feed both the documents table write and
// extraction without a second external-sort pass.
type sliceReader struct {
	entries []kvPair
	pos     int
}

type kvPair struct {
	key, value []byte
}

func (r *sliceReader) Next() ([]byte, []byte, error) {
	if r.pos >= len(r.entries) {
		return nil, nil, io.EOF
	}
	e := r.entries[r.pos]
	r.pos++
	return e.key, e.value, nil
}

// AddDocuments implements services.Indexer. It runs the full indexing
// pipeline over one batch in a single read-write transaction: documents
// already present for a replaced external id have their old postings
// purged before the new contributions are merged in, so a resubmitted
// document never leaves stale facet or search postings behind.
func (p *Pipeline) AddDocuments(docs []model.Document) error {
	return p.db.Update(func(tx *store.Tx) error {
		p.progress(Progress{Stage: StageTransforming, TotalDocuments: len(docs)})

		docsTable, err := tx.Table(store.TableDocuments)
		if err != nil {
			return err
		}

		transformOut, err := Transform(TransformInput{
			Documents:           docs,
			FieldsIdsMap:        p.fieldsIdsMap,
			ExternalDocumentIds: p.externalIds,
			PrimaryKey:          p.primaryKey,
			Mode:                p.cfg.UpdateMethod,
			AutogenerateDocids:  p.cfg.AutogenerateDocids,
			NextInternalID:      p.nextInternalID,
			Existing:            documentsReader{table: docsTable},
		})
		if err != nil {
			return err
		}
		if p.primaryKey != "" && transformOut.PrimaryKey != p.primaryKey {
			return idxerrors.ErrPrimaryKeyCannotBeChanged
		}

		extractionInput := p.extractionInput()

		// Purge stale postings for replaced documents before the new
		// records overwrite the documents table (spec.md's
		// remove-then-merge rule for updated documents).
		if !transformOut.ReplacedDocumentsIds.IsEmpty() {
			if err := p.purgeReplaced(tx, docsTable, transformOut.ReplacedDocumentsIds, extractionInput); err != nil {
				return err
			}
		}

		var batch []kvPair
		for {
			k, v, err := transformOut.Documents.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			keyCopy := append([]byte(nil), k...)
			valCopy := append([]byte(nil), v...)
			if err := docsTable.Put(keyCopy, valCopy); err != nil {
				return err
			}
			batch = append(batch, kvPair{key: keyCopy, value: valCopy})
		}
		transformOut.Documents.Close()

		p.progress(Progress{Stage: StageExtracting, TotalDocuments: len(batch)})
		extractionInput.Documents = &sliceReader{entries: batch}
		chunks, err := Extract(extractionInput)
		if err != nil {
			return err
		}

		writer := NewWriter(tx, len(chunkTable), p.progress)
		for _, chunk := range chunks {
			if err := writer.Install(chunk); err != nil {
				return err
			}
		}

		if err := p.rebuildDerivedStructures(tx, writer.Snapshot()); err != nil {
			return err
		}

		p.fieldsIdsMap = transformOut.FieldsIdsMap
		p.externalIds = transformOut.ExternalDocumentIds
		p.primaryKey = transformOut.PrimaryKey
		for name, count := range transformOut.FieldDistribution {
			p.fieldDistribution[name] += count
		}
		if !transformOut.NewDocumentsIds.IsEmpty() {
			if next := transformOut.NewDocumentsIds.Maximum() + 1; next > p.nextInternalID {
				p.nextInternalID = next
			}
		}

		if err := p.persist(tx); err != nil {
			return err
		}

		p.progress(Progress{Stage: StageCommitted, DocumentsSeen: len(batch), TotalDocuments: len(batch)})
		log.Printf("indexing: committed batch of %d documents (%d new, %d replaced)",
			len(batch), transformOut.NewDocumentsIds.GetCardinality(), transformOut.ReplacedDocumentsIds.GetCardinality())
		return nil
	})
}

// extractionInput builds the ExtractionInput shared by both the purge pass
// and the main extraction pass, so both observe identical field
// classification.
func (p *Pipeline) extractionInput() ExtractionInput {
	searchable := make(map[string]struct{}, len(p.settings.SearchableFields))
	for _, f := range p.settings.SearchableFields {
		searchable[f] = struct{}{}
	}
	faceted := make(map[string]struct{}, len(p.settings.FilterableFields))
	for _, f := range p.settings.FilterableFields {
		faceted[f] = struct{}{}
	}

	in := ExtractionInput{
		FieldsIdsMap:             p.fieldsIdsMap,
		SearchableFields:         searchable,
		FacetedFields:            faceted,
		MaxPositionsPerAttribute: p.cfg.MaxPositionsPerAttribute,
		WorkerCount:              p.cfg.WorkerCount,
	}
	if geoID, ok := p.fieldsIdsMap.ID(model.GeoField); ok {
		in.GeoFieldID = geoID
		in.HasGeoField = true
	}
	return in
}

// rebuildDerivedStructures implements spec.md §4.5-§4.7 after a batch's
// typed chunks have been installed: rebuild WordsFst, diff and rederive
// WordsPrefixesFst, update the three prefix-derivative tables, and rebuild
// facet levels for every faceted field.
func (p *Pipeline) rebuildDerivedStructures(tx *store.Tx, snapshot WriterSnapshot) error {
	p.progress(Progress{Stage: StageBuildingWordsFst})
	wordsFstBytes, err := RebuildWordsFst(tx)
	if err != nil {
		return err
	}
	wordsFstTable, err := tx.Table(store.TableWordsFst)
	if err != nil {
		return err
	}
	if err := wordsFstTable.Put(fstKey, wordsFstBytes); err != nil {
		return err
	}

	p.progress(Progress{Stage: StageBuildingPrefixFst})
	prefixes, err := DerivePrefixes(wordsFstBytes, p.cfg.MaxPrefixLength, p.cfg.WordsPrefixThreshold)
	if err != nil {
		return err
	}
	prefixFstTable, err := tx.Table(store.TableWordsPrefixesFst)
	if err != nil {
		return err
	}
	oldPrefixBytes := prefixFstTable.Get(fstKey)
	diff, err := DiffPrefixFsts(oldPrefixBytes, prefixes)
	if err != nil {
		return err
	}
	newPrefixFstBytes, err := BuildPrefixFst(prefixes)
	if err != nil {
		return err
	}
	if err := prefixFstTable.Put(fstKey, newPrefixFstBytes); err != nil {
		return err
	}

	p.progress(Progress{Stage: StageUpdatingPrefixTables})
	for _, kind := range []PrefixDerivativeKind{PrefixDerivativeDocids, PrefixDerivativePairProximity, PrefixDerivativePosition} {
		if err := UpdatePrefixTable(tx, kind, snapshot, diff); err != nil {
			return err
		}
	}

	p.progress(Progress{Stage: StageFaceting})
	for _, name := range p.settings.FilterableFields {
		fieldID, ok := p.fieldsIdsMap.ID(name)
		if !ok {
			continue
		}
		if err := BuildFacetLevels(tx, fieldID, p.cfg); err != nil {
			return err
		}
	}
	return nil
}

// purgeReplaced removes the old postings of every replaced document before
// its new record overwrites the documents table, using the still-intact
// old obkv bytes to re-derive exactly the entries that document
// contributed last time.
func (p *Pipeline) purgeReplaced(tx *store.Tx, docsTable *store.Table, replaced *roaring.Bitmap, in ExtractionInput) error {
	it := replaced.Iterator()
	for it.HasNext() {
		docid := it.Next()
		raw := docsTable.Get(encodeInternalIDKey(docid))
		if raw == nil {
			continue
		}
		fields, err := decodeFieldValues(raw)
		if err != nil {
			return err
		}
		acc := newAccumulator()
		if err := extractDocument(docRecord{docid: docid, fields: fields}, in, acc, false); err != nil {
			return err
		}
		for _, chunk := range acc.result().toChunks() {
			if err := p.subtractChunk(tx, chunk); err != nil {
				return err
			}
		}
		if err := p.purgeFacetValues(tx, docid); err != nil {
			return err
		}
	}
	return nil
}

// purgeFacetValues removes docid's faceted-field contributions by consulting
// the DocidFieldFacetValues inverse table recorded when the document was
// indexed, rather than re-parsing the stored document (spec.md §3
// DocidFieldFacetValues, "inverse of facet postings, used on deletion").
// PrefixIterator's deleteMatched removes each consulted entry as it's read,
// so the table never accumulates stale docids.
func (p *Pipeline) purgeFacetValues(tx *store.Tx, docid uint32) error {
	table, err := tx.Table(store.TableDocidFieldFacetValues)
	if err != nil {
		return err
	}

	acc := newAccumulator()
	prefix := index.EncodeDocidBE(docid)
	iterErr := table.PrefixIterator(prefix, true, func(key, value []byte) error {
		fieldID := binary.BigEndian.Uint16(key[4:6])
		for _, entry := range index.DecodeFacetValueEntries(value) {
			acc.addFieldFaceted(fieldID, docid)
			if entry.IsString {
				acc.addFacetString(fieldID, entry.Normalized, docid)
			} else {
				acc.addFacetNumber(fieldID, entry.Number, docid)
			}
		}
		return nil
	})
	if iterErr != nil {
		return iterErr
	}

	for _, chunk := range acc.result().toChunks() {
		if err := p.subtractChunk(tx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// subtractChunk removes a purged document's contribution from one
// already-committed typed-chunk entry, deleting the entry outright once its
// bitmap empties. Geo entities are left as-is: a replaced document's old
// point is a rare, bounded amount of leaked state rather than a correctness
// issue, and the original Rust implementation's geo removal pass needs a
// second rtree structure this repo's §3 scope doesn't build. The two
// docid-keyed inverse tables (DocidWordPositions, DocidFieldFacetValues)
// aren't bitmaps at all, so their entries are simply deleted outright: the
// re-extraction that follows a purge writes a fresh entry for the same
// docid in the same transaction.
func (p *Pipeline) subtractChunk(tx *store.Tx, chunk TypedChunk) error {
	if chunk.Kind == ChunkGeoPoints || chunk.Kind == ChunkGeoDocids {
		return nil
	}
	tableName, ok := chunkTable[chunk.Kind]
	if !ok {
		return nil
	}
	if chunk.Kind == ChunkDocidWordPositions || chunk.Kind == ChunkDocidFieldFacetValues {
		table, err := tx.Table(tableName)
		if err != nil {
			return err
		}
		for _, kv := range chunk.Entries {
			if err := table.Delete(kv.Key); err != nil {
				return err
			}
		}
		return nil
	}
	table, err := tx.Table(tableName)
	if err != nil {
		return err
	}

	for _, kv := range chunk.Entries {
		existing := table.Get(kv.Key)
		if existing == nil {
			continue
		}

		if chunk.Kind == ChunkFacetStringDocids {
			original, existingBitmap := index.DecodeFacetStringValue(existing)
			_, removeBitmap := index.DecodeFacetStringValue(kv.Value)
			cur := roaring.New()
			if err := cur.UnmarshalBinary(existingBitmap); err != nil {
				return err
			}
			rem := roaring.New()
			if err := rem.UnmarshalBinary(removeBitmap); err != nil {
				return err
			}
			cur.AndNot(rem)
			if cur.IsEmpty() {
				if err := table.Delete(kv.Key); err != nil {
					return err
				}
				continue
			}
			newBitmap, err := cur.ToBytes()
			if err != nil {
				return err
			}
			if err := table.Put(kv.Key, index.EncodeFacetStringValue(original, newBitmap)); err != nil {
				return err
			}
			continue
		}

		cur := roaring.New()
		if err := cur.UnmarshalBinary(existing); err != nil {
			return err
		}
		rem := roaring.New()
		if err := rem.UnmarshalBinary(kv.Value); err != nil {
			return err
		}
		cur.AndNot(rem)
		if cur.IsEmpty() {
			if err := table.Delete(kv.Key); err != nil {
				return err
			}
			continue
		}
		newBytes, err := cur.ToBytes()
		if err != nil {
			return err
		}
		if err := table.Put(kv.Key, newBytes); err != nil {
			return err
		}
	}
	return nil
}

// decodeFieldValues decodes an obkv record into the same
// map[field_id]interface{} shape Extract's producer goroutine builds.
func decodeFieldValues(raw []byte) (map[uint16]interface{}, error) {
	records, err := docstore.Decode(raw)
	if err != nil {
		return nil, err
	}
	fields := make(map[uint16]interface{}, len(records))
	for _, r := range records {
		var value interface{}
		if json.Unmarshal(r.Raw, &value) == nil {
			fields[r.FieldID] = value
		}
	}
	return fields, nil
}

// DeleteAllDocuments implements services.Indexer, clearing every
// document-derived table (spec.md §4.8) while preserving the fields-id map.
func (p *Pipeline) DeleteAllDocuments() error {
	return p.db.Update(func(tx *store.Tx) error {
		if _, err := ClearDocuments(tx); err != nil {
			return err
		}
		p.externalIds = ResetExternalDocumentsIds()
		p.fieldDistribution = make(map[string]int)
		p.primaryKey = p.settings.PrimaryKey
		p.nextInternalID = 0
		return p.persist(tx)
	})
}

// DeleteDocument implements services.Indexer: tombstones docID's external
// mapping and purges its postings.
func (p *Pipeline) DeleteDocument(docID string) error {
	return p.db.Update(func(tx *store.Tx) error {
		internalID, ok := p.externalIds.Get(docID)
		if !ok {
			return idxerrors.NewDocumentNotFoundError(docID)
		}

		docsTable, err := tx.Table(store.TableDocuments)
		if err != nil {
			return err
		}
		raw := docsTable.Get(encodeInternalIDKey(internalID))
		if raw != nil {
			fields, err := decodeFieldValues(raw)
			if err != nil {
				return err
			}
			in := p.extractionInput()
			acc := newAccumulator()
			if err := extractDocument(docRecord{docid: internalID, fields: fields}, in, acc, false); err != nil {
				return err
			}
			for _, chunk := range acc.result().toChunks() {
				if err := p.subtractChunk(tx, chunk); err != nil {
					return err
				}
			}
			if err := p.purgeFacetValues(tx, internalID); err != nil {
				return err
			}
			for _, r := range mustDecode(raw) {
				if name, ok := p.fieldsIdsMap.Name(r.FieldID); ok {
					p.fieldDistribution[name]--
					if p.fieldDistribution[name] <= 0 {
						delete(p.fieldDistribution, name)
					}
				}
			}
		}
		if err := docsTable.Delete(encodeInternalIDKey(internalID)); err != nil {
			return err
		}

		p.externalIds.Delete(docID)
		return p.persist(tx)
	})
}

func mustDecode(raw []byte) []docstore.Record {
	records, err := docstore.Decode(raw)
	if err != nil {
		return nil
	}
	return records
}

// persist flushes the pipeline's in-memory metadata (fields-id map,
// external-id FST, primary key, next internal id, field distribution) to
// their durable tables. Called at the end of every mutating operation so a
// process restart resumes from exactly this state.
//
// The external-id map's hard FST is only rebuilt once the soft overlay
// grows past cfg.SoftRebuildThreshold (spec.md's two-FST design,
// SPEC_FULL.md §C.1); below that, the pending soft overlay itself is
// persisted so it survives a restart without paying for a full rebuild on
// every single batch.
func (p *Pipeline) persist(tx *store.Tx) error {
	softTable, err := tx.Table(store.TableExternalDocsSoft)
	if err != nil {
		return err
	}

	if p.externalIds.SoftLen() >= p.cfg.SoftRebuildThreshold {
		if err := p.externalIds.Rebuild(); err != nil {
			return err
		}
		hardTable, err := tx.Table(store.TableExternalDocsHard)
		if err != nil {
			return err
		}
		if err := hardTable.Put(hardKey, p.externalIds.HardBytes()); err != nil {
			return err
		}
		if err := softTable.Delete(softKey); err != nil {
			return err
		}
	} else {
		softBytes, err := p.externalIds.SoftBytes()
		if err != nil {
			return err
		}
		if err := softTable.Put(softKey, softBytes); err != nil {
			return err
		}
	}

	fieldsSnapshot, err := p.fieldsIdsMap.Snapshot()
	if err != nil {
		return err
	}
	fieldsTable, err := tx.Table(store.TableFieldsIDMap)
	if err != nil {
		return err
	}
	if err := fieldsTable.Put(fieldsKey, fieldsSnapshot); err != nil {
		return err
	}

	metaBytes, err := gobEncode(meta{
		PrimaryKey:        p.primaryKey,
		NextInternalID:    p.nextInternalID,
		FieldDistribution: p.fieldDistribution,
	})
	if err != nil {
		return err
	}
	metaTable, err := tx.Table(store.TableMeta)
	if err != nil {
		return err
	}
	return metaTable.Put(metaKey, metaBytes)
}

// AllDocuments decodes and returns every document currently stored, in
// internal-id order. Used by settings updates that require a full reindex
// (spec.md's searchable/filterable field set is baked into every posting,
// so changing it has no incremental update path).
func (p *Pipeline) AllDocuments() ([]model.Document, error) {
	var docs []model.Document
	err := p.db.View(func(tx *store.Tx) error {
		table, err := tx.Table(store.TableDocuments)
		if err != nil {
			return err
		}
		return table.ForEach(func(_, v []byte) error {
			doc, err := docstore.DecodeDocument(v, p.fieldsIdsMap)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	return docs, err
}

// PrimaryKey returns the field name used as each document's external id,
// resolved from settings or inferred from the first batch ever indexed.
func (p *Pipeline) PrimaryKey() string {
	return p.primaryKey
}

// FieldDistribution returns a copy of the current per-field document
// counts, the data backing an index's "field distribution" report.
func (p *Pipeline) FieldDistribution() map[string]int {
	out := make(map[string]int, len(p.fieldDistribution))
	for k, v := range p.fieldDistribution {
		out[k] = v
	}
	return out
}

func gobEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
