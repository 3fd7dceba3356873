package indexing

import (
	"github.com/gcbaptista/faceted-index/index"
	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/gcbaptista/faceted-index/internal/sorter"
	"github.com/gcbaptista/faceted-index/internal/store"
)

// chunkTable maps a ChunkKind to the table it targets.
var chunkTable = map[ChunkKind]string{
	ChunkWordDocids:              store.TableWordDocids,
	ChunkWordPairProximityDocids: store.TableWordPairProximity,
	ChunkWordPositionDocids:      store.TableWordPosition,
	ChunkFieldIDWordCountDocids:  store.TableFieldIDWordCount,
	ChunkFacetNumberDocids:       store.TableFacetNumber,
	ChunkFacetStringDocids:       store.TableFacetString,
	ChunkFieldFacetedDocids:      store.TableFieldFacetedDocids,
	ChunkGeoPoints:               store.TableGeoPoints,
	ChunkGeoDocids:               store.TableGeoDocids,
	ChunkDocidWordPositions:      store.TableDocidWordPositions,
	ChunkDocidFieldFacetValues:   store.TableDocidFieldFacetValues,
}

// WriterSnapshot holds the read-only clones of the word-level tables the
// writer keeps around (spec.md §4.4, "clones via memory-mapped read-only
// snapshots") so the prefix-derivative stage can scan them without
// re-reading the committed tables. Since the store here is bbolt rather
// than a memory-mapped file, the "snapshot" is the in-memory accumulation
// the writer already built this transaction.
type WriterSnapshot struct {
	WordDocids        map[string][]byte
	WordPairProximity map[string][]byte
	WordPosition      map[string][]byte
}

// Writer installs TypedChunks into the store sequentially, the append-or-
// merge rule of spec.md §4.4: first-time load writes directly, otherwise
// each (key, new_bitmap) unions with the existing entry.
type Writer struct {
	tx       *store.Tx
	progress Callback
	snapshot WriterSnapshot

	databasesSeen  int
	totalDatabases int
}

// NewWriter returns a Writer bound to tx. totalDatabases is the number of
// distinct tables this transform's extraction output is expected to touch,
// used for "{databases_seen, total_databases}" progress reporting.
func NewWriter(tx *store.Tx, totalDatabases int, progress Callback) *Writer {
	if progress == nil {
		progress = noopCallback
	}
	return &Writer{
		tx:             tx,
		progress:       progress,
		totalDatabases: totalDatabases,
		snapshot: WriterSnapshot{
			WordDocids:        make(map[string][]byte),
			WordPairProximity: make(map[string][]byte),
			WordPosition:      make(map[string][]byte),
		},
	}
}

// Install writes one TypedChunk into its target table.
func (w *Writer) Install(chunk TypedChunk) error {
	if chunk.Kind == ChunkErr {
		return chunk.Err
	}

	tableName, ok := chunkTable[chunk.Kind]
	if !ok {
		return idxerrors.ErrInvalidDatabaseTyping
	}
	table, err := w.tx.Table(tableName)
	if err != nil {
		return err
	}

	merge := mergeFuncFor(chunk.Kind)
	for _, kv := range chunk.Entries {
		if err := w.installOne(table, tableName, kv, merge); err != nil {
			return err
		}
		w.snapshotIfNeeded(chunk.Kind, kv)
	}

	w.databasesSeen++
	w.progress(Progress{
		Stage:          StageMergingPostings,
		DatabasesSeen:  w.databasesSeen,
		TotalDatabases: w.totalDatabases,
	})
	return nil
}

func (w *Writer) installOne(table *store.Table, tableName string, kv KV, merge sorter.MergeFunc) error {
	existing := table.Get(kv.Key)
	if existing == nil {
		return table.Put(kv.Key, kv.Value)
	}
	merged, err := merge(existing, kv.Value)
	if err != nil {
		return idxerrors.NewMergeFailureError(tableName, kv.Key, err)
	}
	return table.Put(kv.Key, merged)
}

func (w *Writer) snapshotIfNeeded(kind ChunkKind, kv KV) {
	switch kind {
	case ChunkWordDocids:
		w.snapshot.WordDocids[string(kv.Key)] = kv.Value
	case ChunkWordPairProximityDocids:
		w.snapshot.WordPairProximity[string(kv.Key)] = kv.Value
	case ChunkWordPositionDocids:
		w.snapshot.WordPosition[string(kv.Key)] = kv.Value
	}
}

// Snapshot returns the accumulated word-level clones for the prefix stage.
func (w *Writer) Snapshot() WriterSnapshot {
	return w.snapshot
}

// mergeFuncFor returns the type-appropriate merge function for a chunk kind
// (spec.md §4.1's "standard merge functions", applied per §4.4's
// append-or-merge rule). Every docid-bearing table merges via roaring
// union; the proximity and position tables use the CBO-optimized variant at
// scale; ChunkGeoPoints and the docid-keyed inverse tables concatenate their
// records rather than unioning bitmaps.
func mergeFuncFor(kind ChunkKind) sorter.MergeFunc {
	switch kind {
	case ChunkFacetStringDocids:
		return mergeFacetStringValue
	case ChunkGeoPoints, ChunkDocidWordPositions, ChunkDocidFieldFacetValues:
		return sorter.ConcatenateBytes
	case ChunkWordPairProximityDocids, ChunkWordPositionDocids:
		return sorter.CBORoaringUnion
	default:
		return sorter.MergeRoaringBitmaps
	}
}

// mergeFacetStringValue merges two FacetStringDocids values: the original
// string is kept from whichever arrived first, and the trailing bitmaps are
// unioned.
func mergeFacetStringValue(a, b []byte) ([]byte, error) {
	original, bitmapA := index.DecodeFacetStringValue(a)
	_, bitmapB := index.DecodeFacetStringValue(b)

	merged, err := sorter.MergeRoaringBitmaps(bitmapA, bitmapB)
	if err != nil {
		return nil, err
	}
	return index.EncodeFacetStringValue(original, merged), nil
}
