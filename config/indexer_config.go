package config

// UpdateMethod selects how a batch reconciles with documents that already
// share its external id.
type UpdateMethod int

const (
	// ReplaceDocuments discards the old document entirely on a match.
	ReplaceDocuments UpdateMethod = iota
	// UpdateDocuments merges new field values over the old document; new
	// values win per field, unchanged fields persist.
	UpdateDocuments
)

func (m UpdateMethod) String() string {
	if m == UpdateDocuments {
		return "UpdateDocuments"
	}
	return "ReplaceDocuments"
}

// IndexerConfig carries the numeric knobs of the indexing pipeline: facet
// level fan-out, prefix FST thresholds, sorter memory/spill caps, and the
// per-batch document chunk size handed to extraction workers.
type IndexerConfig struct {
	// FacetLevelGroupSize is the fan-out bucketed per level in the
	// hierarchical facet-number postings (spec.md §4.7). Must be > 1.
	FacetLevelGroupSize int

	// FacetMinLevelSize stops level-building once a level would contain
	// fewer than this many groups.
	FacetMinLevelSize int

	// WordsPrefixThreshold is the minimum number of descendant words a
	// prefix needs to be retained in WordsPrefixesFst.
	WordsPrefixThreshold int

	// MaxPrefixLength caps retained prefixes to this many UTF-8 bytes.
	MaxPrefixLength int

	// WordsPositionsLevelGroupSize and WordsPositionsMinLevelSize mirror
	// the facet level-building knobs for word-position levels.
	WordsPositionsLevelGroupSize int
	WordsPositionsMinLevelSize   int

	// UpdateMethod selects Replace vs Update semantics for this batch.
	UpdateMethod UpdateMethod

	// AutogenerateDocids, when true, assigns a fresh UUID primary key to
	// documents missing one instead of failing the batch.
	AutogenerateDocids bool

	// MaxPositionsPerAttribute truncates token positions recorded per
	// attribute; tokens past this position are dropped before indexing and
	// do not count toward word-count either.
	MaxPositionsPerAttribute int

	// WorkerCount bounds the extraction worker pool; zero means
	// runtime.NumCPU().
	WorkerCount int

	// DocumentsChunkSize is a size, in bytes, for grouping the documents
	// file. The indexing pipeline does not read it: Extract hands decoded
	// documents to its workers one at a time, without grouping.
	DocumentsChunkSize int

	// SorterMemoryCap is the in-memory buffer ceiling, in bytes, before an
	// external sorter spills to a temp file.
	SorterMemoryCap int

	// SorterMaxChunks bounds the number of coexisting spill files before a
	// sorter is forced to compact them.
	SorterMaxChunks int

	// SoftRebuildThreshold is the number of pending soft-overlay entries
	// (insertions + tombstones) the external-id map tolerates before its
	// hard FST is rebuilt from scratch (spec.md §3 ExternalDocumentsIds;
	// mirrors the original's rebuild-on-union threshold).
	SoftRebuildThreshold int
}

// DefaultIndexerConfig returns the defaults named in spec.md §6.
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		FacetLevelGroupSize:          4,
		FacetMinLevelSize:            5,
		WordsPrefixThreshold:         100,
		MaxPrefixLength:              4,
		WordsPositionsLevelGroupSize: 4,
		WordsPositionsMinLevelSize:   5,
		UpdateMethod:                 ReplaceDocuments,
		AutogenerateDocids:           false,
		MaxPositionsPerAttribute:     1000,
		WorkerCount:                  0,
		DocumentsChunkSize:           4 * 1024 * 1024, // 4 MiB, matches milli's grenad chunk size
		SorterMemoryCap:              64 * 1024 * 1024,
		SorterMaxChunks:              20,
		SoftRebuildThreshold:         1000,
	}
}
