package indexing

import (
	"math"
	"regexp"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/docids"
	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/gcbaptista/faceted-index/internal/fieldmap"
	"github.com/gcbaptista/faceted-index/internal/sorter"
	"github.com/gcbaptista/faceted-index/model"
	docstore "github.com/gcbaptista/faceted-index/store"
)

// externalIDPattern is the validation regex for external document ids
// (spec.md §3, "external id matches regex [A-Za-z0-9_-]+").
var externalIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ExistingDocumentReader resolves an internal docid to its previously
// committed obkv record, used by Update mode to merge new values over old
// ones. A Replace-mode transform never calls it.
type ExistingDocumentReader interface {
	GetDocument(internalID uint32) ([]byte, bool)
}

// TransformInput bundles everything the Transform stage needs (spec.md
// §4.2).
type TransformInput struct {
	Documents           []model.Document
	FieldsIdsMap        *fieldmap.FieldsIdMap
	ExternalDocumentIds *docids.ExternalDocumentsIds
	PrimaryKey          string // empty means "infer from the first document"
	Mode                config.UpdateMethod
	AutogenerateDocids  bool
	NextInternalID      uint32 // next unused internal id (max(existing)+1, or 0 for an empty index)
	Existing            ExistingDocumentReader
}

// TransformOutput is what Transform hands to Extraction (spec.md §4.2
// step 5).
type TransformOutput struct {
	PrimaryKey           string
	FieldsIdsMap         *fieldmap.FieldsIdMap
	FieldDistribution    map[string]int
	ExternalDocumentIds  *docids.ExternalDocumentsIds
	NewDocumentsIds      *roaring.Bitmap
	ReplacedDocumentsIds *roaring.Bitmap
	DocumentsCount       int
	Documents            *sorter.Reader // key = internalID_be_u32, value = obkv bytes
}

// Transform runs spec.md §4.2's algorithm over one batch of documents.
func Transform(in TransformInput) (*TransformOutput, error) {
	primaryKey := in.PrimaryKey
	if primaryKey == "" {
		var fieldNames []string
		if len(in.Documents) > 0 {
			fieldNames = in.Documents[0].FieldNames()
			sort.Strings(fieldNames)
		}
		inferred, ok := model.InferPrimaryKeyField(fieldNames)
		if !ok {
			return nil, idxerrors.ErrMissingPrimaryKey
		}
		primaryKey = inferred
	}

	s := sorter.New(sorter.KeepFirst, 64*1024*1024, 20)

	newIDs := roaring.New()
	replacedIDs := roaring.New()
	fieldDistribution := make(map[string]int)
	nextID := in.NextInternalID

	// Last-occurrence-wins: pre-scan to find, for each primary-key value,
	// the index of its final occurrence (spec.md §4.2 edge cases).
	lastOccurrence := make(map[string]int)
	for i, doc := range in.Documents {
		if v, ok := doc.PrimaryKeyValue(primaryKey); ok {
			lastOccurrence[v] = i
		}
	}

	count := 0
	for i, doc := range in.Documents {
		extID, ok := doc.PrimaryKeyValue(primaryKey)
		if !ok {
			if in.AutogenerateDocids {
				extID = uuid.NewString()
				doc[primaryKey] = extID
			} else {
				return nil, idxerrors.NewMissingDocumentIDError(primaryKey)
			}
		} else {
			if !externalIDPattern.MatchString(extID) {
				return nil, idxerrors.NewInvalidDocumentIDError(extID)
			}
			if lastOccurrence[extID] != i {
				continue // superseded by a later occurrence in this batch
			}
		}

		var internalID uint32
		var oldRecords []docstore.Record
		if existingID, found := in.ExternalDocumentIds.Get(extID); found {
			internalID = existingID
			replacedIDs.Add(internalID)
			if in.Mode == config.UpdateDocuments && in.Existing != nil {
				if raw, ok := in.Existing.GetDocument(internalID); ok {
					if recs, err := docstore.Decode(raw); err == nil {
						oldRecords = recs
					}
				}
			}
		} else {
			if nextID == math.MaxUint32 {
				return nil, idxerrors.NewDocumentLimitReachedError()
			}
			internalID = nextID
			nextID++
			newIDs.Add(internalID)
			in.ExternalDocumentIds.Insert(extID, internalID)
		}

		for _, name := range doc.FieldNames() {
			fieldDistribution[name]++
		}

		newData, err := docstore.Encode(doc, in.FieldsIdsMap)
		if err != nil {
			return nil, err
		}

		var finalData []byte
		if len(oldRecords) > 0 {
			newRecords, err := docstore.Decode(newData)
			if err != nil {
				return nil, err
			}
			finalData = docstore.EncodeRecords(docstore.MergeRecords(oldRecords, newRecords))
		} else {
			finalData = newData
		}

		key := encodeInternalIDKey(internalID)
		if err := s.Insert(key, finalData); err != nil {
			return nil, err
		}
		count++
	}

	reader, err := s.IntoReader()
	if err != nil {
		return nil, err
	}

	return &TransformOutput{
		PrimaryKey:           primaryKey,
		FieldsIdsMap:         in.FieldsIdsMap,
		FieldDistribution:    fieldDistribution,
		ExternalDocumentIds:  in.ExternalDocumentIds,
		NewDocumentsIds:      newIDs,
		ReplacedDocumentsIds: replacedIDs,
		DocumentsCount:       count,
		Documents:            reader,
	}, nil
}

func encodeInternalIDKey(id uint32) []byte {
	return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
}

// DecodeInternalIDKey reverses encodeInternalIDKey, used by the extraction
// stage to recover each record's docid while draining TransformOutput.Documents.
func DecodeInternalIDKey(key []byte) uint32 {
	return uint32(key[0])<<24 | uint32(key[1])<<16 | uint32(key[2])<<8 | uint32(key[3])
}
