// Package docids implements ExternalDocumentsIds, the mapping between a
// document's external (caller-supplied or autogenerated) id string and its
// internal uint32 docid (spec.md §3, §4.2). Lookups are served by a "hard"
// FST built from a full rebuild and never mutated in place, and a "soft"
// overlay holding changes (insertions and tombstones) since the last
// rebuild. The soft overlay is an in-memory map, not an FST; it is persisted
// gob-encoded (SoftBytes/LoadSoft). Soft entries always shadow hard ones, so
// a lookup checks soft first and falls back to hard.
package docids

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/blevesearch/vellum"

	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
)

// tombstone marks a deleted external id in the soft overlay. Overlay and
// vellum values are uint64 and docids never use the top bit, so it's free to
// flag a deletion.
const tombstone = uint64(1) << 63

// ExternalDocumentsIds resolves external document ids to internal docids.
type ExternalDocumentsIds struct {
	hard *vellum.FST // nil until the first rebuild
	soft map[string]uint64
}

// New returns an empty map with no hard FST and an empty soft overlay.
func New() *ExternalDocumentsIds {
	return &ExternalDocumentsIds{soft: make(map[string]uint64)}
}

// Get resolves an external id to its internal docid. It returns ok=false if
// the id is unknown or has been deleted (tombstoned) since the last rebuild.
func (e *ExternalDocumentsIds) Get(externalID string) (uint32, bool) {
	if v, ok := e.soft[externalID]; ok {
		if v&tombstone != 0 {
			return 0, false
		}
		return uint32(v), true
	}
	if e.hard == nil {
		return 0, false
	}
	v, exists, err := e.hard.Get([]byte(externalID))
	if err != nil || !exists {
		return 0, false
	}
	return uint32(v), true
}

// Insert records that externalID maps to docid. The mapping lands in the
// soft overlay until the next Rebuild.
func (e *ExternalDocumentsIds) Insert(externalID string, docid uint32) {
	e.soft[externalID] = uint64(docid)
}

// Delete tombstones externalID so subsequent Get calls report it absent,
// without needing to touch the hard FST immediately.
func (e *ExternalDocumentsIds) Delete(externalID string) {
	e.soft[externalID] = tombstone
}

// SoftLen returns the number of pending entries (insertions + tombstones)
// accumulated since the last Rebuild. Callers use this against
// IndexerConfig's soft-overlay threshold to decide when to rebuild.
func (e *ExternalDocumentsIds) SoftLen() int {
	return len(e.soft)
}

// Rebuild merges the soft overlay into a freshly built hard FST, in sorted
// key order as vellum's builder requires, and clears the overlay. Tombstoned
// entries are simply omitted from the rebuilt FST.
func (e *ExternalDocumentsIds) Rebuild() error {
	merged := make(map[string]uint64, len(e.soft))
	if e.hard != nil {
		itr, err := e.hard.Iterator(nil, nil)
		for err == nil {
			k, v := itr.Current()
			merged[string(k)] = v
			err = itr.Next()
		}
		if err != nil && err != vellum.ErrIteratorDone {
			return err
		}
	}
	for k, v := range e.soft {
		if v&tombstone != 0 {
			delete(merged, k)
		} else {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return idxerrors.ErrFST
	}
	for _, k := range keys {
		if err := builder.Insert([]byte(k), merged[k]); err != nil {
			return idxerrors.ErrFST
		}
	}
	if err := builder.Close(); err != nil {
		return idxerrors.ErrFST
	}

	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return idxerrors.ErrFST
	}
	e.hard = fst
	e.soft = make(map[string]uint64)
	return nil
}

// HardBytes returns the serialized hard FST for persistence, or nil if no
// rebuild has happened yet.
func (e *ExternalDocumentsIds) HardBytes() []byte {
	if e.hard == nil {
		return nil
	}
	return e.hard.Bytes()
}

// SoftBytes gob-encodes the pending soft overlay for persistence between
// hard-FST rebuilds, so a process restart doesn't force a rebuild just to
// recover entries that haven't crossed the rebuild threshold yet.
func (e *ExternalDocumentsIds) SoftBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e.soft); err != nil {
		return nil, idxerrors.ErrSerialization
	}
	return buf.Bytes(), nil
}

// LoadSoft restores a previously persisted soft overlay onto e, merging it
// with whatever overlay is already present.
func (e *ExternalDocumentsIds) LoadSoft(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var soft map[string]uint64
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&soft); err != nil {
		return idxerrors.ErrSerialization
	}
	for k, v := range soft {
		e.soft[k] = v
	}
	return nil
}

// LoadHard replaces the hard FST from previously persisted bytes.
func LoadHard(data []byte) (*ExternalDocumentsIds, error) {
	e := New()
	if len(data) == 0 {
		return e, nil
	}
	fst, err := vellum.Load(data)
	if err != nil {
		return nil, idxerrors.ErrFST
	}
	e.hard = fst
	return e, nil
}
