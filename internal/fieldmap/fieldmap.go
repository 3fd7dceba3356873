// Package fieldmap implements the bijection between field names and the
// compact 16-bit field ids used throughout the typed-chunk databases
// (spec.md §3, "FieldsIdMap"). Ids are assigned monotonically and are never
// reused or reassigned, even across ClearDocuments, so that stale postings
// referencing a deleted field id are simply orphaned rather than
// misinterpreted as a different field.
package fieldmap

import (
	"bytes"
	"encoding/gob"
	"sort"
	"sync"

	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
)

// maxFieldID mirrors milli's u16 field id space; id 65535 is reserved so the
// map can hold at most 65535 distinct fields before reporting the limit.
const maxFieldID = 65535

// FieldsIdMap is the bijection between field names and field ids. The zero
// value is not usable; call New.
type FieldsIdMap struct {
	mu       sync.RWMutex
	nameToID map[string]uint16
	idToName map[uint16]string
	nextID   uint16
}

// New returns an empty FieldsIdMap.
func New() *FieldsIdMap {
	return &FieldsIdMap{
		nameToID: make(map[string]uint16),
		idToName: make(map[uint16]string),
	}
}

// ID returns the id already assigned to name, if any.
func (m *FieldsIdMap) ID(name string) (uint16, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.nameToID[name]
	return id, ok
}

// Name returns the field name assigned to id, if any.
func (m *FieldsIdMap) Name(id uint16) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.idToName[id]
	return name, ok
}

// Insert returns the id for name, assigning a new one if name is unseen. It
// is the only mutating entry point, matching milli's FieldsIdsMap::insert.
func (m *FieldsIdMap) Insert(name string) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.nameToID[name]; ok {
		return id, nil
	}
	if int(m.nextID) >= maxFieldID {
		return 0, idxerrors.NewAttributeLimitReachedError()
	}
	id := m.nextID
	m.nextID++
	m.nameToID[name] = id
	m.idToName[id] = name
	return id, nil
}

// Len returns the number of distinct fields known to the map.
func (m *FieldsIdMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nameToID)
}

// Names returns every known field name, sorted for deterministic iteration.
func (m *FieldsIdMap) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.nameToID))
	for name := range m.nameToID {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// gobEntry is the on-disk representation of one mapping, kept separate from
// the live struct so field renames in FieldsIdMap don't silently change the
// snapshot format.
type gobEntry struct {
	Name string
	ID   uint16
}

// Snapshot returns a gob-encoded snapshot of the map, following the
// teacher's persistence.SaveGob/LoadGob convention for small auxiliary
// structures that don't belong in the typed-chunk store.
func (m *FieldsIdMap) Snapshot() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]gobEntry, 0, len(m.nameToID))
	for name, id := range m.nameToID {
		entries = append(entries, gobEntry{Name: name, ID: id})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Restore replaces the map's contents with a snapshot produced by Snapshot.
func Restore(data []byte) (*FieldsIdMap, error) {
	var entries []gobEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entries); err != nil {
		return nil, err
	}
	m := New()
	for _, e := range entries {
		m.nameToID[e.Name] = e.ID
		m.idToName[e.ID] = e.Name
		if e.ID >= m.nextID {
			m.nextID = e.ID + 1
		}
	}
	return m, nil
}
