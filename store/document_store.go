// Package store implements the obkv (ordered-by-key-value) document record
// codec: a compact, field-id-ordered binary encoding of a document used as
// the Transform stage's intermediate representation (spec.md §4.2 step 5)
// and as the value stored under each docid in the documents table.
//
// Grounded in the teacher's DocumentStore Gob-encoding idiom (same package,
// same []interface{}-vs-[]string normalization concern) but the storage
// layout itself follows milli's obkv format: a sequence of
// (field_id_be_u16, len_be_u32, json_bytes) records in ascending field_id
// order, rather than a Go map serialized wholesale.
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/gcbaptista/faceted-index/model"
)

// Record is one decoded obkv entry: a field id paired with its raw
// JSON-encoded value.
type Record struct {
	FieldID uint16
	Raw     json.RawMessage
}

// FieldInserter interns a field name and returns its field id, as
// FieldsIdMap.Insert does; Encode uses it for every field it writes.
type FieldInserter interface {
	Insert(name string) (uint16, error)
}

// Encode converts a document into its obkv byte representation, inserting
// every field name into ids via FieldInserter so the fields-id map stays in
// sync with what gets written.
func Encode(doc model.Document, ids FieldInserter) ([]byte, error) {
	names := doc.FieldNames()
	sort.Strings(names)

	type fieldRecord struct {
		id  uint16
		raw []byte
	}
	records := make([]fieldRecord, 0, len(names))
	for _, name := range names {
		id, err := ids.Insert(name)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(doc[name])
		if err != nil {
			return nil, fmt.Errorf("%w: encoding field %q: %v", idxerrors.ErrSerialization, name, err)
		}
		records = append(records, fieldRecord{id: id, raw: raw})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].id < records[j].id })

	out := make([]byte, 0, 64*len(records))
	var header [6]byte
	for _, r := range records {
		binary.BigEndian.PutUint16(header[0:2], r.id)
		binary.BigEndian.PutUint32(header[2:6], uint32(len(r.raw)))
		out = append(out, header[:]...)
		out = append(out, r.raw...)
	}
	return out, nil
}

// Decode parses an obkv byte string back into its ascending-field-id-ordered
// records.
func Decode(data []byte) ([]Record, error) {
	var records []Record
	for len(data) > 0 {
		if len(data) < 6 {
			return nil, fmt.Errorf("%w: truncated obkv record header", idxerrors.ErrSerialization)
		}
		fieldID := binary.BigEndian.Uint16(data[0:2])
		length := binary.BigEndian.Uint32(data[2:6])
		data = data[6:]
		if uint32(len(data)) < length {
			return nil, fmt.Errorf("%w: truncated obkv record body", idxerrors.ErrSerialization)
		}
		records = append(records, Record{FieldID: fieldID, Raw: json.RawMessage(data[:length])})
		data = data[length:]
	}
	return records, nil
}

// FieldNamer resolves a field id back to its name, the reverse of
// FieldInserter, needed to reconstruct a model.Document from obkv records.
type FieldNamer interface {
	Name(id uint16) (string, bool)
}

// DecodeDocument parses an obkv byte string into a model.Document, resolving
// field ids back to names via names.
func DecodeDocument(data []byte, names FieldNamer) (model.Document, error) {
	records, err := Decode(data)
	if err != nil {
		return nil, err
	}
	doc := make(model.Document, len(records))
	for _, r := range records {
		name, ok := names.Name(r.FieldID)
		if !ok {
			return nil, idxerrors.ErrFieldsIDMapMissingEntry
		}
		var v interface{}
		if err := json.Unmarshal(r.Raw, &v); err != nil {
			return nil, fmt.Errorf("%w: decoding field %q: %v", idxerrors.ErrSerialization, name, err)
		}
		doc[name] = v
	}
	return doc, nil
}

// MergeRecords merges new document records over old ones by ascending field
// id, new values winning per field (spec.md §4.2 step 4, Update mode). Both
// inputs must already be in ascending field-id order, as Decode produces.
func MergeRecords(old, new []Record) []Record {
	merged := make(map[uint16]json.RawMessage, len(old)+len(new))
	var order []uint16
	for _, r := range old {
		if _, seen := merged[r.FieldID]; !seen {
			order = append(order, r.FieldID)
		}
		merged[r.FieldID] = r.Raw
	}
	for _, r := range new {
		if _, seen := merged[r.FieldID]; !seen {
			order = append(order, r.FieldID)
		}
		merged[r.FieldID] = r.Raw
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]Record, 0, len(order))
	for _, id := range order {
		out = append(out, Record{FieldID: id, Raw: merged[id]})
	}
	return out
}

// EncodeRecords serializes already-decoded records back into obkv bytes,
// the inverse of Decode, used after MergeRecords.
func EncodeRecords(records []Record) []byte {
	out := make([]byte, 0, 64*len(records))
	var header [6]byte
	for _, r := range records {
		binary.BigEndian.PutUint16(header[0:2], r.FieldID)
		binary.BigEndian.PutUint32(header[2:6], uint32(len(r.Raw)))
		out = append(out, header[:]...)
		out = append(out, r.Raw...)
	}
	return out
}
