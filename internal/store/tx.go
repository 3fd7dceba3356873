package store

import (
	"bytes"

	"go.etcd.io/bbolt"
)

// Tx wraps a bbolt transaction, exposing the table operations the indexing
// pipeline needs: get, put, delete, prefix_iter, range_iter, clear, and
// lazily-decoded iteration with delete_current.
type Tx struct {
	btx *bbolt.Tx
}

// Writable reports whether this is a read-write transaction.
func (t *Tx) Writable() bool {
	return t.btx.Writable()
}

// Table returns a handle on the named table (bbolt bucket), creating it if
// this is a write transaction and the table does not yet exist.
func (t *Tx) Table(name string) (*Table, error) {
	if t.btx.Writable() {
		b, err := t.btx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return nil, err
		}
		return &Table{b: b}, nil
	}
	b := t.btx.Bucket([]byte(name))
	if b == nil {
		return &Table{b: nil}, nil
	}
	return &Table{b: b}, nil
}

// Table is a single ordered byte-keyed table within a transaction.
type Table struct {
	b *bbolt.Bucket
}

// Get returns the value stored for key, or nil if absent. The returned
// slice is only valid for the lifetime of the enclosing transaction.
func (t *Table) Get(key []byte) []byte {
	if t.b == nil {
		return nil
	}
	return t.b.Get(key)
}

// Put stores value under key, overwriting any existing entry.
func (t *Table) Put(key, value []byte) error {
	return t.b.Put(key, value)
}

// Delete removes key, if present.
func (t *Table) Delete(key []byte) error {
	if t.b == nil {
		return nil
	}
	return t.b.Delete(key)
}

// Clear removes every entry in the table.
func (t *Table) Clear() error {
	if t.b == nil {
		return nil
	}
	c := t.b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.First() {
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}

// Empty reports whether the table currently has no entries.
func (t *Table) Empty() bool {
	if t.b == nil {
		return true
	}
	k, _ := t.b.Cursor().First()
	return k == nil
}

// ForEach calls fn for every (key, value) pair in ascending key order.
// Stops early if fn returns an error.
func (t *Table) ForEach(fn func(key, value []byte) error) error {
	if t.b == nil {
		return nil
	}
	return t.b.ForEach(fn)
}

// PrefixIterator calls fn for every key with the given prefix, in ascending
// order. If deleteMatched is true, each matched entry is removed as the
// cursor advances past it (lazily-decoded iteration with delete_current).
func (t *Table) PrefixIterator(prefix []byte, deleteMatched bool, fn func(key, value []byte) error) error {
	if t.b == nil {
		return nil
	}
	c := t.b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(k, v); err != nil {
			return err
		}
		if deleteMatched {
			if err := c.Delete(); err != nil {
				return err
			}
		}
	}
	return nil
}

// RangeIterator calls fn for every key in [start, end), in ascending order.
// A nil end means "to the end of the table".
func (t *Table) RangeIterator(start, end []byte, fn func(key, value []byte) error) error {
	if t.b == nil {
		return nil
	}
	c := t.b.Cursor()
	for k, v := c.Seek(start); k != nil; k, v = c.Next() {
		if end != nil && bytes.Compare(k, end) >= 0 {
			break
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

// DeletePrefix removes every entry whose key has the given prefix.
func (t *Table) DeletePrefix(prefix []byte) error {
	if t.b == nil {
		return nil
	}
	return t.PrefixIterator(prefix, true, func(k, v []byte) error { return nil })
}
