// Package store wraps go.etcd.io/bbolt to provide the ordered byte-keyed
// transactional tables spec.md §6 assumes as the indexing core's storage
// substrate: get/put/delete, prefix and range iteration, clear, and a
// single read-write transaction with any number of concurrent read-only
// ones.
package store

import (
	"fmt"

	"go.etcd.io/bbolt"

	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
)

// Store owns one index's on-disk database file.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the bbolt database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening store at %s: %v", idxerrors.ErrInvalidStoreFile, path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Update runs fn within the store's single read-write transaction. Only one
// Update call executes at a time; bbolt serializes writers internally.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// View runs fn within a read-only transaction. Any number of View calls may
// run concurrently with each other and with a single in-flight Update,
// each seeing a consistent pre-Update snapshot until that Update commits.
func (s *Store) View(fn func(tx *Tx) error) error {
	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// Path returns the file path of the underlying database.
func (s *Store) Path() string {
	return s.db.Path()
}
