// Package sorter implements the bounded-memory external sorter spec.md §4.1
// describes: insert (key, value) pairs in any order, spill to zstd-
// compressed temporary files once the in-memory buffer grows past a memory
// cap, and stream the merged, ascending-key-order result back out, folding
// values for duplicate keys through a caller-supplied associative and
// commutative merge function.
//
// Grounded in the teacher's worker-pool/channel idiom (internal/indexing
// bulk_operations.go) for the producer side, and on milli's grenad-backed
// sorter for the external-merge shape; compression and on-disk layout
// follow klauspost/compress's streaming zstd API the way go-mizu-mizu's
// search blueprint wires it.
package sorter

import (
	"bufio"
	"bytes"
	"container/heap"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/zstd"

	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
)

// MergeFunc folds two values sharing the same key into one. Implementations
// must be associative and commutative: the sorter invokes them in arbitrary
// binary-tree order across spill files.
type MergeFunc func(a, b []byte) ([]byte, error)

// entry is one in-memory (key, value) pair awaiting a spill or the final
// merge.
type entry struct {
	key   []byte
	value []byte
}

// Sorter accumulates (key, value) pairs in memory up to memoryCap bytes,
// spilling sorted, compressed runs to temporary files as needed, and
// bounding the number of coexisting spill files at chunksCap by forcing an
// early compaction merge.
type Sorter struct {
	merge     MergeFunc
	memoryCap int
	chunksCap int

	buf      []entry
	bufBytes int

	dir   string
	files []string
}

// Option configures a Sorter at construction time.
type Option func(*Sorter)

// WithDir sets the directory spill files are created in. Defaults to the
// system temp directory.
func WithDir(dir string) Option {
	return func(s *Sorter) { s.dir = dir }
}

// New returns a Sorter that merges duplicate keys with fn, spilling once the
// in-memory buffer exceeds memoryCap bytes, and forcing a compaction once
// more than chunksCap spill files have accumulated.
func New(fn MergeFunc, memoryCap, chunksCap int, opts ...Option) *Sorter {
	s := &Sorter{merge: fn, memoryCap: memoryCap, chunksCap: chunksCap}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert records one (key, value) pair. Ownership of key and value passes to
// the sorter; callers must not mutate them afterward.
func (s *Sorter) Insert(key, value []byte) error {
	s.buf = append(s.buf, entry{key: key, value: value})
	s.bufBytes += len(key) + len(value)
	if s.bufBytes >= s.memoryCap {
		if err := s.spill(); err != nil {
			return err
		}
	}
	if len(s.files) > s.chunksCap {
		if err := s.compact(); err != nil {
			return err
		}
	}
	return nil
}

// spill sorts the in-memory buffer, merges duplicate keys within it, and
// writes it to a new zstd-compressed temp file.
func (s *Sorter) spill() error {
	if len(s.buf) == 0 {
		return nil
	}
	merged, err := s.mergeEntries(s.buf)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.dir, "sorter-chunk-*")
	if err != nil {
		return err
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(zw)
	for _, e := range merged {
		if err := writeFramed(bw, e.key); err != nil {
			return err
		}
		if err := writeFramed(bw, e.value); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	s.files = append(s.files, f.Name())
	s.buf = nil
	s.bufBytes = 0
	return nil
}

// compact merges every existing spill file plus the in-memory buffer down
// into a single new spill file, bounding the number of open file
// descriptors an eventual full merge would need.
func (s *Sorter) compact() error {
	if err := s.spill(); err != nil {
		return err
	}
	r, err := s.mergedReader()
	if err != nil {
		return err
	}
	defer r.closeStreams()

	f, err := os.CreateTemp(s.dir, "sorter-compacted-*")
	if err != nil {
		return err
	}
	defer f.Close()
	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(zw)
	for {
		k, v, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := writeFramed(bw, k); err != nil {
			return err
		}
		if err := writeFramed(bw, v); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	for _, old := range s.files {
		os.Remove(old)
	}
	s.files = []string{f.Name()}
	return nil
}

// mergeEntries sorts entries by key and folds duplicate keys through merge,
// in ascending order, left-to-right (still commutative/associative-safe).
func (s *Sorter) mergeEntries(entries []entry) ([]entry, error) {
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].key, entries[j].key) < 0 })
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		if len(out) > 0 && bytes.Equal(out[len(out)-1].key, e.key) {
			merged, err := s.merge(out[len(out)-1].value, e.value)
			if err != nil {
				return nil, idxerrors.NewMergeFailureError("sorter", e.key, err)
			}
			out[len(out)-1].value = merged
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// writeFramed writes a length-prefixed byte slice.
func writeFramed(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// readFramed reads one length-prefixed byte slice, returning io.EOF when the
// stream is exhausted cleanly.
func readFramed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Close removes any spill files the sorter created. Call after the reader
// returned by IntoReader has been fully drained, or to abandon the sorter.
func (s *Sorter) Close() error {
	for _, f := range s.files {
		os.Remove(f)
	}
	s.files = nil
	return nil
}
