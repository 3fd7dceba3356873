package sorter

import (
	"bufio"
	"bytes"
	"container/heap"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// chunkStream reads framed (key, value) pairs from one spill file in
// ascending key order.
type chunkStream struct {
	file *os.File
	zr   *zstd.Decoder
	br   *bufio.Reader

	key, value []byte
	done       bool
}

func openChunkStream(path string) (*chunkStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	cs := &chunkStream{file: f, zr: zr, br: bufio.NewReader(zr)}
	if err := cs.advance(); err != nil && err != io.EOF {
		cs.Close()
		return nil, err
	}
	return cs, nil
}

func (c *chunkStream) advance() error {
	k, err := readFramed(c.br)
	if err == io.EOF {
		c.done = true
		return io.EOF
	}
	if err != nil {
		return err
	}
	v, err := readFramed(c.br)
	if err != nil {
		return err
	}
	c.key, c.value = k, v
	return nil
}

func (c *chunkStream) Close() error {
	c.zr.Close()
	return c.file.Close()
}

// streamHeap is a min-heap of chunkStreams ordered by current key, used to
// drive the k-way merge of spill files in ascending key order.
type streamHeap []*chunkStream

func (h streamHeap) Len() int            { return len(h) }
func (h streamHeap) Less(i, j int) bool  { return bytes.Compare(h[i].key, h[j].key) < 0 }
func (h streamHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *streamHeap) Push(x interface{}) { *h = append(*h, x.(*chunkStream)) }
func (h *streamHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Reader streams the fully merged, ascending-key-order output of a Sorter,
// folding duplicate keys across spill files through the sorter's merge
// function as they're encountered.
type Reader struct {
	sorter  *Sorter
	streams []*chunkStream
	heap    streamHeap
}

// mergedReader opens every spill file for a k-way merge.
func (s *Sorter) mergedReader() (*Reader, error) {
	r := &Reader{sorter: s}
	for _, path := range s.files {
		cs, err := openChunkStream(path)
		if err != nil {
			r.closeStreams()
			return nil, err
		}
		r.streams = append(r.streams, cs)
		if !cs.done {
			r.heap = append(r.heap, cs)
		}
	}
	heap.Init(&r.heap)
	return r, nil
}

func (r *Reader) closeStreams() {
	for _, cs := range r.streams {
		cs.Close()
	}
}

// Next returns the next merged (key, value) pair in ascending key order, or
// io.EOF once every spill file is exhausted.
func (r *Reader) Next() ([]byte, []byte, error) {
	if r.heap.Len() == 0 {
		return nil, nil, io.EOF
	}
	top := r.heap[0]
	key := append([]byte(nil), top.key...)
	value := top.value

	for r.heap.Len() > 0 && bytes.Equal(r.heap[0].key, key) {
		cs := r.heap[0]
		if cs != top {
			merged, err := r.sorter.merge(value, cs.value)
			if err != nil {
				return nil, nil, err
			}
			value = merged
		}
		if err := cs.advance(); err != nil && err != io.EOF {
			return nil, nil, err
		}
		if cs.done {
			heap.Pop(&r.heap)
		} else {
			heap.Fix(&r.heap, 0)
		}
	}
	return key, value, nil
}

// Close releases every open spill-file handle and removes the sorter's
// temporary files. Call once the reader has been fully drained or abandoned.
func (r *Reader) Close() error {
	r.closeStreams()
	return r.sorter.Close()
}

// IntoReader flushes any buffered entries and returns a Reader over the
// fully merged, ascending-key-order contents of the sorter. The sorter must
// not be used for further Insert calls afterward.
func (s *Sorter) IntoReader() (*Reader, error) {
	if err := s.spill(); err != nil {
		return nil, err
	}
	return s.mergedReader()
}
