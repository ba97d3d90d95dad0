package bridge

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOutOfMemory is returned when the heap cannot satisfy an acquisition
var ErrOutOfMemory = errors.New("out of memory")

// Allocator hands out zero-filled transient buffers
type Allocator interface {
	Acquire(n int) (*Buffer, error)
}

// Buffer is a transient native region owned by exactly one call. Release
// returns it to its allocator; only the first Release has an effect.
type Buffer struct {
	data     []byte
	released bool
	onFree   func(n int)
}

// NewBuffer creates a buffer that calls onFree with its length on release.
// Allocators other than Heap use it to build their buffers.
func NewBuffer(n int, onFree func(n int)) *Buffer {
	return &Buffer{data: make([]byte, n), onFree: onFree}
}

// Bytes returns the buffer contents, or nil once released
func (b *Buffer) Bytes() []byte {
	if b.released {
		return nil
	}
	return b.data
}

// Len returns the buffer length in bytes
func (b *Buffer) Len() int {
	return len(b.data)
}

// Released reports whether Release has been called
func (b *Buffer) Released() bool {
	return b.released
}

// Release frees the buffer. Calling it again is a no-op.
func (b *Buffer) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	n := len(b.data)
	b.data = nil
	if b.onFree != nil {
		b.onFree(n)
	}
}

// HeapCounters is a snapshot of allocator bookkeeping
type HeapCounters struct {
	Acquired    uint64
	Released    uint64
	InUse       int
	Collections uint64
}

// Heap is a bounded allocator standing in for the native heap. It also
// reports heap statistics to the sys natives.
type Heap struct {
	mu          sync.Mutex
	size        int
	inUse       int
	acquired    uint64
	released    uint64
	collections uint64
}

// NewHeap creates a heap of size bytes
func NewHeap(size int) *Heap {
	if size < 0 {
		size = 0
	}
	return &Heap{size: size}
}

// Acquire allocates n zero-filled bytes
func (h *Heap) Acquire(n int) (*Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("acquire %d bytes: negative length", n)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inUse+n > h.size {
		return nil, fmt.Errorf("acquire %d bytes (%d available): %w", n, h.size-h.inUse, ErrOutOfMemory)
	}
	h.inUse += n
	h.acquired++
	return NewBuffer(n, h.free), nil
}

func (h *Heap) free(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inUse -= n
	h.released++
}

// Avail returns the number of bytes that can still be acquired
func (h *Heap) Avail() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size - h.inUse
}

// Size returns the heap capacity
func (h *Heap) Size() int {
	return h.size
}

// Collect runs a collection pass. Transient buffers are freed explicitly,
// so there is nothing to sweep; the pass is only counted.
func (h *Heap) Collect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.collections++
}

// Counters returns a snapshot of the heap bookkeeping
func (h *Heap) Counters() HeapCounters {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HeapCounters{
		Acquired:    h.acquired,
		Released:    h.released,
		InUse:       h.inUse,
		Collections: h.collections,
	}
}
