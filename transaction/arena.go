package transaction

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/logminer/redocore/redolib/rerr"
)

// defaultChunkEntries bounds how many Entry values a single chunk page
// holds before a new page is linked (spec §3 TxChunk: "default 1 MiB"
// page; we size by entry count here since Entry already owns its byte
// slices, matching the "packed sequence of entries" framing without
// hand-rolling a byte-level page layout for a language where slices are
// already bounds-checked).
const defaultChunkEntries = 512

// chunk is one TxChunk: a fixed-capacity page of entries plus an
// intrusive link to the next chunk in the same transaction's chain
// (spec DESIGN NOTES §9: "indices into the arena, not pointers" — here
// realized as a free-list-backed pool of *chunk values, which Go's GC
// makes safe to keep as ordinary pointers while the allocator still
// enforces the fixed-page/free-list discipline).
type chunk struct {
	entries []Entry
	next    *chunk
}

type chunkCursor struct {
	c   *chunk
	idx int
}

// Arena is the process-wide TxChunk allocator (spec §4.4): starts at
// memory-min-mb worth of chunks, grows one at a time, never exceeds
// memory-max-mb, and blocks (or fails MemoryExhausted) when exhausted.
type Arena struct {
	mu       sync.Mutex
	free     []*chunk
	sem      *semaphore.Weighted
	maxCount int64
	active   bool // whether a writer is actively releasing chunks
}

// NewArena builds an arena sized from memory-min-mb/memory-max-mb and an
// assumed average chunk size, translated into a chunk count.
func NewArena(minMB, maxMB, chunkBytesApprox int) *Arena {
	if chunkBytesApprox <= 0 {
		chunkBytesApprox = 1 << 20
	}
	maxChunks := int64(maxMB) * (1 << 20) / int64(chunkBytesApprox)
	if maxChunks < 1 {
		maxChunks = 1
	}
	a := &Arena{sem: semaphore.NewWeighted(maxChunks), maxCount: maxChunks, active: true}
	minChunks := int64(minMB) * (1 << 20) / int64(chunkBytesApprox)
	for i := int64(0); i < minChunks && i < maxChunks; i++ {
		a.free = append(a.free, &chunk{entries: make([]Entry, 0, defaultChunkEntries)})
	}
	return a
}

// SetActive marks whether a writer is currently releasing chunks, used to
// decide between blocking and failing MemoryExhausted (spec §4.4).
func (a *Arena) SetActive(active bool) {
	a.mu.Lock()
	a.active = active
	a.mu.Unlock()
}

// alloc acquires one chunk, blocking on ctx if the arena is momentarily
// exhausted but a writer is active, or failing MemoryExhausted if not.
func (a *Arena) alloc(ctx context.Context) (*chunk, error) {
	a.mu.Lock()
	active := a.active
	a.mu.Unlock()
	if !active {
		if !a.sem.TryAcquire(1) {
			return nil, rerr.New(rerr.MemoryExhausted, 0,
				"arena exhausted and no writer active; raise memory-max-mb or skip the offending XID")
		}
	} else if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, rerr.Wrap(rerr.MemoryExhausted, 0, err, "arena allocation canceled")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.free); n > 0 {
		c := a.free[n-1]
		a.free = a.free[:n-1]
		c.entries = c.entries[:0]
		c.next = nil
		return c, nil
	}
	return &chunk{entries: make([]Entry, 0, defaultChunkEntries)}, nil
}

// release returns a chunk to the pool and releases its semaphore slot.
// Store calls it when a rollback empties or discards the chunk, and
// after Flush has replayed the chunk's transaction to the sink.
func (a *Arena) release(c *chunk) {
	a.mu.Lock()
	a.free = append(a.free, c)
	a.mu.Unlock()
	a.sem.Release(1)
}

// Allocated reports in-use chunk count (for the §8 invariant check
// "allocated - free == sum(open_txn.chunks)").
func (a *Arena) Allocated() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxCount - int64(len(a.free))
}
