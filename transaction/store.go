package transaction

import (
	"context"
	"sort"
	"sync"

	"github.com/tidwall/btree"

	"github.com/logminer/redocore/emitter"
	"github.com/logminer/redocore/redolib/rerr"
	"github.com/logminer/redocore/redolib/recordtype"
)

// flushKey orders committed transactions for emission: commit-SCN
// ascending, ties broken by (thread, commit_subscn) (spec §5 ordering
// guarantees), then by XID so two transactions never share a key.
type flushKey struct {
	scn    recordtype.Scn
	thread uint16
	subscn recordtype.SubScn
	xid    recordtype.Xid
}

func lessFlushKey(a, b flushKey) bool {
	if a.scn != b.scn {
		return a.scn < b.scn
	}
	if a.thread != b.thread {
		return a.thread < b.thread
	}
	if a.subscn != b.subscn {
		return a.subscn < b.subscn
	}
	return a.xid.Packed() < b.xid.Packed()
}

// Store is the TransactionStore (spec §4.4): one parser task owns it,
// appending and replaying; an Emitter/Writer task drains committed
// transactions via Flush. The arena mutex is only held during alloc/free.
type Store struct {
	arena *Arena

	mu       sync.Mutex
	open     map[recordtype.Xid]*Transaction
	ready    *btree.BTreeG[flushKey] // commit-SCN-ordered index of flushable xids
	done     map[flushKey]*Transaction
	resolver Resolver
	policy   NotNullMissingPolicy
}

func NewStore(arena *Arena) *Store {
	return &Store{
		arena: arena,
		open:  make(map[recordtype.Xid]*Transaction),
		ready: btree.NewBTreeG(lessFlushKey),
		done:  make(map[flushKey]*Transaction),
	}
}

// SetResolver installs the Schema-backed Resolver replay uses to turn
// segCol-keyed entries into name-keyed Emitter payloads.
func (s *Store) SetResolver(r Resolver) {
	s.mu.Lock()
	s.resolver = r
	s.mu.Unlock()
}

// SetNotNullMissingPolicy installs the §9 open-question resolution.
func (s *Store) SetNotNullMissingPolicy(p NotNullMissingPolicy) {
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
}

// Begin creates (or returns the existing) Transaction for xid (spec §4.4:
// "created on first opcode bearing the XID"). Two transactions with the
// same XID cannot coexist (spec §4.5 reuse rule) — Begin on an XID that
// is still open from a prior, unflushed commit is a caller error the
// dispatcher must have already resolved via commit/purge.
func (s *Store) Begin(xid recordtype.Xid, thread uint16, scn recordtype.Scn, seq recordtype.Seq, offset recordtype.FileOffset) *Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.open[xid]; ok {
		return t
	}
	t := newTransaction(xid)
	t.Thread = thread
	t.BeginScn = scn
	t.BeginSeq = seq
	t.BeginOffset = offset
	s.open[xid] = t
	return t
}

func (s *Store) Lookup(xid recordtype.Xid) (*Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.open[xid]
	return t, ok
}

// Append adds one opcode entry to xid's chain, allocating a new chunk
// from the arena when the tail chunk is full.
func (s *Store) Append(ctx context.Context, xid recordtype.Xid, e Entry) error {
	s.mu.Lock()
	t, ok := s.open[xid]
	s.mu.Unlock()
	if !ok {
		return rerr.New(rerr.Malformed, e.Offset, "append to unknown transaction")
	}

	if t.tail == nil || len(t.tail.entries) == cap(t.tail.entries) {
		c, err := s.arena.alloc(ctx)
		if err != nil {
			return err
		}
		if t.tail == nil {
			t.chain = c
		} else {
			t.tail.next = c
		}
		t.tail = c
	}
	t.tail.entries = append(t.tail.entries, e)
	t.SizeBytes += int64(len(e.Before)+len(e.After)) * 64 // rough accounting, not exact byte count
	return nil
}

// MergeSupplemental attaches supplemental-log column images (spec §4.3
// opcode 11.16) onto the most recently appended entry for xid: a
// supplemental vector carries columns the paired undo/redo vectors never
// touched (spec §8 scenario 2: an unmodified PK column like DEPTNO must
// still show up in both before and after images). Columns the entry
// already carries are left untouched; only gaps are filled.
func (s *Store) MergeSupplemental(xid recordtype.Xid, cols map[int][]byte) {
	if len(cols) == 0 {
		return
	}
	s.mu.Lock()
	t, ok := s.open[xid]
	s.mu.Unlock()
	if !ok || t.tail == nil || len(t.tail.entries) == 0 {
		return
	}
	e := &t.tail.entries[len(t.tail.entries)-1]
	switch e.Op {
	case DmlInsert:
		mergeMissingColumns(&e.After, cols)
	case DmlDelete:
		mergeMissingColumns(&e.Before, cols)
	default: // DmlUpdate, DmlLock: identifying columns apply to both images
		mergeMissingColumns(&e.Before, cols)
		mergeMissingColumns(&e.After, cols)
	}
}

func mergeMissingColumns(dst *map[int][]byte, src map[int][]byte) {
	if *dst == nil {
		*dst = make(map[int][]byte, len(src))
	}
	for col, b := range src {
		if _, exists := (*dst)[col]; !exists {
			(*dst)[col] = b
		}
	}
}

// DropLastMatching walks backward in the most recent chunk for uba and
// drops that entry, freeing the chunk if emptied (spec §4.4).
func (s *Store) DropLastMatching(xid recordtype.Xid, uba recordtype.Uba) bool {
	s.mu.Lock()
	t, ok := s.open[xid]
	s.mu.Unlock()
	if !ok {
		return false
	}
	for c := t.tail; c != nil; {
		for i := len(c.entries) - 1; i >= 0; i-- {
			if c.entries[i].Uba.Equal(uba) {
				c.entries = append(c.entries[:i], c.entries[i+1:]...)
				if len(c.entries) == 0 {
					s.unlinkChunk(t, c)
				}
				return true
			}
		}
		// walk to the previous chunk requires a forward scan since the
		// chain is singly linked; fall through to full scan below.
		break
	}
	return s.dropLastMatchingFullScan(t, uba)
}

func (s *Store) dropLastMatchingFullScan(t *Transaction, uba recordtype.Uba) bool {
	var chunks []*chunk
	for c := t.chain; c != nil; c = c.next {
		chunks = append(chunks, c)
	}
	for i := len(chunks) - 1; i >= 0; i-- {
		c := chunks[i]
		for j := len(c.entries) - 1; j >= 0; j-- {
			if c.entries[j].Uba.Equal(uba) {
				c.entries = append(c.entries[:j], c.entries[j+1:]...)
				if len(c.entries) == 0 {
					s.unlinkChunk(t, c)
				}
				return true
			}
		}
	}
	return false
}

func (s *Store) unlinkChunk(t *Transaction, target *chunk) {
	if t.chain == target {
		t.chain = target.next
		if t.tail == target {
			t.tail = nil
		}
		s.arena.release(target)
		return
	}
	for c := t.chain; c != nil; c = c.next {
		if c.next == target {
			c.next = target.next
			if t.tail == target {
				t.tail = c
			}
			s.arena.release(target)
			return
		}
	}
}

// DropToSavepoint drops all entries whose Uba is strictly after
// savepointHigh (spec §4.4 "drop_to_savepoint").
func (s *Store) DropToSavepoint(xid recordtype.Xid, savepointHigh recordtype.Uba) {
	s.mu.Lock()
	t, ok := s.open[xid]
	s.mu.Unlock()
	if !ok {
		return
	}
	var prev *chunk
	for c := t.chain; c != nil; {
		kept := c.entries[:0]
		for _, e := range c.entries {
			if !e.Uba.After(savepointHigh) {
				kept = append(kept, e)
			}
		}
		next := c.next
		if len(kept) == 0 {
			if prev == nil {
				t.chain = next
			} else {
				prev.next = next
			}
			if t.tail == c {
				t.tail = prev
			}
			s.arena.release(c)
		} else {
			c.entries = kept
			prev = c
		}
		c = next
	}
}

// Rollback marks xid as rolled back and purges its chunks without
// replay (spec §4.4 opcode 5.5).
func (s *Store) Rollback(xid recordtype.Xid) {
	s.mu.Lock()
	t, ok := s.open[xid]
	if ok {
		delete(s.open, xid)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	t.Flags.Rollback = true
	s.purge(t)
}

func (s *Store) purge(t *Transaction) {
	for c := t.chain; c != nil; {
		next := c.next
		s.arena.release(c)
		c = next
	}
	t.chain, t.tail = nil, nil
}

// Commit marks xid committed at commitScn/commitSubScn and enqueues it
// for SCN-ordered flush; it does not replay to the Emitter itself (that
// is Flush's job, run by the Emitter/Writer task per spec §5).
func (s *Store) Commit(xid recordtype.Xid, commitScn recordtype.Scn, commitSubScn recordtype.SubScn, ts int64) {
	s.mu.Lock()
	t, ok := s.open[xid]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.open, xid)
	t.CommitScn = commitScn
	t.CommitSubScn = commitSubScn
	t.CommitTimestamp = ts
	key := flushKey{scn: commitScn, thread: t.Thread, subscn: commitSubScn, xid: xid}
	s.done[key] = t
	s.ready.Set(key)
	s.mu.Unlock()
}

// Flush replays every committed transaction with commit SCN <= uptoScn,
// in ascending flush-key order, to sink, then frees its chunks.
func (s *Store) Flush(sink emitter.Sink, uptoScn recordtype.Scn) error {
	var keys []flushKey
	s.mu.Lock()
	s.ready.Scan(func(k flushKey) bool {
		if k.scn > uptoScn {
			return false
		}
		keys = append(keys, k)
		return true
	})
	s.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return lessFlushKey(keys[i], keys[j]) })

	s.mu.Lock()
	resolver, policy := s.resolver, s.policy
	s.mu.Unlock()

	for _, k := range keys {
		s.mu.Lock()
		t := s.done[k]
		delete(s.done, k)
		s.ready.Delete(k)
		s.mu.Unlock()
		if t == nil {
			continue
		}
		replay(sink, t, resolver, policy)
		s.purge(t)
	}
	return nil
}

// FirstOpen reports the earliest {sequence, offset} among still-open
// transactions, for min-open-txn checkpoint reporting (spec §4.4).
func (s *Store) FirstOpen() (xid recordtype.Xid, seq recordtype.Seq, offset recordtype.FileOffset, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := recordtype.SeqNone
	for x, t := range s.open {
		if best == recordtype.SeqNone || t.BeginSeq < best {
			best = t.BeginSeq
			xid, seq, offset, ok = x, t.BeginSeq, t.BeginOffset, true
		}
	}
	return
}
