// Package transaction implements spec §4.4 (TransactionStore): a
// per-XID append-only chain of opcode entries in arena memory, rollback
// to savepoint, ordered replay at commit, and SCN-ordered flushing.
// Grounded on original_source/src/parser/Transaction.h's field set.
package transaction

import (
	"github.com/logminer/redocore/redolib/recordtype"
)

// Flags mirrors Transaction.h's boolean set (spec §3 Transaction entity).
type Flags struct {
	Rollback bool
	System   bool
	Schema   bool
	Split    bool
	Dump     bool
}

// Entry is one opcode record appended to a transaction's chain: the
// undo/redo vector byte pair plus enough metadata to replay, merge
// supplemental-log images, and support rollback-to-savepoint (spec §4.4).
type Entry struct {
	Uba      recordtype.Uba
	Scn      recordtype.Scn
	SubScn   recordtype.SubScn
	Op       DmlOp
	Obj      recordtype.Obj
	DataObj  recordtype.DataObj
	Bdba     recordtype.Dba
	Slot     uint16
	Before   map[int][]byte // segCol -> raw column bytes
	After    map[int][]byte
	FullRow  bool // column-format FULL_UPD: skip update-minimization
	Offset   recordtype.FileOffset

	next *chunkCursor // internal: not set by Store; always nil
}

// DmlOp is the logical operation an Entry carries.
type DmlOp int

const (
	DmlInsert DmlOp = iota
	DmlUpdate
	DmlDelete
	DmlLock // row-lock only: supplemental columns, no row-image change
)

// Transaction is a live, in-progress transaction's state (spec §3).
type Transaction struct {
	Xid             recordtype.Xid
	Thread          uint16
	BeginScn        recordtype.Scn
	BeginSeq        recordtype.Seq
	BeginOffset     recordtype.FileOffset
	BeginTimestamp  int64
	CommitScn       recordtype.Scn
	CommitSubScn    recordtype.SubScn
	CommitTimestamp int64

	SizeBytes int64
	Attrs     map[string]string
	Flags     Flags

	chain *chunk // head of this transaction's TxChunk list
	tail  *chunk
}

func newTransaction(xid recordtype.Xid) *Transaction {
	return &Transaction{Xid: xid, Attrs: make(map[string]string)}
}

// EntryCount reports how many entries remain across this transaction's
// chunk chain (used by tests).
func (t *Transaction) EntryCount() int {
	n := 0
	for c := t.chain; c != nil; c = c.next {
		n += len(c.entries)
	}
	return n
}
