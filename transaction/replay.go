package transaction

import (
	"github.com/logminer/redocore/emitter"
	"github.com/logminer/redocore/redolib/recordtype"
)

// Resolver is the subset of the Schema a replay needs (spec §4.4 commit
// step): translating an entry's (obj, segCol) column slots into names,
// and reporting the table's current column budget and PK membership so
// update-minimization, maxSegCol truncation, and the NOT-NULL-missing
// heuristic can be applied. Implemented by package schema; declared here
// to avoid transaction depending on schema (schema is the higher-level
// package that references transaction's Entry-free public surface only
// indirectly, through the dispatcher).
type Resolver interface {
	TableName(obj recordtype.Obj) (string, bool)
	ColumnName(obj recordtype.Obj, segCol int) (name string, nullable bool, numPk int, ok bool)
	MaxSegCol(obj recordtype.Obj) int
}

// NotNullMissingPolicy gates the NOT-NULL-missing heuristic (spec §4.4,
// DESIGN NOTES §9 open question): when a non-null PK column's before
// image is absent, promote the after-image in its place. The spec's
// open question leaves this ambiguous in general; DESIGN.md resolves it
// to NUMBER-typed columns only, signaled by the caller via colIsNumber.
type NotNullMissingPolicy struct {
	Enabled    bool
	ColIsNumber func(obj recordtype.Obj, segCol int) bool
}

// replay sends t's entries to sink in insertion order (spec §4.4: "Replay
// entries in insertion order to the Emitter"), performing supplemental-log
// merge, NOT-NULL-missing promotion, update-minimization, and maxSegCol
// truncation along the way. resolver/policy come from the owning Store
// (set via Store.SetResolver/SetNotNullMissingPolicy) rather than package
// globals, so more than one Store can exist in a process without
// interfering with each other — e.g. independent tests run in parallel.
func replay(sink emitter.Sink, t *Transaction, resolver Resolver, policy NotNullMissingPolicy) {
	sink.OnBegin(t.Xid, t.Thread, t.BeginSeq, t.BeginScn, t.BeginTimestamp,
		recordtype.SeqNone, t.CommitScn, t.CommitTimestamp, t.Attrs)

	for c := t.chain; c != nil; c = c.next {
		for _, e := range c.entries {
			emitEntry(sink, e, resolver, policy)
		}
	}
	sink.OnCommit()
}

func emitEntry(sink emitter.Sink, e Entry, resolver Resolver, policy NotNullMissingPolicy) {
	table := ""
	maxSegCol := -1
	if resolver != nil {
		if name, ok := resolver.TableName(e.Obj); ok {
			table = name
		}
		maxSegCol = resolver.MaxSegCol(e.Obj)
	}

	rawBefore := applyNotNullMissingRaw(e.Obj, e.Before, e.After, resolver, policy)

	before, pkBefore := namedColumns(e.Obj, rawBefore, maxSegCol, resolver)
	after, pkAfter := namedColumns(e.Obj, e.After, maxSegCol, resolver)

	if !e.FullRow {
		minimizeUpdate(before, after, pkBefore, pkAfter)
	}

	switch e.Op {
	case DmlInsert:
		sink.OnInsert(table, e.Obj, e.DataObj, e.Bdba, e.Slot, after, e.Offset)
	case DmlUpdate:
		sink.OnUpdate(table, e.Obj, e.DataObj, e.Bdba, e.Slot, before, after, e.Offset)
	case DmlDelete:
		sink.OnDelete(table, e.Obj, e.DataObj, e.Bdba, e.Slot, before, e.Offset)
	case DmlLock:
		// row-lock only: supplemental columns already merged above, but
		// spec §4.3 11.4 carries no row-image change to emit on its own.
	}
}

// namedColumns translates a segCol-keyed raw column map into a name-keyed
// one, applying maxSegCol truncation, and also reports which of the
// translated names are PK columns (numPk > 0) so minimizeUpdate can keep
// them regardless of whether their value changed (spec §4.4).
func namedColumns(obj recordtype.Obj, raw map[int][]byte, maxSegCol int, resolver Resolver) (map[string][]byte, map[string]bool) {
	if raw == nil {
		return nil, nil
	}
	out := make(map[string][]byte, len(raw))
	pk := make(map[string]bool)
	for segCol, bytes := range raw {
		if maxSegCol >= 0 && segCol > maxSegCol {
			continue // spec §4.4: "apply maxSegCol truncation"
		}
		name := ""
		numPk := 0
		if resolver != nil {
			if n, _, np, ok := resolver.ColumnName(obj, segCol); ok {
				name = n
				numPk = np
			}
		}
		if name == "" {
			continue
		}
		out[name] = bytes
		if numPk > 0 {
			pk[name] = true
		}
	}
	return out, pk
}

// minimizeUpdate drops non-PK columns whose before/after bytes are
// identical (spec §4.4: "drop unchanged non-PK columns... when
// column-format is not FULL_UPD"). PK columns (from either image's PK
// set) are always kept, changed or not, since they identify the row.
func minimizeUpdate(before, after map[string][]byte, pkBefore, pkAfter map[string]bool) {
	for name, a := range after {
		if pkBefore[name] || pkAfter[name] {
			continue
		}
		b, ok := before[name]
		if !ok {
			continue
		}
		if string(a) == string(b) {
			delete(before, name)
			delete(after, name)
		}
	}
}

// applyNotNullMissingRaw promotes the after-image into a missing before
// image for non-null PK columns of NUMBER type (nullability and PK
// membership from the resolver), gated by the installed policy (spec
// §4.4 NOT-NULL-missing heuristic; DESIGN.md resolves the open question
// to NUMBER-typed columns only, per policy.ColIsNumber). Operates on the
// segCol-keyed raw maps, before name translation, since ColIsNumber is
// keyed by segCol; returns a copy when any promotion occurs so the
// Entry's own Before map is never mutated.
func applyNotNullMissingRaw(obj recordtype.Obj, before, after map[int][]byte, resolver Resolver, policy NotNullMissingPolicy) map[int][]byte {
	if !policy.Enabled || policy.ColIsNumber == nil || after == nil || resolver == nil {
		return before
	}
	var out map[int][]byte
	for segCol, a := range after {
		if _, ok := before[segCol]; ok {
			continue
		}
		if !policy.ColIsNumber(obj, segCol) {
			continue
		}
		if _, nullable, numPk, ok := resolver.ColumnName(obj, segCol); !ok || nullable || numPk == 0 {
			continue
		}
		if out == nil {
			out = make(map[int][]byte, len(before)+1)
			for k, v := range before {
				out[k] = v
			}
		}
		out[segCol] = a
	}
	if out == nil {
		return before
	}
	return out
}
