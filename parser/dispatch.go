package parser

import (
	"context"

	"github.com/logminer/redocore/redolib/rerr"
	"github.com/logminer/redocore/redolib/recordtype"
	"github.com/logminer/redocore/transaction"
)

// SchemaUpdater is the subset of package schema the dispatcher needs:
// applying DDL-triggered dictionary touches and resolving whether an
// object is currently replicated. Declared here (rather than importing
// schema directly as a concrete type) to keep the opcode switch decoupled
// from the Schema shadow's internal representation.
type SchemaUpdater interface {
	Touch(obj recordtype.Obj)
	RebuildTouched() error
	IsReplicated(obj recordtype.Obj) bool
	Schemaless() bool
}

// LobFeeder is the subset of package lob the dispatcher needs for
// opcodes 19.x/20.x/26.x (spec §4.3).
type LobFeeder interface {
	FeedIndex(obj recordtype.Obj, lobId uint32, pageNo uint32, payload []byte)
	FeedData(obj recordtype.Obj, lobId uint32, pageNo uint32, payload []byte)
}

// DisableChecks mirrors the spec §6.4 disable-checks bitmask relevant to
// opcode-level decisions.
type DisableChecks struct {
	SupplementalLog bool
}

// Dispatcher is the OpcodeDispatcher (spec §4.3/§2): for each vector
// implementing a known opcode, it updates TransactionStore, Schema, or
// LobAssembler state. Single-threaded with respect to transaction state
// (spec §5: "Parser ... Single-threaded with respect to transaction
// state").
type Dispatcher struct {
	Store   *transaction.Store
	Schema  SchemaUpdater
	Lob     LobFeeder
	Checks  DisableChecks

	pendingUndo  *ChangeVector // layer-5 vector awaiting its paired layer-11 redo
	ddlText      map[recordtype.Xid][]byte
	schemaMisses uint64 // spec §7 SchemaMiss: DML rows skipped for lacking a Table descriptor
}

func NewDispatcher(store *transaction.Store, schema SchemaUpdater, lob LobFeeder) *Dispatcher {
	return &Dispatcher{Store: store, Schema: schema, Lob: lob, ddlText: make(map[recordtype.Xid][]byte)}
}

// Dispatch applies one vector's effect, in the order vectors appear
// within their record (spec §4.3 pairing: "dispatcher pairs them by
// position").
func (d *Dispatcher) Dispatch(ctx context.Context, v *ChangeVector, scn recordtype.Scn, subscn recordtype.SubScn, offset recordtype.FileOffset) error {
	switch v.Op.Layer {
	case 5:
		return d.dispatchLayer5(ctx, v, scn, subscn, offset)
	case 11:
		return d.dispatchLayer11(ctx, v, scn, subscn, offset)
	case 10:
		return nil // index changes: ignored for row emission (spec §4.3)
	case 19, 20:
		d.dispatchLob(v, true)
		return nil
	case 26:
		d.dispatchLob(v, false)
		return nil
	case 24:
		return d.dispatchDDLText(v)
	default:
		return rerr.New(rerr.Malformed, offset, "unsupported opcode layer")
	}
}

func (d *Dispatcher) dispatchLayer5(ctx context.Context, v *ChangeVector, scn recordtype.Scn, subscn recordtype.SubScn, offset recordtype.FileOffset) error {
	switch v.Op {
	case OpUndoHeader:
		d.pendingUndo = v
		return nil
	case OpTxBegin:
		d.Store.Begin(v.Xid, 0, scn, v.Seq, offset)
		return nil
	case OpCommit:
		d.Store.Commit(v.Xid, scn, subscn, 0)
		return nil
	case OpRollback:
		d.Store.Rollback(v.Xid)
		return nil
	case OpRollbackSavepoint:
		d.Store.DropToSavepoint(v.Xid, v.Uba)
		return nil
	case OpRollbackSingle:
		d.Store.DropLastMatching(v.Xid, v.Uba)
		return nil
	case OpSessionAttr, OpTxAttr:
		return d.applyAttributes(v, offset)
	case OpDDLMarker, OpDDLMarkerFinal:
		return nil // text itself arrives via opcode 24; markers only bracket it
	default:
		return nil
	}
}

func (d *Dispatcher) dispatchLayer11(ctx context.Context, v *ChangeVector, scn recordtype.Scn, subscn recordtype.SubScn, offset recordtype.FileOffset) error {
	undo := d.pendingUndo
	d.pendingUndo = nil

	if undo != nil {
		if undo.Obj != v.Obj || undo.Bdba != v.Bdba || undo.Slot != v.Slot {
			return rerr.New(rerr.Malformed, offset, "undo/redo vector pairing mismatch")
		}
	}

	if !d.Schema.IsReplicated(v.Obj) {
		if !d.Schema.Schemaless() {
			d.schemaMisses++ // spec §7: skip with a counter
			return nil
		}
		// SCHEMALESS: fall through and append under a synthesized OBJ_<n>
		// table name (schema.Schema.TableName applies the same downgrade
		// at emit time).
	}

	var op transaction.DmlOp
	switch v.Op {
	case OpInsert, OpMultiInsert:
		op = transaction.DmlInsert
	case OpDelete, OpMultiDelete:
		op = transaction.DmlDelete
	case OpUpdate, OpOverwrite:
		op = transaction.DmlUpdate
	case OpRowLock:
		op = transaction.DmlLock
	case OpSupplementalLog:
		return d.mergeSupplemental(v, offset)
	default:
		return nil
	}

	rows := 1
	if v.Op == OpMultiInsert || v.Op == OpMultiDelete {
		rows = int(v.Flags) // row count carried in Flags for the multi-row variants
		if rows <= 0 {
			rows = 1
		}
	}

	for i := 0; i < rows; i++ {
		e := transaction.Entry{
			Uba:     v.Uba,
			Scn:     scn,
			SubScn:  subscn,
			Op:      op,
			Obj:     v.Obj,
			DataObj: v.DataObj,
			Bdba:    v.Bdba,
			Slot:    v.Slot + uint16(i),
			Offset:  offset,
			FullRow: v.Op == OpOverwrite,
		}
		if op == transaction.DmlInsert || op == transaction.DmlUpdate {
			e.After = fieldsAsColumns(v)
		}
		if op == transaction.DmlUpdate || op == transaction.DmlDelete {
			if undo != nil {
				e.Before = fieldsAsColumns(undo)
			}
		}
		if err := d.Store.Append(ctx, v.Xid, e); err != nil {
			return err
		}
	}
	return nil
}

// fieldsAsColumns maps a vector's field table 1:1 onto segCol slots; this
// is a simplification of the source's column-format-specific field-to-
// column mapping (bitmap-selected columns, FULL_UPD vs partial), which
// lives in the column-format byte of field 1 in the real wire format and
// is resolved by package schema at merge time via Resolver.
func fieldsAsColumns(v *ChangeVector) map[int][]byte {
	out := make(map[int][]byte, v.FieldCount())
	for i := 1; i <= v.FieldCount(); i++ {
		b, err := v.Field(i, 0)
		if err != nil {
			continue
		}
		out[i] = b
	}
	return out
}

// mergeSupplemental attaches a 11.16 vector's columns onto the entry
// Append already appended for its paired undo/redo pair (spec §4.3:
// "Attach before/after supplemental columns to paired redo"). The
// pending-undo slot is already empty by the time 11.16 arrives (the
// preceding redo vector consumed it), so this never collides with the
// paired entry's own append.
func (d *Dispatcher) mergeSupplemental(v *ChangeVector, offset recordtype.FileOffset) error {
	if d.Checks.SupplementalLog {
		return nil
	}
	d.Store.MergeSupplemental(v.Xid, fieldsAsColumns(v))
	return nil
}

func (d *Dispatcher) applyAttributes(v *ChangeVector, offset recordtype.FileOffset) error {
	tx, ok := d.Store.Lookup(v.Xid)
	if !ok {
		return nil
	}
	for i := 1; i <= v.FieldCount(); i++ {
		b, err := v.Field(i, offset)
		if err != nil {
			return err
		}
		tx.Attrs[attrKey(v.Op, i)] = string(b)
	}
	return nil
}

func attrKey(op Opcode, fieldIdx int) string {
	names := map[int]string{1: "session", 2: "serial", 3: "username", 4: "program"}
	if n, ok := names[fieldIdx]; ok {
		return n
	}
	return "attr"
}

func (d *Dispatcher) dispatchLob(v *ChangeVector, isIndex bool) {
	if d.Lob == nil {
		return
	}
	lobId := uint32(v.DataObj)
	pageNo := uint32(v.Slot)
	payload := v.payload
	if isIndex {
		d.Lob.FeedIndex(v.Obj, lobId, pageNo, payload)
	} else {
		d.Lob.FeedData(v.Obj, lobId, pageNo, payload)
	}
}

func (d *Dispatcher) dispatchDDLText(v *ChangeVector) error {
	d.ddlText[v.Xid] = append(d.ddlText[v.Xid], v.payload...)
	d.Schema.Touch(v.Obj)
	return nil
}

// SchemaMisses returns the running count of DML rows silently dropped
// for lacking a Table descriptor while SCHEMALESS was not set (spec §7
// SchemaMiss).
func (d *Dispatcher) SchemaMisses() uint64 {
	return d.schemaMisses
}

// DrainDDLText returns and clears the accumulated DDL text for xid.
// Dispatch does not call it: a 5.20 final marker leaves the text in place
// until a caller drains it.
func (d *Dispatcher) DrainDDLText(xid recordtype.Xid) string {
	text := d.ddlText[xid]
	delete(d.ddlText, xid)
	return string(text)
}
