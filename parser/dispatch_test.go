package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/logminer/redocore/emitter"
	"github.com/logminer/redocore/redolib/recordtype"
	"github.com/logminer/redocore/transaction"
)

// fakeSchema is the minimal SchemaUpdater a dispatch test needs: the
// replicated and schemaless answers are set per test, DDL touches are
// ignored.
type fakeSchema struct {
	replicated bool
	schemaless bool
}

func (fakeSchema) Touch(recordtype.Obj)  {}
func (fakeSchema) RebuildTouched() error { return nil }
func (f fakeSchema) IsReplicated(recordtype.Obj) bool { return f.replicated }
func (f fakeSchema) Schemaless() bool                 { return f.schemaless }

// fakeResolver names segCol 1 as DNAME and segCol 2 as DEPTNO, mirroring
// spec §8 scenario 2's table shape.
type fakeResolver struct{}

func (fakeResolver) TableName(recordtype.Obj) (string, bool) { return "DEPT", true }

func (fakeResolver) ColumnName(obj recordtype.Obj, segCol int) (string, bool, int, bool) {
	switch segCol {
	case 1:
		return "DNAME", true, 0, true
	case 2:
		return "DEPTNO", false, 1, true
	default:
		return "", false, 0, false
	}
}

func (fakeResolver) MaxSegCol(recordtype.Obj) int { return 2 }

// newVector builds a ChangeVector directly from a list of field values
// (1-based), bypassing ParseVectors' wire decoding — tests only need the
// decoded shape, not the byte layout.
func newVector(op Opcode, obj recordtype.Obj, bdba recordtype.Dba, slot uint16, xid recordtype.Xid, values ...[]byte) *ChangeVector {
	var payload []byte
	fields := make([]fieldSpan, 0, len(values))
	for _, v := range values {
		fields = append(fields, fieldSpan{offset: len(payload), length: len(v)})
		payload = append(payload, v...)
	}
	return &ChangeVector{Op: op, Obj: obj, Bdba: bdba, Slot: slot, Xid: xid, fields: fields, payload: payload}
}

// TestDispatchMergesSupplementalColumns is spec §8 scenario 2: an update
// changes DNAME from "SALES" to "MARKETING"; DEPTNO=10 never changes and
// arrives only via the 11.16 supplemental vector. Both before and after
// images emitted to the sink must carry DEPTNO.
func TestDispatchMergesSupplementalColumns(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := emitter.NewMockSink(ctrl)

	store := transaction.NewStore(transaction.NewArena(1, 8, 4096))
	store.SetResolver(fakeResolver{})

	d := NewDispatcher(store, fakeSchema{replicated: true}, nil)

	ctx := context.Background()
	xid := recordtype.NewXid(1, 2, 7)
	obj := recordtype.Obj(87)
	bdba := recordtype.NewDba(1, 10)
	const slot = 7

	begin := newVector(OpTxBegin, obj, bdba, slot, xid)
	undo := newVector(OpUndoHeader, obj, bdba, slot, xid, []byte("SALES"))
	redo := newVector(OpUpdate, obj, bdba, slot, xid, []byte("MARKETING"))
	supp := newVector(OpSupplementalLog, obj, bdba, slot, xid, []byte("SALES"), []byte("10"))
	commit := newVector(OpCommit, obj, bdba, slot, xid)

	require.NoError(t, d.Dispatch(ctx, begin, 2000, 0, 0))
	require.NoError(t, d.Dispatch(ctx, undo, 2000, 0, 0))
	require.NoError(t, d.Dispatch(ctx, redo, 2000, 0, 0))
	require.NoError(t, d.Dispatch(ctx, supp, 2000, 0, 0))
	require.NoError(t, d.Dispatch(ctx, commit, 2000, 0, 0))

	store.Commit(xid, recordtype.Scn(2000), 0, 0)

	sink.EXPECT().OnBegin(xid, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any())
	sink.EXPECT().OnUpdate("DEPT", obj, gomock.Any(), bdba, uint16(slot),
		map[string][]byte{"DEPTNO": []byte("10"), "DNAME": []byte("SALES")},
		map[string][]byte{"DEPTNO": []byte("10"), "DNAME": []byte("MARKETING")},
		gomock.Any())
	sink.EXPECT().OnCommit()

	require.NoError(t, store.Flush(sink, recordtype.Scn(2000)))
}

// TestDispatchSkipsSchemaMissWithCounter is spec §7 SchemaMiss: without
// SCHEMALESS, a DML row whose object has no Table descriptor is dropped
// silently but counted, never reaching the Store.
func TestDispatchSkipsSchemaMissWithCounter(t *testing.T) {
	store := transaction.NewStore(transaction.NewArena(1, 8, 4096))
	store.SetResolver(fakeResolver{})

	d := NewDispatcher(store, fakeSchema{replicated: false, schemaless: false}, nil)

	ctx := context.Background()
	xid := recordtype.NewXid(1, 2, 8)
	obj := recordtype.Obj(99)
	bdba := recordtype.NewDba(1, 11)

	require.NoError(t, d.Dispatch(ctx, newVector(OpTxBegin, obj, bdba, 1, xid), 3000, 0, 0))
	require.NoError(t, d.Dispatch(ctx, newVector(OpInsert, obj, bdba, 1, xid, []byte("x")), 3000, 0, 0))

	tx, ok := store.Lookup(xid)
	require.True(t, ok)
	require.Equal(t, 0, tx.EntryCount())
	require.Equal(t, uint64(1), d.SchemaMisses())
}

// TestDispatchEmitsSchemalessDowngrade is spec §7 SchemaMiss: with
// SCHEMALESS set, the same row is appended instead of dropped, and the
// resolver's table-name downgrade kicks in (exercised directly here via
// fakeResolver, since the synthesized OBJ_<n> name itself is
// schema.Schema's responsibility).
func TestDispatchEmitsSchemalessDowngrade(t *testing.T) {
	store := transaction.NewStore(transaction.NewArena(1, 8, 4096))
	store.SetResolver(fakeResolver{})

	d := NewDispatcher(store, fakeSchema{replicated: false, schemaless: true}, nil)

	ctx := context.Background()
	xid := recordtype.NewXid(1, 2, 9)
	obj := recordtype.Obj(99)
	bdba := recordtype.NewDba(1, 11)

	require.NoError(t, d.Dispatch(ctx, newVector(OpTxBegin, obj, bdba, 1, xid), 3000, 0, 0))
	require.NoError(t, d.Dispatch(ctx, newVector(OpInsert, obj, bdba, 1, xid, []byte("x")), 3000, 0, 0))

	tx, ok := store.Lookup(xid)
	require.True(t, ok)
	require.Equal(t, 1, tx.EntryCount())
	require.Equal(t, uint64(0), d.SchemaMisses())
}
