package transaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/logminer/redocore/emitter"
	"github.com/logminer/redocore/redolib/recordtype"
)

func newTestStore() *Store {
	return NewStore(NewArena(1, 8, 4096))
}

func TestRollbackToSavepoint(t *testing.T) {
	// Scenario 4 (spec §8): insert A (uba=U1), B (U2), C (U3), rollback-to(U2), commit.
	// Expected: only A survives.
	s := newTestStore()
	ctx := context.Background()
	xid := recordtype.NewXid(1, 2, 3)
	s.Begin(xid, 1, recordtype.Scn(1000), recordtype.Seq(42), 0)

	u1 := recordtype.Uba{Dba: recordtype.NewDba(1, 10), Seq: 1, Rec: 1}
	u2 := recordtype.Uba{Dba: recordtype.NewDba(1, 10), Seq: 1, Rec: 2}
	u3 := recordtype.Uba{Dba: recordtype.NewDba(1, 10), Seq: 1, Rec: 3}

	require.NoError(t, s.Append(ctx, xid, Entry{Uba: u1, Op: DmlInsert, Obj: 87, After: map[int][]byte{1: []byte("A")}}))
	require.NoError(t, s.Append(ctx, xid, Entry{Uba: u2, Op: DmlInsert, Obj: 87, After: map[int][]byte{1: []byte("B")}}))
	require.NoError(t, s.Append(ctx, xid, Entry{Uba: u3, Op: DmlInsert, Obj: 87, After: map[int][]byte{1: []byte("C")}}))

	s.DropToSavepoint(xid, u2)

	tx, ok := s.Lookup(xid)
	require.True(t, ok)
	require.Equal(t, 1, tx.EntryCount())
	require.Equal(t, []byte("A"), tx.chain.entries[0].After[1])
}

func TestDropLastMatching(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	xid := recordtype.NewXid(1, 2, 4)
	s.Begin(xid, 1, recordtype.Scn(1000), recordtype.Seq(42), 0)

	u1 := recordtype.Uba{Dba: recordtype.NewDba(1, 10), Seq: 1, Rec: 1}
	u2 := recordtype.Uba{Dba: recordtype.NewDba(1, 10), Seq: 1, Rec: 2}
	require.NoError(t, s.Append(ctx, xid, Entry{Uba: u1, Op: DmlInsert, Obj: 87}))
	require.NoError(t, s.Append(ctx, xid, Entry{Uba: u2, Op: DmlInsert, Obj: 87}))

	ok := s.DropLastMatching(xid, u2)
	require.True(t, ok)

	tx, _ := s.Lookup(xid)
	require.Equal(t, 1, tx.EntryCount())
}

func TestCommitFlushOrdering(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	sink := emitter.NewMockSink(ctrl)

	xidA := recordtype.NewXid(1, 1, 1)
	xidB := recordtype.NewXid(1, 1, 2)
	s.Begin(xidA, 1, recordtype.Scn(100), recordtype.Seq(1), 0)
	s.Begin(xidB, 1, recordtype.Scn(100), recordtype.Seq(1), 0)
	require.NoError(t, s.Append(ctx, xidA, Entry{Op: DmlInsert, Obj: 87, After: map[int][]byte{1: []byte("a")}}))
	require.NoError(t, s.Append(ctx, xidB, Entry{Op: DmlInsert, Obj: 87, After: map[int][]byte{1: []byte("b")}}))

	// B commits at an earlier SCN than A, so it must flush first.
	s.Commit(xidB, recordtype.Scn(200), 0, 0)
	s.Commit(xidA, recordtype.Scn(300), 0, 0)

	gomock.InOrder(
		sink.EXPECT().OnBegin(xidB, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()),
		sink.EXPECT().OnInsert(gomock.Any(), recordtype.Obj(87), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()),
		sink.EXPECT().OnCommit(),
		sink.EXPECT().OnBegin(xidA, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()),
		sink.EXPECT().OnInsert(gomock.Any(), recordtype.Obj(87), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()),
		sink.EXPECT().OnCommit(),
	)

	require.NoError(t, s.Flush(sink, recordtype.Scn(1000)))
}

// TestMergeSupplementalFillsMissingColumns is spec §8 scenario 2: an
// update changes DNAME but carries DEPTNO only via the supplemental
// vector, since DEPTNO itself never changed. Both before and after
// images must end up carrying DEPTNO once MergeSupplemental runs.
func TestMergeSupplementalFillsMissingColumns(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	xid := recordtype.NewXid(1, 2, 5)
	s.Begin(xid, 1, recordtype.Scn(1000), recordtype.Seq(42), 0)

	require.NoError(t, s.Append(ctx, xid, Entry{
		Op:     DmlUpdate,
		Obj:    87,
		Before: map[int][]byte{1: []byte("SALES")},
		After:  map[int][]byte{1: []byte("MARKETING")},
	}))

	s.MergeSupplemental(xid, map[int][]byte{2: []byte("10")})

	tx, ok := s.Lookup(xid)
	require.True(t, ok)
	e := tx.chain.entries[0]
	require.Equal(t, []byte("10"), e.Before[2])
	require.Equal(t, []byte("10"), e.After[2])
	require.Equal(t, []byte("SALES"), e.Before[1]) // untouched
	require.Equal(t, []byte("MARKETING"), e.After[1])
}

// TestMergeSupplementalDoesNotOverwriteExisting guards the "fill gaps
// only" contract: a column the main undo/redo vectors already carried
// must not be clobbered by a same-keyed supplemental column.
func TestMergeSupplementalDoesNotOverwriteExisting(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	xid := recordtype.NewXid(1, 2, 6)
	s.Begin(xid, 1, recordtype.Scn(1000), recordtype.Seq(42), 0)

	require.NoError(t, s.Append(ctx, xid, Entry{
		Op:     DmlUpdate,
		Obj:    87,
		Before: map[int][]byte{1: []byte("SALES")},
		After:  map[int][]byte{1: []byte("MARKETING")},
	}))

	s.MergeSupplemental(xid, map[int][]byte{1: []byte("stale")})

	tx, ok := s.Lookup(xid)
	require.True(t, ok)
	e := tx.chain.entries[0]
	require.Equal(t, []byte("SALES"), e.Before[1])
	require.Equal(t, []byte("MARKETING"), e.After[1])
}
