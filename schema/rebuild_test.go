package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/logminer/redocore/redolib/recordtype"
	"github.com/logminer/redocore/schema/systable"
)

func buildDeptSchema(t *testing.T) *Schema {
	t.Helper()
	s := New(Flags{})
	require.NoError(t, s.CompileFilters([]*Element{{OwnerPattern: "SCOTT", TablePattern: "DEPT"}}))

	s.Users.Upsert(recordtype.Rowid{Slot: 1}, systable.SysUser{User: 1, Name: "SCOTT"}, false)
	s.Objs.Upsert(recordtype.Rowid{Slot: 2}, systable.SysObj{Obj: 87, Owner: 1, Name: "DEPT"}, true)
	s.Tabs.Upsert(recordtype.Rowid{Slot: 3}, systable.SysTab{Obj: 87}, true)
	s.Cols.Upsert(recordtype.Rowid{Slot: 4}, systable.SysCol{Obj: 87, Col: 1, SegCol: 1, IntCol: 1, Name: "DEPTNO", Type: int(ColNumber)}, true)
	s.Cols.Upsert(recordtype.Rowid{Slot: 5}, systable.SysCol{Obj: 87, Col: 2, SegCol: 2, IntCol: 2, Name: "DNAME", Type: int(ColVarchar2)}, true)
	s.Touch(87)
	require.NoError(t, s.RebuildTouched())
	return s
}

func TestRebuildInstallsTable(t *testing.T) {
	s := buildDeptSchema(t)
	tbl, ok := s.Table(87)
	require.True(t, ok)
	require.Equal(t, "SCOTT.DEPT", tbl.Owner+"."+tbl.Name)
	require.Len(t, tbl.Columns, 2)

	// spec §8 invariant: columns[i].segCol == i+1 and |columns| == maxSegCol.
	for i, c := range tbl.Columns {
		require.Equal(t, i+1, c.SegCol)
	}
	require.Equal(t, len(tbl.Columns), tbl.MaxSegCol)
}

func TestRebuildSkipsUnfilteredOwner(t *testing.T) {
	s := New(Flags{})
	require.NoError(t, s.CompileFilters([]*Element{{OwnerPattern: "HR", TablePattern: ".*"}}))
	s.Objs.Upsert(recordtype.Rowid{Slot: 1}, systable.SysObj{Obj: 87, Owner: 1, Name: "DEPT"}, true)
	s.Tabs.Upsert(recordtype.Rowid{Slot: 2}, systable.SysTab{Obj: 87}, true)
	s.Users.Upsert(recordtype.Rowid{Slot: 3}, systable.SysUser{User: 1, Name: "SCOTT"}, false)
	s.Touch(87)
	require.NoError(t, s.RebuildTouched())

	_, ok := s.Table(87)
	require.False(t, ok)
}

func TestAdaptiveSchemaFallbackUser(t *testing.T) {
	s := New(Flags{AdaptiveSchema: true})
	require.NoError(t, s.CompileFilters([]*Element{{OwnerPattern: "USER_87", TablePattern: "DEPT"}}))
	s.Objs.Upsert(recordtype.Rowid{Slot: 1}, systable.SysObj{Obj: 87, Owner: 999, Name: "DEPT"}, true)
	s.Tabs.Upsert(recordtype.Rowid{Slot: 2}, systable.SysTab{Obj: 87}, true)
	s.Touch(87)
	require.NoError(t, s.RebuildTouched())

	tbl, ok := s.Table(87)
	require.True(t, ok)
	require.Equal(t, "USER_87", tbl.Owner)
}
