package schema

import (
	json "github.com/goccy/go-json"
	"github.com/google/btree"

	"github.com/logminer/redocore/redolib/recordtype"
	"github.com/logminer/redocore/redolib/rerr"
	"github.com/logminer/redocore/schema/systable"
)

// snapshotPayload is the wire shape of an exported SchemaSnapshot (spec
// §3): one row-id-keyed map per shadow dictionary table, encoded with
// goccy/go-json to match the checkpoint package's ambient codec.
type snapshotPayload struct {
	Users        map[systable.RowID]systable.SysUser
	Objs         map[systable.RowID]systable.SysObj
	Tabs         map[systable.RowID]systable.SysTab
	Cols         map[systable.RowID]systable.SysCol
	CCols        map[systable.RowID]systable.SysCCol
	CDefs        map[systable.RowID]systable.SysCDef
	DeferredStg  map[systable.RowID]systable.SysDeferredStg
	ECols        map[systable.RowID]systable.SysECol
	Lobs         map[systable.RowID]systable.SysLob
	LobCompParts map[systable.RowID]systable.SysLobCompPart
	LobFrags     map[systable.RowID]systable.SysLobFrag
	TabParts     map[systable.RowID]systable.SysTabPart
	TabComParts  map[systable.RowID]systable.SysTabComPart
	TabSubParts  map[systable.RowID]systable.SysTabSubPart
	Tss          map[systable.RowID]systable.SysTs
}

func dumpStore[Row any](s *systable.RowStore[Row]) map[systable.RowID]Row {
	out := make(map[systable.RowID]Row, s.Len())
	s.Each(func(id systable.RowID, row Row) { out[id] = row })
	return out
}

// Export serializes the current shadow dictionary as a detached
// SchemaSnapshot (spec §3 SchemaSnapshot, §4.7: "persists... optionally
// a schema snapshot"), read under the rebuild lock so a concurrent
// dictionary-change transaction can't be observed half-written (spec
// §5: "during a schema update, all touched maps are rebuilt before the
// updating transaction commits, so readers see either the pre- or
// post-update snapshot").
func (s *Schema) Export() ([]byte, error) {
	s.mu.RLock()
	p := snapshotPayload{
		Users:        dumpStore(s.Users),
		Objs:         dumpStore(s.Objs),
		Tabs:         dumpStore(s.Tabs),
		Cols:         dumpStore(s.Cols),
		CCols:        dumpStore(s.CCols),
		CDefs:        dumpStore(s.CDefs),
		DeferredStg:  dumpStore(s.DeferredStg),
		ECols:        dumpStore(s.ECols),
		Lobs:         dumpStore(s.Lobs),
		LobCompParts: dumpStore(s.LobCompParts),
		LobFrags:     dumpStore(s.LobFrags),
		TabParts:     dumpStore(s.TabParts),
		TabComParts:  dumpStore(s.TabComParts),
		TabSubParts:  dumpStore(s.TabSubParts),
		Tss:          dumpStore(s.Tss),
	}
	s.mu.RUnlock()

	b, err := json.Marshal(p)
	if err != nil {
		return nil, rerr.Wrap(rerr.StateStoreError, 0, err, "encode schema snapshot")
	}
	return b, nil
}

// Import replaces the shadow dictionary with a previously-Exported
// snapshot and rebuilds every table descriptor it names (spec §4.7
// Recovery: "load that snapshot"), grounded on the same buildMaps path
// RebuildTouched drives for live DDL.
func (s *Schema) Import(data []byte) error {
	var p snapshotPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return rerr.Wrap(rerr.StateStoreError, 0, err, "decode schema snapshot")
	}

	s.mu.Lock()
	s.Users = systable.NewRowStore[systable.SysUser]()
	s.Objs = systable.NewRowStore[systable.SysObj]()
	s.Tabs = systable.NewRowStore[systable.SysTab]()
	s.Cols = systable.NewRowStore[systable.SysCol]()
	s.CCols = systable.NewRowStore[systable.SysCCol]()
	s.CDefs = systable.NewRowStore[systable.SysCDef]()
	s.DeferredStg = systable.NewRowStore[systable.SysDeferredStg]()
	s.ECols = systable.NewRowStore[systable.SysECol]()
	s.Lobs = systable.NewRowStore[systable.SysLob]()
	s.LobCompParts = systable.NewRowStore[systable.SysLobCompPart]()
	s.LobFrags = systable.NewRowStore[systable.SysLobFrag]()
	s.TabParts = systable.NewRowStore[systable.SysTabPart]()
	s.TabComParts = systable.NewRowStore[systable.SysTabComPart]()
	s.TabSubParts = systable.NewRowStore[systable.SysTabSubPart]()
	s.Tss = systable.NewRowStore[systable.SysTs]()

	for id, row := range p.Users {
		s.Users.Upsert(id, row, false)
	}
	for id, row := range p.Objs {
		s.Objs.Upsert(id, row, false)
	}
	for id, row := range p.Tabs {
		s.Tabs.Upsert(id, row, false)
	}
	for id, row := range p.Cols {
		s.Cols.Upsert(id, row, false)
	}
	for id, row := range p.CCols {
		s.CCols.Upsert(id, row, false)
	}
	for id, row := range p.CDefs {
		s.CDefs.Upsert(id, row, false)
	}
	for id, row := range p.DeferredStg {
		s.DeferredStg.Upsert(id, row, false)
	}
	for id, row := range p.ECols {
		s.ECols.Upsert(id, row, false)
	}
	for id, row := range p.Lobs {
		s.Lobs.Upsert(id, row, false)
	}
	for id, row := range p.LobCompParts {
		s.LobCompParts.Upsert(id, row, false)
	}
	for id, row := range p.LobFrags {
		s.LobFrags.Upsert(id, row, false)
	}
	for id, row := range p.TabParts {
		s.TabParts.Upsert(id, row, false)
	}
	for id, row := range p.TabComParts {
		s.TabComParts.Upsert(id, row, false)
	}
	for id, row := range p.TabSubParts {
		s.TabSubParts.Upsert(id, row, false)
	}
	for id, row := range p.Tss {
		s.Tss.Upsert(id, row, false)
	}

	s.tableMap = make(map[recordtype.Obj]*Table)
	s.tablePartitionMap = make(map[recordtype.DataObj]*Table)
	s.lobPartitionMap = make(map[recordtype.DataObj]*Lob)
	s.lobIndexMap = make(map[recordtype.DataObj]*Lob)
	s.colIndex = make(map[recordtype.Obj]*btree.BTreeG[colKey])

	for _, row := range p.Objs {
		s.touchedObjects.Add(uint32(row.Obj))
	}
	s.mu.Unlock()

	return s.RebuildTouched()
}
