// Package systable holds the shadow dictionary row types and a generic
// keyed RowStore (spec §4.5: "Each shadow table supports: Upsert by
// row-id; delete by row-id... Keyed lookup by domain key... Ordered key
// iteration"). One RowStore instance per dictionary table.
package systable

import (
	"github.com/logminer/redocore/redolib/recordtype"
)

// RowID is the shadow table's own change-tracking key: a physical rowid
// inside the real SYS/XDB table the row shadows.
type RowID = recordtype.Rowid

// RowStore is a generic keyed collection: Upsert/Delete by RowID (for
// change tracking). It keeps no secondary index; domain-key lookups
// (e.g. by obj, or by (obj, segCol)) scan all rows with Each.
type RowStore[Row any] struct {
	byRowID map[RowID]Row
	touched map[RowID]bool
}

func NewRowStore[Row any]() *RowStore[Row] {
	return &RowStore[Row]{byRowID: make(map[RowID]Row), touched: make(map[RowID]bool)}
}

func (s *RowStore[Row]) Upsert(id RowID, row Row, tracking bool) {
	s.byRowID[id] = row
	if tracking {
		s.touched[id] = true
	}
}

func (s *RowStore[Row]) Delete(id RowID) {
	delete(s.byRowID, id)
	delete(s.touched, id)
}

func (s *RowStore[Row]) Get(id RowID) (Row, bool) {
	r, ok := s.byRowID[id]
	return r, ok
}

func (s *RowStore[Row]) Len() int { return len(s.byRowID) }

// Each walks all rows in unspecified order (callers needing segCol order
// sort client-side; the dictionary tables here are small).
func (s *RowStore[Row]) Each(fn func(id RowID, row Row)) {
	for id, row := range s.byRowID {
		fn(id, row)
	}
}

// DrainTouched returns and clears the set of row-ids upserted/deleted
// with tracking=true since the last drain (spec §4.5 "touched-set
// tracking during a dictionary-change transaction").
func (s *RowStore[Row]) DrainTouched() []RowID {
	out := make([]RowID, 0, len(s.touched))
	for id := range s.touched {
		out = append(out, id)
	}
	s.touched = make(map[RowID]bool)
	return out
}

// SysUser shadows SYS.USER$.
type SysUser struct {
	User   uint32
	Name   string
	Single bool // single-schema filter mode
}

// SysObj shadows SYS.OBJ$.
type SysObj struct {
	Obj        recordtype.Obj
	DataObj    recordtype.DataObj
	Owner      uint32
	Name       string
	Type       int // table, index, view, ...
	Temporary  bool
	Binary     bool
	Dropped    bool
}

// SysTab shadows SYS.TAB$.
type SysTab struct {
	Obj         recordtype.Obj
	DataObj     recordtype.DataObj
	Cluster     bool
	IOT         bool
	Clustered   bool
	Partitioned bool
	Nested      bool
	RowMovement bool
	Compressed  bool // initial+compressed per spec §4.5 rebuild-reject rule
}

// SysCol shadows SYS.COL$.
type SysCol struct {
	Obj         recordtype.Obj
	Col         int
	SegCol      int
	IntCol      int
	Name        string
	Type        int
	Length      int
	Precision   int
	Scale       int
	CharsetForm int
	CharsetId   uint64
	Null        bool // NOT NULL constraint present
	Property    uint64
}

// SysCCol shadows SYS.CCOL$ (constraint-column membership, used for both
// PK membership and supplemental-log column coverage).
type SysCCol struct {
	Obj   recordtype.Obj
	Con   uint32
	IntCol int
	Spare1 uint64 // supplemental-log flag bits
}

// SysCDef shadows SYS.CDEF$ (constraint definitions: PK vs supplemental).
type SysCDef struct {
	Obj  recordtype.Obj
	Con  uint32
	Type int // 2=PK, 12/14=supplemental (table/always)
}

// SysDeferredStg shadows SYS.DEFERRED_STG$ (compression flags).
type SysDeferredStg struct {
	Obj        recordtype.Obj
	CompressionLevel int
}

// SysECol shadows SYS.ECOL$ (guard-column / hidden-column resolution for
// virtual/invisible columns).
type SysECol struct {
	Obj      recordtype.Obj
	ColNum   int
	GuardId  int
}

// SysLob shadows SYS.LOB$.
type SysLob struct {
	Obj     recordtype.Obj
	Col     int
	IntCol  int
	LObj    recordtype.LObj
	DataObj recordtype.DataObj
}

// SysLobCompPart shadows SYS.LOBCOMPPART$ (LOB partition segments).
type SysLobCompPart struct {
	PartObj recordtype.DataObj
	LObj    recordtype.LObj
}

// SysLobFrag shadows SYS.LOBFRAG$ (LOB subpartition fragment segments).
type SysLobFrag struct {
	FragObj  recordtype.DataObj
	ParentObj recordtype.DataObj
}

// SysTabPart / SysTabComPart / SysTabSubPart shadow the three partition
// dictionary tables walked during rebuild (spec §4.5 step 4).
type SysTabPart struct {
	Obj     recordtype.Obj
	DataObj recordtype.DataObj
	Bo      recordtype.Obj // owning (base) table obj
}

type SysTabComPart struct {
	Obj recordtype.Obj
	Bo  recordtype.Obj
}

type SysTabSubPart struct {
	Obj   recordtype.Obj
	PObj  recordtype.Obj
	Bo    recordtype.Obj
}

// SysTs shadows SYS.TS$ (tablespace block size, for LOB page sizing:
// spec §4.6 "8132 for 8 KiB, 16264 for 16 KiB, 32528 for 32 KiB").
type SysTs struct {
	Ts        int
	Name      string
	BlockSize int
}

// NominalLobPageSize maps a tablespace block size to the usable LOB page
// payload size (spec §4.6).
func NominalLobPageSize(blockSize int) int {
	switch blockSize {
	case 8192:
		return 8132
	case 16384:
		return 16264
	case 32768:
		return 32528
	default:
		return blockSize - 60
	}
}

// XdbXNm/XPt/XQn shadow the XDB dictionary-coded name/namespace/qname
// tables used by the binary-XML decoder (spec §4.6: "qname/namespace/uri
// dictionaries are stored per tokSuf").
type XdbXNm struct {
	TokSuf string
	NmSpcId uint16
	Value   string
}

type XdbXPt struct {
	TokSuf string
	Path   string
	Value  []byte
}

type XdbXQn struct {
	TokSuf  string
	ID      uint16
	NmSpcId uint16
	LocalName string
	Flags   uint8
}
