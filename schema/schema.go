package schema

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/btree"

	"github.com/logminer/redocore/redolib/recordtype"
	"github.com/logminer/redocore/schema/systable"
)

// Element is one {owner, table, options, key?, condition?, tag?} filter
// entry, compiled at commit time (spec §4.5: "regular-expression name
// matching... committed atomically at reload").
type Element struct {
	OwnerPattern string
	TablePattern string
	Key          []string // manually-defined PK override, nil if none
	Condition    string    // row-filter expression; not compiled, filterFn stays nil
	Tag          TagType
	TagList      []string

	ownerRe, tableRe *regexp.Regexp
	filterFn         FilterFunc
}

// FilterFunc is the compiled boolean predicate over column name/value
// (spec §4.5 step 5: "boolean AST over column names and attributes").
// A nil FilterFunc always matches.
type FilterFunc func(row map[string][]byte) bool

func (e *Element) compile() error {
	ownerRe, err := regexp.Compile("^" + e.OwnerPattern + "$")
	if err != nil {
		return err
	}
	tableRe, err := regexp.Compile("^" + e.TablePattern + "$")
	if err != nil {
		return err
	}
	e.ownerRe, e.tableRe = ownerRe, tableRe
	return nil
}

func (e *Element) matches(owner, table string) bool {
	return e.ownerRe.MatchString(owner) && e.tableRe.MatchString(table)
}

// Flags mirrors the subset of spec §6.4's `flags` bitmask the Schema
// rebuild consults.
type Flags struct {
	Schemaless              bool
	AdaptiveSchema           bool
	ShowHiddenColumns        bool
	ShowGuardColumns         bool
	ShowNestedColumns        bool
	ShowUnusedColumns        bool
	ExperimentalXMLType      bool
	DatabaseSupplementalLog  bool // database-wide supplemental logging is enabled
}

// Schema is the shadow dictionary plus derived maps (spec §4.5, §3
// SchemaSnapshot).
type Schema struct {
	Flags   Flags
	Filters []*Element

	Users      *systable.RowStore[systable.SysUser]
	Objs       *systable.RowStore[systable.SysObj]
	Tabs       *systable.RowStore[systable.SysTab]
	Cols       *systable.RowStore[systable.SysCol]
	CCols      *systable.RowStore[systable.SysCCol]
	CDefs      *systable.RowStore[systable.SysCDef]
	DeferredStg *systable.RowStore[systable.SysDeferredStg]
	ECols      *systable.RowStore[systable.SysECol]
	Lobs       *systable.RowStore[systable.SysLob]
	LobCompParts *systable.RowStore[systable.SysLobCompPart]
	LobFrags   *systable.RowStore[systable.SysLobFrag]
	TabParts   *systable.RowStore[systable.SysTabPart]
	TabComParts *systable.RowStore[systable.SysTabComPart]
	TabSubParts *systable.RowStore[systable.SysTabSubPart]
	Tss        *systable.RowStore[systable.SysTs]

	mu              sync.RWMutex
	touchedObjects  *roaring.Bitmap // spec §4.5 "touched-set tracking"
	tableMap        map[recordtype.Obj]*Table
	tablePartitionMap map[recordtype.DataObj]*Table
	lobPartitionMap map[recordtype.DataObj]*Lob
	lobIndexMap     map[recordtype.DataObj]*Lob

	// colIndex orders SysCol rows per obj by segCol (spec §4.5 step 3:
	// "Iterate SysCol rows for obj in segCol order"), google/btree-backed
	// per DESIGN.md's domain-stack wiring.
	colIndex map[recordtype.Obj]*btree.BTreeG[colKey]

	stopOwner, stopTable string // SUPPLEMENTED: debug single-table shutdown
}

type colKey struct {
	segCol int
	col    systable.SysCol
}

func lessColKey(a, b colKey) bool { return a.segCol < b.segCol }

func New(flags Flags) *Schema {
	return &Schema{
		Flags:             flags,
		Users:             systable.NewRowStore[systable.SysUser](),
		Objs:              systable.NewRowStore[systable.SysObj](),
		Tabs:              systable.NewRowStore[systable.SysTab](),
		Cols:              systable.NewRowStore[systable.SysCol](),
		CCols:             systable.NewRowStore[systable.SysCCol](),
		CDefs:             systable.NewRowStore[systable.SysCDef](),
		DeferredStg:       systable.NewRowStore[systable.SysDeferredStg](),
		ECols:             systable.NewRowStore[systable.SysECol](),
		Lobs:              systable.NewRowStore[systable.SysLob](),
		LobCompParts:      systable.NewRowStore[systable.SysLobCompPart](),
		LobFrags:          systable.NewRowStore[systable.SysLobFrag](),
		TabParts:          systable.NewRowStore[systable.SysTabPart](),
		TabComParts:       systable.NewRowStore[systable.SysTabComPart](),
		TabSubParts:       systable.NewRowStore[systable.SysTabSubPart](),
		Tss:               systable.NewRowStore[systable.SysTs](),
		touchedObjects:    roaring.New(),
		tableMap:          make(map[recordtype.Obj]*Table),
		tablePartitionMap: make(map[recordtype.DataObj]*Table),
		lobPartitionMap:   make(map[recordtype.DataObj]*Lob),
		lobIndexMap:       make(map[recordtype.DataObj]*Lob),
		colIndex:          make(map[recordtype.Obj]*btree.BTreeG[colKey]),
	}
}

// CompileFilters compiles every Element's owner and table regex (spec
// §4.5: "committed atomically at reload"). Condition is not compiled.
func (s *Schema) CompileFilters(elements []*Element) error {
	for _, e := range elements {
		if err := e.compile(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.Filters = elements
	s.mu.Unlock()
	return nil
}

// StopAfterTable configures debug single-table shutdown (SUPPLEMENTED
// FEATURES, grounded on Checkpoint.cpp's debugOwner/debugTable).
func (s *Schema) StopAfterTable(owner, table string) {
	s.mu.Lock()
	s.stopOwner, s.stopTable = owner, table
	s.mu.Unlock()
}

// ShouldStopAfter reports whether owner.table is the configured debug
// shutdown target.
func (s *Schema) ShouldStopAfter(owner, table string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopOwner != "" && s.stopOwner == owner && s.stopTable == table
}

// Touch marks obj as needing a rebuild (spec §4.5; parser.SchemaUpdater).
func (s *Schema) Touch(obj recordtype.Obj) {
	s.mu.Lock()
	s.touchedObjects.Add(uint32(obj))
	s.mu.Unlock()
}

// IsReplicated reports whether obj currently has an installed Table
// descriptor (parser.SchemaUpdater). A false result is the SchemaMiss
// condition (spec §7): the caller still decides whether that's a silent
// skip or a SCHEMALESS downgrade by consulting Schemaless.
func (s *Schema) IsReplicated(obj recordtype.Obj) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tableMap[obj]
	return ok
}

// Schemaless reports whether the SCHEMALESS flag is set (spec §7
// SchemaMiss downgrade, parser.SchemaUpdater).
func (s *Schema) Schemaless() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Flags.Schemaless
}

// Table returns the current descriptor for obj, if installed.
func (s *Schema) Table(obj recordtype.Obj) (*Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tableMap[obj]
	if !ok {
		t, ok = s.tablePartitionMap[recordtype.DataObj(obj)]
	}
	return t, ok
}

// --- transaction.Resolver ---

func (s *Schema) TableName(obj recordtype.Obj) (string, bool) {
	t, ok := s.Table(obj)
	if !ok {
		if s.Schemaless() {
			return fmt.Sprintf("OBJ_%d", obj), true // spec §7 SchemaMiss downgrade
		}
		return "", false
	}
	return t.Owner + "." + t.Name, true
}

func (s *Schema) ColumnName(obj recordtype.Obj, segCol int) (name string, nullable bool, numPk int, ok bool) {
	t, tOk := s.Table(obj)
	if !tOk || segCol < 1 || segCol > len(t.Columns) {
		return "", false, 0, false
	}
	c := t.Columns[segCol-1]
	return c.Name, c.Nullable, c.NumPk, true
}

func (s *Schema) MaxSegCol(obj recordtype.Obj) int {
	t, ok := s.Table(obj)
	if !ok {
		return -1
	}
	return t.MaxSegCol
}

// ColIsNumber reports whether (obj, segCol) is a NUMBER column, for the
// NOT-NULL-missing heuristic's NUMBER-only gate (spec §4.4 open
// question, resolved in DESIGN.md to NUMBER-typed columns only).
func (s *Schema) ColIsNumber(obj recordtype.Obj, segCol int) bool {
	t, ok := s.Table(obj)
	if !ok || segCol < 1 || segCol > len(t.Columns) {
		return false
	}
	return t.Columns[segCol-1].Type == ColNumber
}
