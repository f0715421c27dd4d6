package schema

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/btree"

	"github.com/logminer/redocore/redolib/recordtype"
	"github.com/logminer/redocore/schema/systable"
)

// RebuildTouched rebuilds the derived Table/Lob maps for every object
// touched since the last rebuild (spec §4.5 "Rebuild algorithm for a
// touched obj", steps 1-6), grounded on
// original_source/src/metadata/Schema.cpp's buildMaps.
func (s *Schema) RebuildTouched() error {
	s.mu.Lock()
	touched := s.touchedObjects
	s.touchedObjects = roaring.New()
	s.mu.Unlock()

	it := touched.Iterator()
	for it.HasNext() {
		obj := recordtype.Obj(it.Next())
		if err := s.rebuildOne(obj); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) rebuildOne(obj recordtype.Obj) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Step 1: drop any prior Table for obj and its partitions.
	if prior, ok := s.tableMap[obj]; ok {
		for _, p := range prior.Partitions {
			delete(s.tablePartitionMap, p)
		}
		delete(s.tableMap, obj)
	}

	sysObj, ok := s.findObj(obj)
	// Step 2: reject absent / wrong type / IOT / binary / temporary /
	// nested / initial+compressed objects.
	if !ok || sysObj.Dropped || sysObj.Binary || sysObj.Temporary {
		return nil
	}
	sysTab, hasTab := s.findTab(obj)
	if !hasTab || sysTab.IOT || sysTab.Nested || (sysTab.Compressed && s.isInitialCompressed(obj)) {
		return nil
	}

	owner, ownerOk := s.resolveOwner(sysObj.Owner, obj)
	if !ownerOk {
		return nil // no adaptive fallback available and no SysUser row
	}

	if !s.objIsReplicated(owner, sysObj.Name) {
		return nil
	}

	table := &Table{
		Obj:     obj,
		Owner:   owner,
		Name:    sysObj.Name,
		TagColsSet: make(map[string]bool),
	}

	// Step 3: iterate SysCol rows in segCol order.
	cols := s.collectColsOrdered(obj)
	maxSegCol := 0
	var pkCols []int
	missingPK, missingList := false, false
	for _, row := range cols {
		col := s.buildColumn(obj, row)
		table.Columns = append(table.Columns, col)
		if col.SegCol > maxSegCol {
			maxSegCol = col.SegCol
		}
		if col.NumPk > 0 {
			pkCols = append(pkCols, col.SegCol)
			if !s.hasSupplementalLogColumn(obj, row.IntCol) {
				missingPK = true
			}
		}
	}
	table.MaxSegCol = maxSegCol
	table.PkColumns = pkCols
	if missingPK {
		table.supLogStatus = SupplementalLogMissingForPK
	} else if missingList {
		table.supLogStatus = SupplementalLogMissingForKeyList
	} else if !s.Flags.DatabaseSupplementalLog && len(pkCols) == 0 {
		table.supLogStatus = SupplementalLogOK
	}

	// Step 4: iterate SysLob for obj; attach partitions from SysLobCompPart.
	// Lob.Indexes is left empty and SysLobFrag is not consulted.
	s.Lobs.Each(func(_ systable.RowID, row systable.SysLob) {
		if row.Obj != obj {
			return
		}
		lob := &Lob{
			Obj: obj, Col: row.Col, IntCol: row.IntCol, LObj: row.LObj, DataObj: row.DataObj,
			PageSize: s.nominalPageSizeFor(obj),
		}
		indexName := fmt.Sprintf("SYS_IL%dC%d$$", obj, row.IntCol)
		_ = indexName // synthesized name is computed but not stored anywhere
		s.LobCompParts.Each(func(_ systable.RowID, p systable.SysLobCompPart) {
			if p.LObj == row.LObj {
				lob.Partitions = append(lob.Partitions, p.PartObj)
			}
		})
		table.Lobs = append(table.Lobs, lob)
	})

	// Partition walk (SysTabPart/SysTabComPart/SysTabSubPart).
	s.TabParts.Each(func(_ systable.RowID, row systable.SysTabPart) {
		if row.Bo == obj {
			table.Partitions = append(table.Partitions, row.DataObj)
		}
	})
	s.TabComParts.Each(func(_ systable.RowID, row systable.SysTabComPart) {
		if row.Bo == obj {
			table.Partitions = append(table.Partitions, recordtype.DataObj(row.Obj))
		}
	})
	s.TabSubParts.Each(func(_ systable.RowID, row systable.SysTabSubPart) {
		if row.Bo == obj {
			table.Partitions = append(table.Partitions, recordtype.DataObj(row.Obj))
		}
	})

	// Step 5/6: install.
	s.tableMap[obj] = table
	for _, p := range table.Partitions {
		s.tablePartitionMap[p] = table
	}
	for _, lob := range table.Lobs {
		s.lobIndexMap[lob.DataObj] = lob
		for _, p := range lob.Partitions {
			s.lobPartitionMap[p] = lob
		}
	}
	return nil
}

func (s *Schema) findObj(obj recordtype.Obj) (systable.SysObj, bool) {
	var found systable.SysObj
	ok := false
	s.Objs.Each(func(_ systable.RowID, row systable.SysObj) {
		if row.Obj == obj {
			found, ok = row, true
		}
	})
	return found, ok
}

func (s *Schema) findTab(obj recordtype.Obj) (systable.SysTab, bool) {
	var found systable.SysTab
	ok := false
	s.Tabs.Each(func(_ systable.RowID, row systable.SysTab) {
		if row.Obj == obj {
			found, ok = row, true
		}
	})
	return found, ok
}

func (s *Schema) isInitialCompressed(obj recordtype.Obj) bool {
	row, ok := s.findDeferredStg(obj)
	return ok && row.CompressionLevel > 0
}

func (s *Schema) findDeferredStg(obj recordtype.Obj) (systable.SysDeferredStg, bool) {
	var found systable.SysDeferredStg
	ok := false
	s.DeferredStg.Each(func(_ systable.RowID, row systable.SysDeferredStg) {
		if row.Obj == obj {
			found, ok = row, true
		}
	})
	return found, ok
}

// resolveOwner looks up the SysUser name for sysObj.Owner, falling back
// to a synthesized "USER_<obj>" when ADAPTIVE_SCHEMA is set and no
// SysUser row exists (SUPPLEMENTED FEATURES: adaptive schema fallback
// user, grounded on Schema.cpp's sysUserAdaptive).
func (s *Schema) resolveOwner(userID uint32, obj recordtype.Obj) (string, bool) {
	var name string
	found := false
	s.Users.Each(func(_ systable.RowID, row systable.SysUser) {
		if row.User == userID {
			name, found = row.Name, true
		}
	})
	if found {
		return name, true
	}
	if s.Flags.AdaptiveSchema {
		return fmt.Sprintf("USER_%d", obj), true
	}
	return "", false
}

// objIsReplicated applies the regex filter set (spec §4.5 last
// paragraph).
func (s *Schema) objIsReplicated(owner, table string) bool {
	if len(s.Filters) == 0 {
		return false
	}
	for _, e := range s.Filters {
		if e.matches(owner, table) {
			return true
		}
	}
	return false
}

// collectColsOrdered returns obj's SysCol rows ordered by segCol,
// building a fresh google/btree index on every call and storing it in
// colIndex (spec §4.5 step 3; DESIGN.md: google/btree backs this ordering).
func (s *Schema) collectColsOrdered(obj recordtype.Obj) []systable.SysCol {
	tree := btree.NewBTreeG(lessColKey)
	s.Cols.Each(func(_ systable.RowID, row systable.SysCol) {
		if row.Obj == obj {
			tree.Set(colKey{segCol: row.SegCol, col: row})
		}
	})
	s.colIndex[obj] = tree

	out := make([]systable.SysCol, 0, tree.Len())
	tree.Scan(func(k colKey) bool {
		out = append(out, k.col)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SegCol < out[j].SegCol })
	return out
}

func (s *Schema) buildColumn(obj recordtype.Obj, row systable.SysCol) *Column {
	numPk := 0
	s.CCols.Each(func(_ systable.RowID, cc systable.SysCCol) {
		if cc.Obj != obj || cc.IntCol != row.IntCol {
			return
		}
		s.CDefs.Each(func(_ systable.RowID, cd systable.SysCDef) {
			if cd.Obj == obj && cd.Con == cc.Con && cd.Type == 2 {
				numPk++
			}
		})
	})

	guardSeg := 0
	isGuard := false
	s.ECols.Each(func(_ systable.RowID, ec systable.SysECol) {
		if ec.Obj == obj && ec.ColNum == row.Col {
			guardSeg = ec.GuardId
			isGuard = true
		}
	})

	charsetId := row.CharsetId
	switch row.CharsetForm {
	case 1:
		// db charset, already resolved into CharsetId by the dictionary feed
	case 2:
		// national charset (NCHAR/NVARCHAR2): dictionary feed resolves this too
	default:
		charsetId = 0
	}

	return &Column{
		Col:             row.Col,
		GuardSeg:        guardSeg,
		SegCol:          row.SegCol,
		Name:            row.Name,
		Type:            ColType(row.Type),
		Length:          row.Length,
		Precision:       row.Precision,
		Scale:           row.Scale,
		CharsetId:       charsetId,
		NumPk:           numPk,
		Nullable:        !row.Null,
		Hidden:          row.Property&propHidden != 0,
		StoredAsLob:     row.Property&propStoredAsLob != 0,
		SystemGenerated: row.Property&propSystemGenerated != 0,
		Nested:          row.Property&propNested != 0,
		Unused:          row.Property&propUnused != 0,
		Guard:           isGuard,
		XmlType:         row.Property&propXmlType != 0,
	}
}

// hasSupplementalLogColumn reports whether intCol is covered by a
// supplemental-log SysCCol/SysCDef pair (spec §4.5 supplemental-log
// inference paragraph).
func (s *Schema) hasSupplementalLogColumn(obj recordtype.Obj, intCol int) bool {
	if s.Flags.DatabaseSupplementalLog {
		return true
	}
	found := false
	s.CCols.Each(func(_ systable.RowID, cc systable.SysCCol) {
		if cc.Obj != obj || cc.IntCol != intCol {
			return
		}
		s.CDefs.Each(func(_ systable.RowID, cd systable.SysCDef) {
			if cd.Obj == obj && cd.Con == cc.Con && (cd.Type == 12 || cd.Type == 14) {
				found = true
			}
		})
	})
	return found
}

func (s *Schema) nominalPageSizeFor(obj recordtype.Obj) int {
	var size int
	s.Tss.Each(func(_ systable.RowID, row systable.SysTs) {
		if size == 0 {
			size = systable.NominalLobPageSize(row.BlockSize)
		}
	})
	if size == 0 {
		size = systable.NominalLobPageSize(8192)
	}
	return size
}

// SysCol.Property bit positions (Oracle dictionary convention).
const (
	propHidden          = 1 << 0
	propStoredAsLob     = 1 << 1
	propSystemGenerated = 1 << 2
	propNested          = 1 << 3
	propUnused          = 1 << 4
	propXmlType         = 1 << 5
)
