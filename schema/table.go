// Package schema implements spec §4.5: a shadow of SYS/XDB dictionary
// tables plus derived per-OBJ Table/Column/Lob descriptors, the touched-
// object rebuild algorithm, and the row-filter. Grounded on
// original_source/src/metadata/Schema.cpp's buildMaps and
// original_source/src/common/DbColumn.h's field set.
package schema

import (
	"github.com/logminer/redocore/redolib/recordtype"
)

// SupplementalLogStatus distinguishes "fine", "missing for the PK", and
// "missing for an explicit key list" (SUPPLEMENTED FEATURES: finer-grained
// advisory than spec.md's single "missing" boolean, grounded on
// Schema.cpp's supLogColMissing bookkeeping). The rebuild assigns only
// SupplementalLogOK and SupplementalLogMissingForPK; it never produces
// SupplementalLogMissingForKeyList.
type SupplementalLogStatus int

const (
	SupplementalLogOK SupplementalLogStatus = iota
	SupplementalLogMissingForPK
	SupplementalLogMissingForKeyList
)

// Column is the per-column descriptor (spec §3), grounded field-for-field
// on original_source/src/common/DbColumn.h.
type Column struct {
	Col             int
	GuardSeg        int
	SegCol          int
	Name            string
	Type            ColType
	Length          int
	Precision       int
	Scale           int
	CharsetId       uint64
	NumPk           int
	Nullable        bool
	Hidden          bool
	StoredAsLob     bool
	SystemGenerated bool
	Nested          bool
	Unused          bool
	Added           bool
	Guard           bool
	XmlType         bool
}

// ColType mirrors SysCol::COLTYPE's closed set of Oracle column types
// relevant to logical decoding.
type ColType int

const (
	ColUnknown ColType = iota
	ColVarchar2
	ColNumber
	ColDate
	ColRaw
	ColChar
	ColFloat
	ColClob
	ColBlob
	ColTimestamp
	ColTimestampTZ
	ColIntervalYM
	ColIntervalDS
	ColXMLType
)

// TagType mirrors SchemaElement::TAG_TYPE (SUPPLEMENTED FEATURES:
// per-table tag projection).
type TagType int

const (
	TagNone TagType = iota
	TagPK
	TagList
	TagAll
)

// Lob resolves a LOB locator to its page-producing segments (spec §3).
type Lob struct {
	Obj        recordtype.Obj
	DataObj    recordtype.DataObj
	LObj       recordtype.LObj
	Col        int
	IntCol     int
	Indexes    []recordtype.DataObj
	Partitions []recordtype.DataObj
	PageSize   int
}

// Table is the logical table descriptor built from schema rows (spec §3).
type Table struct {
	Obj         recordtype.Obj
	Owner       string
	Name        string
	Columns     []*Column // ordered by SegCol, 1-based: Columns[i].SegCol == i+1
	PkColumns   []int     // SegCol indices
	MaxSegCol   int
	Partitions  []recordtype.DataObj
	Lobs        []*Lob
	SystemTable bool

	TagType    TagType
	TagColsSet map[string]bool // explicit list when TagType == TagList

	supLogStatus SupplementalLogStatus
}

func (t *Table) SupplementalLogStatus() SupplementalLogStatus { return t.supLogStatus }

// TagColumns returns the subset of column names tagged for sink-side
// partitioning hints (SUPPLEMENTED FEATURES: per-table tag projection).
func (t *Table) TagColumns() []string {
	switch t.TagType {
	case TagAll:
		names := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			names[i] = c.Name
		}
		return names
	case TagPK:
		var names []string
		for _, segCol := range t.PkColumns {
			if segCol >= 1 && segCol <= len(t.Columns) {
				names = append(names, t.Columns[segCol-1].Name)
			}
		}
		return names
	case TagList:
		var names []string
		for name := range t.TagColsSet {
			names = append(names, name)
		}
		return names
	default:
		return nil
	}
}
