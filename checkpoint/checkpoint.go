// Package checkpoint implements spec §4.7 (Checkpointer) and §4.8
// (incarnation tracking): periodic persistence of a resume-point
// descriptor to a pluggable state store, and recovery's choice of
// resume point. Grounded on
// original_source/src/metadata/Checkpoint.cpp.
package checkpoint

import (
	"github.com/logminer/redocore/redolib/recordtype"
)

// MinOpenTxn reports the earliest still-open transaction at the moment
// a Checkpoint was taken (spec §3 Checkpoint entity).
type MinOpenTxn struct {
	Seq    recordtype.Seq
	Offset recordtype.FileOffset
	Xid    recordtype.Xid
}

// Checkpoint is the persisted resume-point descriptor (spec §3).
type Checkpoint struct {
	Database     string
	Resetlogs    uint32
	Activation   uint32
	Scn          recordtype.Scn
	Time         int64
	Sequence     recordtype.Seq
	Offset       recordtype.FileOffset
	SchemaRefScn recordtype.Scn // meaningful only when HasSchemaRef is true; 0 can be a valid reference
	HasSchemaRef bool
	MinOpenTxn   *MinOpenTxn
}
