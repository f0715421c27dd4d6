// Package emitter defines the language-neutral callback surface consumed
// by sinks (spec §6.2), literally translated into a Go interface. The
// core never implements Sink; it only calls it.
package emitter

import (
	"github.com/logminer/redocore/redolib/recordtype"
)

// Sink is implemented by a downstream consumer (JSON/Protobuf/Kafka/file
// encoder, explicitly out of scope here per spec §1). All byte maps are
// keyed by column name; payloads are raw Oracle column-format bytes
// (decode utilities live in redolib/coltype, offered not required).
type Sink interface {
	OnBegin(xid recordtype.Xid, thread uint16, beginSeq recordtype.Seq, beginScn recordtype.Scn,
		beginTs int64, commitSeq recordtype.Seq, commitScn recordtype.Scn, commitTs int64,
		attributes map[string]string)

	OnInsert(table string, obj recordtype.Obj, dataObj recordtype.DataObj, bdba recordtype.Dba,
		slot uint16, after map[string][]byte, offset recordtype.FileOffset)

	OnUpdate(table string, obj recordtype.Obj, dataObj recordtype.DataObj, bdba recordtype.Dba,
		slot uint16, before, after map[string][]byte, offset recordtype.FileOffset)

	OnDelete(table string, obj recordtype.Obj, dataObj recordtype.DataObj, bdba recordtype.Dba,
		slot uint16, before map[string][]byte, offset recordtype.FileOffset)

	OnDDL(table string, obj recordtype.Obj, ddlText string, offset recordtype.FileOffset)

	OnCommit()

	OnCheckpoint(seq recordtype.Seq, scn recordtype.Scn, ts int64, offset recordtype.FileOffset, isRedoSwitch bool)
}
