// Package parser implements spec §4.3: splitting a RedoRecord into its
// ChangeVectors and decoding each vector's field table, plus the
// OpcodeDispatcher that updates transaction/schema/LOB state per vector.
package parser

import (
	"github.com/logminer/redocore/redolib/rerr"
	"github.com/logminer/redocore/redolib/recordtype"
)

// Opcode identifies a change vector's semantic layer and operation
// (spec §4.3: "opcode:(layer,op)"), dispatched as a closed switch rather
// than virtual-call polymorphism (DESIGN NOTES §9).
type Opcode struct {
	Layer uint8
	Op    uint8
}

func (o Opcode) String() string {
	return opcodeString(o)
}

// Well-known opcodes from the spec §4.3 table.
var (
	OpUndoHeader       = Opcode{5, 1}
	OpTxBegin          = Opcode{5, 2}
	OpCommit           = Opcode{5, 4}
	OpRollback         = Opcode{5, 5}
	OpRollbackSavepoint = Opcode{5, 6}
	OpRollbackSingle   = Opcode{5, 11}
	OpSessionAttr      = Opcode{5, 13}
	OpTxAttr           = Opcode{5, 14}
	OpDDLMarker        = Opcode{5, 19}
	OpDDLMarkerFinal   = Opcode{5, 20}
	OpInsert           = Opcode{11, 2}
	OpDelete           = Opcode{11, 3}
	OpRowLock          = Opcode{11, 4}
	OpUpdate           = Opcode{11, 5}
	OpOverwrite        = Opcode{11, 6}
	OpMultiInsert      = Opcode{11, 10}
	OpMultiDelete      = Opcode{11, 11}
	OpSupplementalLog  = Opcode{11, 16}
	OpDDLText          = Opcode{24, 1}
)

func opcodeString(o Opcode) string {
	switch o {
	case OpUndoHeader:
		return "5.1(undo-header)"
	case OpTxBegin:
		return "5.2(begin)"
	case OpCommit:
		return "5.4(commit)"
	case OpRollback:
		return "5.5(rollback)"
	case OpRollbackSavepoint:
		return "5.6(rollback-savepoint)"
	case OpRollbackSingle:
		return "5.11(rollback-single)"
	case OpSessionAttr:
		return "5.13(session-attr)"
	case OpTxAttr:
		return "5.14(tx-attr)"
	case OpDDLMarker:
		return "5.19(ddl-marker)"
	case OpDDLMarkerFinal:
		return "5.20(ddl-marker-final)"
	case OpInsert:
		return "11.2(insert)"
	case OpDelete:
		return "11.3(delete)"
	case OpRowLock:
		return "11.4(row-lock)"
	case OpUpdate:
		return "11.5(update)"
	case OpOverwrite:
		return "11.6(overwrite)"
	case OpMultiInsert:
		return "11.10(multi-insert)"
	case OpMultiDelete:
		return "11.11(multi-delete)"
	case OpSupplementalLog:
		return "11.16(supplemental-log)"
	case OpDDLText:
		return "24.1(ddl-text)"
	default:
		if o.Layer == 10 {
			return "10.x(index)"
		}
		if o.Layer == 19 || o.Layer == 20 {
			return "19/20.x(lob-write)"
		}
		if o.Layer == 26 {
			return "26.x(lob-data)"
		}
		return "unknown"
	}
}

// ChangeVector is a decoded vector header plus its field table and raw
// payload (spec §3).
type ChangeVector struct {
	Op      Opcode
	Obj     recordtype.Obj
	DataObj recordtype.DataObj
	Bdba    recordtype.Dba
	Slot    uint16
	Fb      uint8
	Seq     recordtype.Seq
	Flags   uint16
	Uba     recordtype.Uba
	Xid     recordtype.Xid

	fields  []fieldSpan
	payload []byte
}

type fieldSpan struct {
	offset int
	length int
}

// vectorHeaderSize covers the fixed vector prefix: opcode(2)+pad(2),
// obj(4), dataObj(4), bdba(4), slot(2), fb(1)+pad(1), seq(4), flags(2),
// fieldTableLen(2), vectorLen(4), xid usn(2)+slt(2)+sqn(4).
const vectorHeaderSize = 40

// Field returns the bytes for the 1-based field index n, enforcing that
// n is within the declared field count and that the span fits the
// payload (spec §4.3: "nextField enforces ... failing with Malformed").
func (v *ChangeVector) Field(n int, offset recordtype.FileOffset) ([]byte, error) {
	if n < 1 || n > len(v.fields) {
		return nil, rerr.New(rerr.Malformed, offset, "field index out of range")
	}
	f := v.fields[n-1]
	if f.offset < 0 || f.length < 0 || f.offset+f.length > len(v.payload) {
		return nil, rerr.New(rerr.Malformed, offset, "field span exceeds payload")
	}
	return v.payload[f.offset : f.offset+f.length], nil
}

func (v *ChangeVector) FieldCount() int { return len(v.fields) }

// ParseVectors splits a record's payload into ChangeVectors, decoding
// each header and its 4-byte-aligned, size-prefixed field table.
func ParseVectors(payload []byte, endian recordtype.Endian, recOffset recordtype.FileOffset) ([]*ChangeVector, error) {
	var out []*ChangeVector
	pos := 0
	for pos < len(payload) {
		if len(payload)-pos < vectorHeaderSize {
			return nil, rerr.New(rerr.Malformed, recOffset+recordtype.FileOffset(pos), "truncated vector header")
		}
		h := payload[pos : pos+vectorHeaderSize]
		v := &ChangeVector{
			Op:      Opcode{Layer: h[0], Op: h[1]},
			Obj:     recordtype.Obj(endian.Uint32(h[4:8])),
			DataObj: recordtype.DataObj(endian.Uint32(h[8:12])),
			Bdba:    recordtype.Dba(endian.Uint32(h[12:16])),
			Slot:    endian.Uint16(h[16:18]),
			Fb:      h[18],
			Seq:     recordtype.Seq(endian.Uint32(h[20:24])),
			Flags:   endian.Uint16(h[24:26]),
		}
		fieldTableLen := int(endian.Uint16(h[26:28]))
		vectorLen := int(endian.Uint32(h[28:32]))
		v.Xid = recordtype.NewXid(endian.Uint16(h[32:34]), endian.Uint16(h[34:36]), endian.Uint32(h[36:40]))
		if vectorLen < vectorHeaderSize || pos+vectorLen > len(payload) {
			return nil, rerr.New(rerr.Malformed, recOffset+recordtype.FileOffset(pos), "vector length exceeds record")
		}

		body := payload[pos+vectorHeaderSize : pos+vectorLen]
		tableBytes := 4 * ((fieldTableLen*2 + 3) / 4) // 4-byte aligned field table
		if tableBytes > len(body) {
			return nil, rerr.New(rerr.Malformed, recOffset+recordtype.FileOffset(pos), "field table exceeds vector body")
		}

		fields := make([]fieldSpan, 0, fieldTableLen)
		fieldOff := tableBytes
		for i := 0; i < fieldTableLen; i++ {
			ln := int(endian.Uint16(body[i*2 : i*2+2]))
			fields = append(fields, fieldSpan{offset: fieldOff, length: ln})
			fieldOff += align4(ln)
		}
		v.fields = fields
		v.payload = body

		out = append(out, v)
		pos += vectorLen
	}
	return out, nil
}

func align4(n int) int { return (n + 3) &^ 3 }
