package recordtype

import "fmt"

// Xid is a packed Oracle transaction identifier: undo-segment number, undo
// slot, and sequence. Two transactions holding the same Xid can never
// coexist in the TransactionStore (spec §4.5 reuse rule); the zero value is
// never a valid in-flight transaction id.
type Xid struct {
	Usn uint16
	Slt uint16
	Sqn uint32
}

func NewXid(usn, slt uint16, sqn uint32) Xid {
	return Xid{Usn: usn, Slt: slt, Sqn: sqn}
}

func (x Xid) String() string {
	return fmt.Sprintf("0x%04x.%04x.%08x", x.Usn, x.Slt, x.Sqn)
}

func (x Xid) IsZero() bool {
	return x.Usn == 0 && x.Slt == 0 && x.Sqn == 0
}

// Packed returns the 64-bit packed encoding used as a map key and in
// checkpoint min-open-txn descriptors: usn:16 | slt:16 | sqn:32.
func (x Xid) Packed() uint64 {
	return uint64(x.Usn)<<48 | uint64(x.Slt)<<32 | uint64(x.Sqn)
}

func XidFromPacked(v uint64) Xid {
	return Xid{
		Usn: uint16(v >> 48),
		Slt: uint16(v >> 32),
		Sqn: uint32(v),
	}
}
