package recordtype

import "fmt"

// Uba is an opaque undo block address: a chain link used to resolve
// rollback-to-savepoint and single-operation rollback (spec §4.3, opcodes
// 5.6/5.11). It is ordered: a higher Uba was written later in the same undo
// segment, which is what makes "drop all entries above a savepoint" work.
type Uba struct {
	Dba  Dba
	Seq  uint8
	Rec  uint16
}

func (u Uba) String() string {
	return fmt.Sprintf("%s.%04x.%02x", u.Dba, u.Rec, u.Seq)
}

// After reports whether u was written strictly after other in the same undo
// chain, comparing (Dba, Seq, Rec) lexicographically the way Oracle orders
// undo records within a segment.
func (u Uba) After(other Uba) bool {
	if u.Dba != other.Dba {
		return u.Dba > other.Dba
	}
	if u.Seq != other.Seq {
		return u.Seq > other.Seq
	}
	return u.Rec > other.Rec
}

func (u Uba) Equal(other Uba) bool {
	return u.Dba == other.Dba && u.Seq == other.Seq && u.Rec == other.Rec
}
