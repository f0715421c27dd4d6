package recordtype

import (
	"fmt"
	"strconv"
	"strings"
)

// Dba is a 32-bit Oracle data block address: a file number packed into the
// high bits and a block number in the low bits. The split point matches
// Oracle's own DBA encoding (10 bits of file#, 22 bits of block#) which is
// stable across block sizes.
type Dba uint32

const dbaFileShift = 22

func NewDba(file uint32, block uint32) Dba {
	return Dba(file<<dbaFileShift | (block & (1<<dbaFileShift - 1)))
}

func (d Dba) File() uint32  { return uint32(d) >> dbaFileShift }
func (d Dba) Block() uint32 { return uint32(d) & (1<<dbaFileShift - 1) }

func (d Dba) String() string {
	return fmt.Sprintf("0x%08x(file=%d,block=%d)", uint32(d), d.File(), d.Block())
}

// Obj, DataObj, LObj identify a logical table, its physical segment, and a
// LOB segment respectively. All three share the same 32-bit object-id space
// in the Oracle data dictionary.
type (
	Obj     uint32
	DataObj uint32
	LObj    uint32
)

// Rowid identifies one physical row: the physical segment it lives in, the
// block address, and the row's slot within that block.
type Rowid struct {
	DataObj DataObj
	Dba     Dba
	Slot    uint16
}

func (r Rowid) String() string {
	return fmt.Sprintf("%d.%s.%d", r.DataObj, r.Dba, r.Slot)
}

// MarshalText/UnmarshalText render a Rowid as "dataobj.dba.slot" decimal
// triplet so it can serve as a JSON object map key (schema.snapshotPayload),
// where encoding/json and goccy/go-json both require a string-keyed map or
// a key type implementing TextMarshaler/TextUnmarshaler.
func (r Rowid) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d.%d.%d", r.DataObj, uint32(r.Dba), r.Slot)), nil
}

func (r *Rowid) UnmarshalText(text []byte) error {
	parts := strings.Split(string(text), ".")
	if len(parts) != 3 {
		return fmt.Errorf("invalid rowid %q", text)
	}
	dataObj, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid rowid %q: %w", text, err)
	}
	dba, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid rowid %q: %w", text, err)
	}
	slot, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid rowid %q: %w", text, err)
	}
	*r = Rowid{DataObj: DataObj(dataObj), Dba: Dba(dba), Slot: uint16(slot)}
	return nil
}

// FileOffset is a byte offset inside a redo file; always a multiple of that
// file's block size.
type FileOffset uint64

func (f FileOffset) String() string { return fmt.Sprintf("%d", uint64(f)) }
