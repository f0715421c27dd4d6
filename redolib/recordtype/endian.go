package recordtype

import "encoding/binary"

// Endian is selected once per opened redo file from a marker in its block
// header, then used for every subsequent read/write on that file. This
// replaces the source's per-call big/little-endian function-pointer
// dispatch (spec DESIGN NOTES §9) with a single value chosen up front.
type Endian struct {
	order binary.ByteOrder
}

var (
	LittleEndian = Endian{order: binary.LittleEndian}
	BigEndian    = Endian{order: binary.BigEndian}
)

func (e Endian) Uint16(b []byte) uint16 { return e.order.Uint16(b) }
func (e Endian) Uint32(b []byte) uint32 { return e.order.Uint32(b) }
func (e Endian) Uint64(b []byte) uint64 { return e.order.Uint64(b) }

func (e Endian) PutUint16(b []byte, v uint16) { e.order.PutUint16(b, v) }
func (e Endian) PutUint32(b []byte, v uint32) { e.order.PutUint32(b, v) }
func (e Endian) PutUint64(b []byte, v uint64) { e.order.PutUint64(b, v) }

// Scn decodes the Oracle variable-width SCN encoding: 6 bytes normally, or 8
// bytes when the high bit of byte 5 is set, in which case bytes 4-7 carry a
// 16-bit extension replacing the top two bytes of a plain 6-byte SCN. The
// all-0xFF sentinel for ScnNone is preserved in both encodings.
func (e Endian) Scn(b []byte) Scn {
	low := uint64(e.order.Uint32(b[0:4]))
	hi := uint64(e.order.Uint16(b[4:6]))
	if hi&0x8000 != 0 {
		// Extended form: bytes 4-7 form a 16-bit low-order extension for
		// the high 16 bits of the SCN, with the marker bit masked off.
		ext := uint64(e.order.Uint16(b[4:6])) &^ 0x8000
		return Scn(low | ext<<32 | uint64(e.order.Uint16(b[6:8]))<<48)
	}
	v := low | hi<<32
	if v == 0xFFFFFFFFFFFF {
		return ScnNone
	}
	return Scn(v)
}

func (e Endian) PutScn(b []byte, s Scn) {
	if s.IsNone() {
		e.order.PutUint32(b[0:4], 0xFFFFFFFF)
		e.order.PutUint16(b[4:6], 0xFFFF)
		return
	}
	v := uint64(s)
	if v>>48 != 0 {
		e.order.PutUint32(b[0:4], uint32(v))
		e.order.PutUint16(b[4:6], uint16(v>>32)|0x8000)
		e.order.PutUint16(b[6:8], uint16(v>>48))
		return
	}
	e.order.PutUint32(b[0:4], uint32(v))
	e.order.PutUint16(b[4:6], uint16(v>>32))
}
