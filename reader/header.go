package reader

import (
	"github.com/logminer/redocore/redolib/rerr"
	"github.com/logminer/redocore/redolib/recordtype"
)

// blockMagicLE/BE are the first two bytes of every redo block header,
// doubling as the endianness marker (spec §6.1: "endianness is discovered
// from a marker in the header").
const (
	blockMagicLE = 0x0022
	blockMagicBE = 0x2200
)

// headerSize is the fixed prefix every block carries ahead of its
// record payload, present in every supported block size (512/1024/4096).
const headerSize = 16

// blockHeader is the decoded fixed prefix of a RedoBlock (spec §3:
// "header carrying block sequence and checksum").
type blockHeader struct {
	Sequence recordtype.Seq
	Checksum uint16
	BlockNo  uint32
}

// parseHeader validates and decodes a block's fixed prefix. endian is
// resolved once at file-open (redolib/recordtype/endian.go) and passed in;
// this function never re-probes it per block.
func parseHeader(raw []byte, endian recordtype.Endian, expectSeq recordtype.Seq, expectBlockNo uint32, offset recordtype.FileOffset) (blockHeader, error) {
	if len(raw) < headerSize {
		return blockHeader{}, rerr.New(rerr.Corrupt, offset, "block shorter than header")
	}
	magic := endian.Uint16(raw[0:2])
	if magic != blockMagicLE && magic != blockMagicBE {
		return blockHeader{}, rerr.New(rerr.Corrupt, offset, "bad block magic")
	}
	h := blockHeader{
		BlockNo:  endian.Uint32(raw[4:8]),
		Sequence: recordtype.Seq(endian.Uint32(raw[8:12])),
		Checksum: endian.Uint16(raw[12:14]),
	}
	if expectSeq != recordtype.SeqNone && h.Sequence != expectSeq {
		return h, rerr.New(rerr.Corrupt, offset, "block sequence mismatch")
	}
	if h.BlockNo != expectBlockNo {
		return h, rerr.New(rerr.Corrupt, offset, "block number mismatch")
	}
	return h, nil
}

// verifyChecksum computes the running XOR-fold checksum Oracle uses for
// DB_BLOCK_CHECKSUM and compares it against the header's stored value.
// Callers downgrade a mismatch to a warning when disable-checks carries
// BLOCK_SUM (spec §7).
func verifyChecksum(raw []byte, endian recordtype.Endian, want uint16) bool {
	if len(raw) < headerSize {
		return false
	}
	var sum uint16
	for i := 0; i+1 < len(raw); i += 2 {
		if i >= 12 && i < 14 {
			continue // checksum field itself is excluded from its own computation
		}
		sum ^= endian.Uint16(raw[i : i+2])
	}
	return sum == want
}
