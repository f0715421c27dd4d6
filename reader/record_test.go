package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/logminer/redocore/redolib/recordtype"
)

// buildBlock returns a full blockSize-byte RedoBlock with a valid header
// and checksum, for the given sequence/blockNo, zero-padded or populated
// with payload starting right after the header.
func buildBlock(endian recordtype.Endian, blockSize int, seq recordtype.Seq, blockNo uint32, payload []byte) []byte {
	b := make([]byte, blockSize)
	endian.PutUint16(b[0:2], blockMagicLE)
	endian.PutUint32(b[4:8], blockNo)
	endian.PutUint32(b[8:12], uint32(seq))
	copy(b[headerSize:], payload)

	var sum uint16
	for i := 0; i+1 < len(b); i += 2 {
		if i >= 12 && i < 14 {
			continue
		}
		sum ^= endian.Uint16(b[i : i+2])
	}
	endian.PutUint16(b[12:14], sum)
	return b
}

// buildRecord encodes one logical record (header + raw payload bytes) as
// it appears inside a block's payload area.
func buildRecord(endian recordtype.Endian, scn recordtype.Scn, subscn recordtype.SubScn, thread uint16, vectorCount uint16, payload []byte) []byte {
	size := recordHeaderSize + len(payload)
	b := make([]byte, size)
	endian.PutUint32(b[0:4], uint32(size))
	endian.PutUint16(b[4:6], vectorCount)
	endian.PutScn(b[6:14], scn)
	endian.PutUint16(b[14:16], uint16(subscn))
	endian.PutUint16(b[16:18], thread)
	copy(b[recordHeaderSize:], payload)
	return b
}

// TestRecordAssemblerAtSkipsToStartBlock exercises spec §4.7 Recovery's
// reader-side half: a RecordAssembler built with NewRecordAssemblerAt
// must begin reading at the given block, never touching earlier blocks.
func TestRecordAssemblerAtSkipsToStartBlock(t *testing.T) {
	const blockSize = 512
	endian := recordtype.LittleEndian
	seq := recordtype.Seq(42)

	block0 := buildBlock(endian, blockSize, seq, 0, nil)
	rec := buildRecord(endian, recordtype.Scn(100), 0, 1, 1, []byte("abcd"))
	block1 := buildBlock(endian, blockSize, seq, 1, rec)

	dir := t.TempDir()
	path := filepath.Join(dir, "redo.log")
	data := append(append([]byte{}, block0...), block1...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r := New(path, Archive, Config{}, nil)
	info, err := r.Open()
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, blockSize, info.BlockSize)

	assembler := NewRecordAssemblerAt(r, info, 1)
	got, err := assembler.Next()
	require.NoError(t, err)
	require.Equal(t, recordtype.FileOffset(blockSize), got.Offset)
	require.Equal(t, []byte("abcd"), got.Payload)
	require.Equal(t, recordtype.Scn(100), got.Scn)
}
