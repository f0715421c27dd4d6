package reader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/logminer/redocore/redolib/recordtype"
)

func buildHeader(endian recordtype.Endian, seq recordtype.Seq, blockNo uint32) []byte {
	b := make([]byte, headerSize)
	endian.PutUint16(b[0:2], blockMagicLE)
	endian.PutUint32(b[4:8], blockNo)
	endian.PutUint32(b[8:12], uint32(seq))
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

func TestParseHeaderRoundTrip(t *testing.T) {
	for _, endian := range []recordtype.Endian{recordtype.LittleEndian, recordtype.BigEndian} {
		raw := buildHeader(endian, recordtype.Seq(42), 7)
		hdr, err := parseHeader(raw, endian, recordtype.Seq(42), 7, 0)
		require.NoError(t, err)
		require.Equal(t, recordtype.Seq(42), hdr.Sequence)
		require.Equal(t, uint32(7), hdr.BlockNo)
		require.True(t, verifyChecksum(raw, endian, hdr.Checksum))
	}
}

func TestParseHeaderSequenceMismatch(t *testing.T) {
	raw := buildHeader(recordtype.LittleEndian, recordtype.Seq(42), 7)
	_, err := parseHeader(raw, recordtype.LittleEndian, recordtype.Seq(43), 7, 0)
	require.Error(t, err)
}

func TestParseHeaderBlockNoMismatch(t *testing.T) {
	raw := buildHeader(recordtype.LittleEndian, recordtype.Seq(42), 7)
	_, err := parseHeader(raw, recordtype.LittleEndian, recordtype.Seq(42), 8, 0)
	require.Error(t, err)
}
