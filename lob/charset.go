package lob

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// AL16UTF16 is Oracle's charset id for the big-endian UTF-16 national
// character set (spec §8 scenario 6: "if charset is UTF-16 (AL16UTF16),
// the UTF-8 output is byte-equal to the reference vector").
const AL16UTF16 uint64 = 2000

// WE8ISO8859P1 is a common single-byte western-European charset id,
// included as the representative charmap-backed path.
const WE8ISO8859P1 uint64 = 31

// DecodeCharset converts raw CLOB bytes in the given Oracle charset id
// to UTF-8 (spec §4.6: "for CLOB/XMLType, decodes using the column's
// charset"). Unrecognized charset ids pass through unchanged, on the
// assumption the source is already UTF-8 (the common AL32UTF8 case).
func DecodeCharset(raw []byte, charsetID uint64) ([]byte, error) {
	switch charsetID {
	case AL16UTF16:
		dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
		return dec.Bytes(raw)
	case WE8ISO8859P1:
		dec := charmap.ISO8859_1.NewDecoder()
		return dec.Bytes(raw)
	default:
		return raw, nil
	}
}
