package lob

import (
	"fmt"
	"strings"
)

// Binary-XML token opcodes (spec §4.6: "a documented token vocabulary").
const (
	tokHeader        = 0x00
	tokProlog        = 0x01
	tokTagOpen       = 0x02
	tokAttribute     = 0x03
	tokEndTag        = 0x04
	tokTextShort     = 0x05 // 8-bit length prefix
	tokTextLong      = 0x06 // 64-bit length prefix
	tokRepeatLastTag = 0x07
	tokEOF           = 0xFF
)

// QnameResolver resolves a dictionary-coded (namespace, qname) pair to
// its textual form, backed by the Schema's per-tokSuf XmlCtx dictionary
// (spec §4.6: "qname/namespace/uri dictionaries are stored per tokSuf
// in the Schema's XmlCtx set").
type QnameResolver interface {
	ResolveQname(tokSuf string, nmSpcID uint16, localID uint16) (prefix, local, uri string, ok bool)
}

// DecodeBinaryXML consumes opcodes from the token vocabulary above and
// produces UTF-8 XML (spec §4.6 XMLType paragraph).
func DecodeBinaryXML(raw []byte, tokSuf string, resolver QnameResolver) (string, error) {
	var out strings.Builder
	var lastTag string
	pos := 0

	readLen := func(width int) (int, error) {
		if pos+width > len(raw) {
			return 0, fmt.Errorf("binary-xml: truncated length prefix")
		}
		n := 0
		for i := 0; i < width; i++ {
			n = n<<8 | int(raw[pos+i])
		}
		pos += width
		return n, nil
	}

	for pos < len(raw) {
		op := raw[pos]
		pos++
		switch op {
		case tokHeader:
			// 4-byte version/flags word, informational only.
			pos += 4
		case tokProlog:
			out.WriteString("<?xml version=\"1.0\"?>")
		case tokTagOpen:
			if pos+4 > len(raw) {
				return "", fmt.Errorf("binary-xml: truncated tag-open")
			}
			nmSpcID := uint16(raw[pos])<<8 | uint16(raw[pos+1])
			localID := uint16(raw[pos+2])<<8 | uint16(raw[pos+3])
			pos += 4
			_, local, _, ok := resolver.ResolveQname(tokSuf, nmSpcID, localID)
			if !ok {
				local = fmt.Sprintf("ns%d_%d", nmSpcID, localID)
			}
			lastTag = local
			out.WriteByte('<')
			out.WriteString(local)
			out.WriteByte('>')
		case tokAttribute:
			if pos+4 > len(raw) {
				return "", fmt.Errorf("binary-xml: truncated attribute")
			}
			nmSpcID := uint16(raw[pos])<<8 | uint16(raw[pos+1])
			localID := uint16(raw[pos+2])<<8 | uint16(raw[pos+3])
			pos += 4
			n, err := readLen(1)
			if err != nil {
				return "", err
			}
			if pos+n > len(raw) {
				return "", fmt.Errorf("binary-xml: truncated attribute value")
			}
			val := string(raw[pos : pos+n])
			pos += n
			_, local, _, ok := resolver.ResolveQname(tokSuf, nmSpcID, localID)
			if !ok {
				local = fmt.Sprintf("ns%d_%d", nmSpcID, localID)
			}
			out.WriteString(fmt.Sprintf(" %s=%q", local, val))
		case tokEndTag:
			out.WriteString("</")
			out.WriteString(lastTag)
			out.WriteByte('>')
		case tokTextShort:
			n, err := readLen(1)
			if err != nil {
				return "", err
			}
			if pos+n > len(raw) {
				return "", fmt.Errorf("binary-xml: truncated short text")
			}
			out.Write(raw[pos : pos+n])
			pos += n
		case tokTextLong:
			n, err := readLen(8)
			if err != nil {
				return "", err
			}
			if pos+n > len(raw) {
				return "", fmt.Errorf("binary-xml: truncated long text")
			}
			out.Write(raw[pos : pos+n])
			pos += n
		case tokRepeatLastTag:
			out.WriteByte('<')
			out.WriteString(lastTag)
			out.WriteByte('>')
		case tokEOF:
			return out.String(), nil
		default:
			return "", fmt.Errorf("binary-xml: unknown opcode 0x%02x", op)
		}
	}
	return out.String(), nil
}
