package coltype

import (
	"strings"
)

// DecodeNumber decodes Oracle's internal NUMBER byte encoding into a decimal
// string. This is offered as a convenience utility for sinks (spec §6.2:
// "decoding ... is offered as a utility, not required") — the core itself
// never needs to interpret column bytes, it only carries them.
//
// Encoding: byte 0 is a biased, sign-folded base-100 exponent; positive
// numbers have bytes[1:] as base-100 digits biased by +1, negative numbers
// have them biased as (101-digit) and are optionally terminated by 0x66.
func DecodeNumber(b []byte) (string, error) {
	if len(b) == 0 {
		return "0", nil
	}
	if len(b) == 1 && b[0] == 0x80 {
		return "0", nil
	}

	neg := b[0] < 0x80
	var exp int
	digits := b[1:]
	if neg {
		exp = int(^b[0]&0x7f) - 65
		if len(digits) > 0 && digits[len(digits)-1] == 0x66 {
			digits = digits[:len(digits)-1]
		}
	} else {
		exp = int(b[0]&0x7f) - 65
	}

	mantissa := make([]byte, 0, len(digits)*2)
	for _, d := range digits {
		var v int
		if neg {
			v = 101 - int(d)
		} else {
			v = int(d) - 1
		}
		if v < 0 {
			v = 0
		}
		if v > 99 {
			v = 99
		}
		mantissa = append(mantissa, byte(v/10+'0'), byte(v%10+'0'))
	}
	if len(mantissa) == 0 {
		mantissa = []byte("0")
	}

	// exp counts base-100 digit groups before the decimal point, so the
	// implied decimal point sits at (exp+1)*2 decimal digits from the left.
	pointPos := (exp + 1) * 2

	var sb strings.Builder
	switch {
	case pointPos <= 0:
		sb.WriteString("0.")
		for i := 0; i < -pointPos; i++ {
			sb.WriteByte('0')
		}
		sb.Write(mantissa)
	case pointPos >= len(mantissa):
		sb.Write(mantissa)
		for i := 0; i < pointPos-len(mantissa); i++ {
			sb.WriteByte('0')
		}
	default:
		sb.Write(mantissa[:pointPos])
		sb.WriteByte('.')
		sb.Write(mantissa[pointPos:])
	}

	out := sb.String()
	if strings.Contains(out, ".") {
		out = strings.TrimRight(out, "0")
		out = strings.TrimSuffix(out, ".")
	}
	out = strings.TrimLeft(out, "0")
	if out == "" {
		return "0", nil
	}
	if out[0] == '.' {
		out = "0" + out
	}
	if neg {
		out = "-" + out
	}
	return out, nil
}
