package coltype

import "testing"

func TestDecodeNumber(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"zero", []byte{0x80}, "0"},
		// Oracle encodes 10 as exponent byte 0xC1 (65+1 biased, positive)
		// followed by a single base-100 digit byte 0x0B (11 = 10+1).
		{"ten", []byte{0xc1, 0x0b}, "10"},
		{"one", []byte{0xc1, 0x02}, "1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := DecodeNumber(c.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Fatalf("DecodeNumber(%x) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}
