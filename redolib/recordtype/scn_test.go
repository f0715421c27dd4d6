package recordtype

import "testing"

func TestScnTextRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   Scn
		want string
	}{
		{"zero", 0, "0x0"},
		{"small", 10, "0xa"},
		{"large", 0x1a2b3c4d5e6f, "0x1a2b3c4d5e6f"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			text, err := c.in.MarshalText()
			if err != nil {
				t.Fatalf("MarshalText: %v", err)
			}
			if string(text) != c.want {
				t.Fatalf("MarshalText(%d) = %q, want %q", c.in, text, c.want)
			}
			var got Scn
			if err := got.UnmarshalText(text); err != nil {
				t.Fatalf("UnmarshalText(%q): %v", text, err)
			}
			if got != c.in {
				t.Fatalf("UnmarshalText(%q) = %d, want %d", text, got, c.in)
			}
		})
	}
}

func TestScnUnmarshalTextAcceptsDecimal(t *testing.T) {
	var s Scn
	if err := s.UnmarshalText([]byte("4096")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if s != 4096 {
		t.Fatalf("got %d, want 4096", s)
	}
}

func TestScnUnmarshalTextRejectsGarbage(t *testing.T) {
	var s Scn
	if err := s.UnmarshalText([]byte("not-a-number")); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
