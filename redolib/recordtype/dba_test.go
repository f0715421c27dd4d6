package recordtype

import "testing"

func TestRowidTextRoundTrip(t *testing.T) {
	cases := []Rowid{
		{DataObj: 0, Dba: 0, Slot: 0},
		{DataObj: 1234, Dba: NewDba(1, 500), Slot: 7},
	}
	for _, in := range cases {
		text, err := in.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var got Rowid
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if got != in {
			t.Fatalf("UnmarshalText(%q) = %+v, want %+v", text, got, in)
		}
	}
}

func TestRowidUnmarshalTextRejectsMalformed(t *testing.T) {
	var r Rowid
	if err := r.UnmarshalText([]byte("not-a-rowid")); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
