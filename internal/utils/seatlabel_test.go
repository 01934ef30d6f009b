package utils

import "testing"

func TestRowLabelRoundTrip(t *testing.T) {
	tests := []struct {
		index int
		label string
	}{
		{0, "A"},
		{2, "C"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}
	for _, tc := range tests {
		if got := RowLabel(tc.index); got != tc.label {
			t.Errorf("RowLabel(%d) = %q, want %q", tc.index, got, tc.label)
		}
		got, ok := RowIndex(tc.label)
		if !ok || got != tc.index {
			t.Errorf("RowIndex(%q) = %d, %v, want %d", tc.label, got, ok, tc.index)
		}
	}
}

func TestRowIndexRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", " ", "A1", "Ä"} {
		if _, ok := RowIndex(in); ok {
			t.Errorf("RowIndex(%q) accepted", in)
		}
	}
	if RowLabel(-1) != "" {
		t.Error("RowLabel(-1) should be empty")
	}
}

func TestSeatLabel(t *testing.T) {
	if got := SeatLabel(2, 7); got != "C7" {
		t.Fatalf("SeatLabel(2, 7) = %q, want C7", got)
	}
}
