package byterange

import (
	"errors"
	"testing"
)

// TestParseValid covers open-ended, bounded and clamped ranges.
func TestParseValid(t *testing.T) {
	tests := []struct {
		header string
		size   int64
		want   Range
	}{
		{"bytes=0-99", 1000, Range{Start: 0, End: 99, Size: 1000}},
		{"bytes=100-", 1000, Range{Start: 100, End: 999, Size: 1000}},
		{"bytes=999-999", 1000, Range{Start: 999, End: 999, Size: 1000}},
		{"bytes=900-5000", 1000, Range{Start: 900, End: 999, Size: 1000}},
		{" bytes= 10 - 19 ", 1000, Range{Start: 10, End: 19, Size: 1000}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.header, tt.size)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.header, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", tt.header, got, tt.want)
		}
	}
}

// TestParseErrors checks every rejection path maps to its sentinel.
func TestParseErrors(t *testing.T) {
	tests := []struct {
		header string
		size   int64
		want   error
	}{
		{"0-99", 1000, ErrUnit},
		{"items=0-99", 1000, ErrUnit},
		{"bytes=abc-", 1000, ErrSyntax},
		{"bytes=10-x", 1000, ErrSyntax},
		{"bytes=-500", 1000, ErrSyntax},
		{"bytes=5", 1000, ErrSyntax},
		{"bytes=+5-10", 1000, ErrSyntax},
		{"bytes=50-10", 1000, ErrInverted},
		{"bytes=0-1,5-9", 1000, ErrMulti},
		{"bytes=1000-", 1000, ErrUnsatisfiable},
		{"bytes=1000-1200", 1000, ErrUnsatisfiable},
		{"bytes=0-", 0, ErrUnsatisfiable},
	}

	for _, tt := range tests {
		_, err := Parse(tt.header, tt.size)
		if !errors.Is(err, tt.want) {
			t.Fatalf("Parse(%q) error = %v, want %v", tt.header, err, tt.want)
		}
	}
}

// TestRangeHeaders verifies length and Content-Range rendering.
func TestRangeHeaders(t *testing.T) {
	r, err := Parse("bytes=0-99", 1000)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Length() != 100 {
		t.Fatalf("length = %d, want 100", r.Length())
	}
	if got := r.ContentRange(); got != "bytes 0-99/1000" {
		t.Fatalf("content range = %q", got)
	}
	if got := Unsatisfiable(1000); got != "bytes */1000" {
		t.Fatalf("unsatisfiable = %q", got)
	}
}
