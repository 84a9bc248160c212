package time

import (
	"testing"
	"time"
)

func TestPtr(t *testing.T) {
	if Ptr(time.Time{}) != nil {
		t.Fatalf("zero time should be nil")
	}
	loc := time.FixedZone("x", 2*3600)
	in := time.Date(2024, 5, 1, 12, 0, 0, 0, loc)
	got := Ptr(in)
	if got == nil || !got.Equal(in) || got.Location() != time.UTC {
		t.Fatalf("Ptr(%v) = %v", in, got)
	}
}
