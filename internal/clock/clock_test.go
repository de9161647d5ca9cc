package clock

import (
	"testing"
	"time"
)

func TestManual_Advance(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewManual(start)

	if got := m.Now(); !got.Equal(start) {
		t.Fatalf("expected %v, got %v", start, got)
	}
	m.Advance(90 * time.Second)
	if got := m.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("expected clock advanced by 90s, got %v", got)
	}
}

func TestFixed_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	c := NewFixed(time.Date(2025, 3, 1, 11, 0, 0, 0, loc))
	if c.Now().Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", c.Now().Location())
	}
}
