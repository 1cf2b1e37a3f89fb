package core

import "testing"

func TestLinePositionTable(t *testing.T) {
	testCases := []struct {
		bits uint16
		want float32
	}{
		{0x80, 7},
		{0x01, -7},
		{0x18, 0},
		{0x10, 1},
		{0x08, -1},
		{0xC0, 6},
		{0x1C, -1},
		{0x38, 1},
		{0x03, -6},
		{0x07, -5},
	}

	for _, tc := range testCases {
		bits := tc.bits
		l := NewLineArray(func() uint16 { return bits })
		if got := l.Position(); got != tc.want {
			t.Errorf("0x%02X: expected %f, got %f", tc.bits, tc.want, got)
		}
	}
}

func TestLinePositionSticky(t *testing.T) {
	bits := uint16(0x20)
	l := NewLineArray(func() uint16 { return bits })

	if got := l.Position(); got != 3 {
		t.Fatalf("Expected 3, got %f", got)
	}
	for _, unknown := range []uint16{0x00, 0xFF, 0xF0, 0x81} {
		bits = unknown
		if got := l.Position(); got != 3 {
			t.Errorf("0x%02X: expected the last valid estimate 3, got %f", unknown, got)
		}
	}
	if l.Last() != 0x81 {
		t.Errorf("Expected last sample 0x81, got 0x%02X", l.Last())
	}
}

func TestLineSeparated(t *testing.T) {
	bits := uint16(0x81)
	l := NewLineArray(func() uint16 { return bits })
	l.Separated = true

	if got := l.Position(); got != separatedOutput {
		t.Errorf("Expected %f on the inner track, got %f", separatedOutput, got)
	}
	l.OuterTrack = true
	if got := l.Position(); got != 0 {
		t.Errorf("Expected 0 on the outer track, got %f", got)
	}
}

func TestLineBitmaskMasked(t *testing.T) {
	l := NewLineArray(func() uint16 { return 0xFF18 })
	if got := l.ReadBitmask(); got != 0x18 {
		t.Errorf("Expected 0x18, got 0x%04X", got)
	}
}

func TestIsStopMark(t *testing.T) {
	for _, m := range []uint16{0x1F, 0x3E, 0x7C, 0xF8, 0x3F, 0x7E, 0xFC, 0x7F, 0xFE, 0xFF} {
		if !IsStopMark(m) {
			t.Errorf("0x%02X should be a stop mark", m)
		}
	}
	for _, m := range []uint16{0x00, 0x18, 0x0F, 0xF0, 0xDB} {
		if IsStopMark(m) {
			t.Errorf("0x%02X should not be a stop mark", m)
		}
	}
}

func TestRuns(t *testing.T) {
	testCases := []struct {
		bits uint16
		want int
	}{
		{0x00, 0}, {0x18, 1}, {0x81, 2}, {0xA5, 4}, {0xFF, 1},
	}
	for _, tc := range testCases {
		if got := runs(tc.bits); got != tc.want {
			t.Errorf("runs(0x%02X): expected %d, got %d", tc.bits, tc.want, got)
		}
	}
}
