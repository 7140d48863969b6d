package monitor

import (
	"testing"
)

func TestComparePostIDs(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"1", "2", -1},
		{"2", "1", 1},
		{"5", "5", 0},
		// Different digit counts: naive string compare would get these wrong.
		{"99", "100", -1},
		{"100", "99", 1},
		{"9", "10", -1},
		// Leading zeros.
		{"007", "7", 0},
		{"010", "9", 1},
		// Ids beyond 64-bit integer range.
		{"123456789012345678901", "123456789012345678902", -1},
		{"99999999999999999999", "100000000000000000000", -1},
		{"1866052975133380609", "1866052975133380610", -1},
	}

	for _, tt := range tests {
		if got := ComparePostIDs(tt.a, tt.b); got != tt.expected {
			t.Errorf("ComparePostIDs(%q, %q) = %d, expected %d", tt.a, tt.b, got, tt.expected)
		}
	}
}
