package flatten

import (
	"reflect"
	"testing"
)

func encodeRow(coords, sizes []int) int {
	row, radix := 0, 1
	for i, c := range coords {
		row += c * radix
		radix *= sizes[i]
	}
	return row
}

func TestDecodeRow_RoundTrip(t *testing.T) {
	sizes := []int{3, 4, 2}
	total := 3 * 4 * 2

	seen := make(map[[3]int]bool)
	for row := 0; row < total; row++ {
		coords := DecodeRow(row, sizes)
		for i, c := range coords {
			if c < 0 || c >= sizes[i] {
				t.Fatalf("DecodeRow(%d) = %v, coordinate %d out of range", row, coords, i)
			}
		}
		if got := encodeRow(coords, sizes); got != row {
			t.Errorf("encodeRow(DecodeRow(%d)) = %d", row, got)
		}
		seen[[3]int{coords[0], coords[1], coords[2]}] = true
	}
	if len(seen) != total {
		t.Errorf("decoded %d distinct tuples, want %d", len(seen), total)
	}
}

func TestDecodeRow_FirstAxisFastest(t *testing.T) {
	tests := []struct {
		row  int
		want []int
	}{
		{0, []int{0, 0}},
		{1, []int{1, 0}},
		{2, []int{0, 1}},
		{5, []int{1, 2}},
	}
	for _, tt := range tests {
		if got := DecodeRow(tt.row, []int{2, 3}); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("DecodeRow(%d) = %v, want %v", tt.row, got, tt.want)
		}
	}
}

func TestCellKey(t *testing.T) {
	s := Schema{
		ColumnCount: 3,
		AxisSizes:   []int{2, 3},
	}

	tests := []struct {
		row, col int
		want     []int
	}{
		{1, 0, []int{-1, 1}},
		{1, 1, []int{0, 1}},
		{2, 2, []int{1, 2}},
	}
	for _, tt := range tests {
		if got := s.CellKey(tt.row, tt.col); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("CellKey(%d,%d) = %v, want %v", tt.row, tt.col, got, tt.want)
		}
	}

	if got := (Schema{ColumnCount: 1}).CellKey(0, 0); len(got) != 0 {
		t.Errorf("CellKey with no axes = %v, want empty", got)
	}
}
