package scene

import (
	"image"
	"slices"
	"testing"
)

func TestSectionGridSize(t *testing.T) {
	tests := []struct {
		w, h       int
		cols, rows int
	}{
		{4, 4, 1, 1},
		{16, 16, 4, 2},
		{5, 9, 2, 2},
		{100, 3, 25, 1},
	}
	for _, tt := range tests {
		g := newSectionGrid(tt.w, tt.h)
		if g.cols != tt.cols || g.rows != tt.rows {
			t.Errorf("%dx%d map: grid %dx%d, want %dx%d", tt.w, tt.h, g.cols, g.rows, tt.cols, tt.rows)
		}
		if len(g.cells) != tt.cols*tt.rows {
			t.Errorf("%dx%d map: %d cells", tt.w, tt.h, len(g.cells))
		}
	}
}

func TestSectionOverlapping(t *testing.T) {
	g := newSectionGrid(16, 16) // 4x2 cells, x offset 512

	tests := []struct {
		name string
		r    image.Rectangle
		want []int
	}{
		{"inside one cell", image.Rect(-500, 10, -400, 50), []int{0}},
		{"right edge on a boundary", image.Rect(-320, 10, -256, 50), []int{0, 1}},
		{"spans rows", image.Rect(32, 240, 96, 272), []int{2, 6}},
		{"clamped above and left", image.Rect(-900, -80, -500, -10), []int{0}},
		{"clamped below and right", image.Rect(500, 600, 700, 700), []int{7}},
		{"whole map", image.Rect(-512, 0, 512, 512), []int{0, 1, 2, 3, 4, 5, 6, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.overlapping(tt.r); !slices.Equal(got, tt.want) {
				t.Errorf("overlapping(%v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestSectionAddRemove(t *testing.T) {
	g := newSectionGrid(16, 16)
	cells := g.overlapping(image.Rect(-10, 200, 10, 300))
	g.add(42, cells)
	for i, c := range g.cells {
		_, in := c[42]
		if in != slices.Contains(cells, i) {
			t.Errorf("cell %d membership = %v", i, in)
		}
	}
	g.remove(42, cells)
	for i, c := range g.cells {
		if len(c) != 0 {
			t.Errorf("cell %d not empty after remove", i)
		}
	}
}
