package layers

import "testing"

// TestDepthFollowsLayerBase checks that at any tile, two layers compare in the
// same order as their base depths, whatever the row and column.
func TestDepthFollowsLayerBase(t *testing.T) {
	coords := []struct{ x, y int }{{0, 0}, {1, 0}, {0, 1}, {17, 3}, {250, 250}, {999, 1}}

	for _, c := range coords {
		for a := 0; a < Count; a++ {
			for b := 0; b < Count; b++ {
				if a == b {
					continue
				}
				da, db := Depth(c.x, c.y, a), Depth(c.x, c.y, b)
				if da == db {
					t.Fatalf("layers %s and %s share depth %v at (%d,%d)", Name(a), Name(b), da, c.x, c.y)
				}
				if (table[a].Depth < table[b].Depth) != (da < db) {
					t.Errorf("(%d,%d): %s vs %s depth order disagrees with base order", c.x, c.y, Name(a), Name(b))
				}
			}
		}
	}
}

func TestDepthRowThenColumn(t *testing.T) {
	// Within a layer, a later row always paints after any column of an earlier row.
	if !(Depth(500, 0, Ground) < Depth(0, 1, Ground)) {
		t.Errorf("column perturbation exceeded the row gap")
	}
	if !(Depth(0, 0, Ground) < Depth(1, 0, Ground)) {
		t.Errorf("columns within a row are not increasing")
	}
}

func TestFile(t *testing.T) {
	tests := []struct {
		layer   int
		want    int
		wantErr bool
	}{
		{Ground, 3, false},
		{Objects, 4, false},
		{RightWall, 6, false},
		{Shadow, 22, false},
		{Overlay2, 5, false},
		{Spec, 0, true},
		{-1, 0, true},
	}

	for _, tt := range tests {
		t.Run(Name(tt.layer), func(t *testing.T) {
			got, err := File(tt.layer)
			if (err != nil) != tt.wantErr {
				t.Fatalf("File(%d) err = %v, wantErr %v", tt.layer, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("File(%d) = %d, want %d", tt.layer, got, tt.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	if !Valid(Ground) || !Valid(NPC) {
		t.Error("expected ground and npc to be valid")
	}
	if Valid(-1) || Valid(Count) {
		t.Error("expected out-of-range layers to be invalid")
	}
	if got := ResourceID(1); got != 101 {
		t.Errorf("ResourceID(1) = %d, want 101", got)
	}
}
