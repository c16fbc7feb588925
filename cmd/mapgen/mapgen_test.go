package main

import (
	"bytes"
	"testing"

	"github.com/ojrac/opensimplex-go"

	"isotile/internal/assets"
	"isotile/internal/atlas"
	"isotile/internal/layers"
	"isotile/internal/maps"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"100x80", 100, 80, false},
		{"10x10", 10, 10, false},
		{"9x20", 0, 0, true},
		{"20x4097", 0, 0, true},
		{"40", 0, 0, true},
		{"axb", 0, 0, true},
	}
	for _, tt := range tests {
		w, h, err := parseSize(tt.in)
		if (err != nil) != tt.wantErr || w != tt.w || h != tt.h {
			t.Errorf("parseSize(%q) = %d, %d, %v", tt.in, w, h, err)
		}
	}
}

func TestOctaves(t *testing.T) {
	tests := []struct {
		freq float64
		n    int
	}{
		{0.02, 1},
		{0.02, 4},
		{0.1, 2},
		{1.5, 6},
	}
	for _, tt := range tests {
		src := opensimplex.NewNormalized(9)
		for y := 0.0; y < 50; y += 3 {
			for x := 0.0; x < 50; x += 3 {
				v := octaves(src, x, y, tt.freq, tt.n)
				if v < 0 || v > 1 {
					t.Fatalf("octaves(%v, %v, %v, %d) = %v, outside [0, 1]", x, y, tt.freq, tt.n, v)
				}
				if again := octaves(opensimplex.NewNormalized(9), x, y, tt.freq, tt.n); again != v {
					t.Fatalf("same seed gave %v then %v", v, again)
				}
			}
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	gen := func() []byte {
		f, ends := generateTerrain(40, 30, 7)
		data, err := dress("Test", f, ends, 7).Marshal()
		if err != nil {
			t.Fatal(err)
		}
		return data
	}
	if !bytes.Equal(gen(), gen()) {
		t.Error("same seed produced different maps")
	}
}

func TestGeneratedMapLoads(t *testing.T) {
	f, ends := generateTerrain(40, 30, 42)
	if len(ends) < 2 {
		t.Fatalf("got %d trails, want at least 2", len(ends))
	}
	for x := 0; x < f.w; x++ {
		if top := f.at(x, 0); top != forest && top != cliff {
			t.Errorf("edge tile (%d,0) is %v", x, top)
		}
	}

	data, err := dress("Test", f, ends, 42).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	m, err := maps.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	src := assets.NewSynthetic()
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			for l, gfx := range m.Tile(x, y).Gfx {
				if gfx == 0 {
					continue
				}
				file, _ := layers.File(l)
				if _, ok := src.Info(atlas.Key{File: file, Resource: layers.ResourceID(gfx)}); !ok {
					t.Fatalf("tile (%d,%d) %s gfx %d has no placeholder sprite", x, y, layers.Name(l), gfx)
				}
			}
		}
	}
	if m.Tile(20, 15).Sign == nil {
		t.Error("no sign at the centre")
	}
}
