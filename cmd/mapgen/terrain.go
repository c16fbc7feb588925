package main

import (
	"math/rand"

	"github.com/ojrac/opensimplex-go"
)

// terrain is the biome class of one tile before it is dressed with graphics.
type terrain int

const (
	grass terrain = iota
	water
	shallows
	sand
	flowers
	tallGrass
	forest
	rock
	cliff
	path
	dirt
	bridge
)

var terrainNames = [...]string{
	grass: "grass", water: "water", shallows: "shallows", sand: "sand",
	flowers: "flowers", tallGrass: "tall_grass", forest: "forest", rock: "rock",
	cliff: "cliff", path: "path", dirt: "dirt", bridge: "bridge",
}

func (t terrain) String() string { return terrainNames[t] }

func (t terrain) wet() bool { return t == water || t == shallows }

type point struct{ x, y int }

// field is a row-major terrain grid.
type field struct {
	w, h  int
	cells []terrain
}

func (f *field) at(x, y int) terrain     { return f.cells[y*f.w+x] }
func (f *field) set(x, y int, t terrain) { f.cells[y*f.w+x] = t }
func (f *field) inner(x, y int) bool     { return x >= 1 && x < f.w-1 && y >= 1 && y < f.h-1 }
func (f *field) center() (int, int)      { return f.w / 2, f.h / 2 }

func (f *field) count(t terrain) (n int) {
	for _, c := range f.cells {
		if c == t {
			n++
		}
	}
	return n
}

// generateTerrain classifies every tile from elevation and moisture noise,
// rings the map with forest and carves trails from the centre to the edges.
// It returns the trail ends.
func generateTerrain(w, h int, seed int64) (*field, []point) {
	elevation := opensimplex.NewNormalized(seed)
	moisture := opensimplex.NewNormalized(seed + 1)
	detail := opensimplex.NewNormalized(seed + 2)

	f := &field{w: w, h: h, cells: make([]terrain, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x), float64(y)
			f.set(x, y, classify(
				octaves(elevation, fx, fy, 0.02, 4),
				octaves(moisture, fx, fy, 0.03, 3),
				octaves(detail, fx, fy, 0.1, 2),
			))
		}
	}

	// Outermost ring
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if f.inner(x, y) {
				continue
			}
			if octaves(elevation, float64(x), float64(y), 0.02, 4) >= 0.70 {
				f.set(x, y, cliff)
			} else {
				f.set(x, y, forest)
			}
		}
	}

	rng := rand.New(rand.NewSource(seed + 100))
	cx, cy := f.center()
	var ends []point
	for i, n := 0, 2+rng.Intn(2); i < n; i++ {
		end := edgePoint(w, h, rng)
		f.carve(cx, cy, end.x, end.y, rng)
		ends = append(ends, end)
	}
	return f, ends
}

// octaves is fractal noise in [0, 1]: n samples of src, each at twice the
// frequency and half the weight of the one before.
func octaves(src opensimplex.Noise, x, y, freq float64, n int) float64 {
	var sum, weight float64
	for amp := 1.0; n > 0; n-- {
		sum += src.Eval2(x*freq, y*freq) * amp
		weight += amp
		freq *= 2
		amp /= 2
	}
	return sum / weight
}

func classify(elev, moist, det float64) terrain {
	switch {
	case elev < 0.20:
		return water
	case elev < 0.28:
		return shallows
	case elev < 0.32:
		return sand
	case elev < 0.42:
		if moist > 0.6 {
			return flowers
		}
		if moist > 0.45 {
			return tallGrass
		}
		return grass
	case elev < 0.70:
		if moist > 0.55 || (moist > 0.35 && det > 0.65) {
			return forest
		}
		if moist > 0.35 && det > 0.45 {
			return tallGrass
		}
		return grass
	case elev < 0.78:
		return rock
	default:
		return cliff
	}
}

// edgePoint picks a trail end one tile inside a random edge.
func edgePoint(w, h int, rng *rand.Rand) point {
	along := func(limit int) int { return min(max(rng.Intn(limit), 4), limit-5) }
	switch rng.Intn(4) {
	case 0:
		return point{along(w), 1}
	case 1:
		return point{along(w), h - 2}
	case 2:
		return point{w - 2, along(h)}
	default:
		return point{1, along(h)}
	}
}

// carve walks from (x, y) to (tx, ty) with some lateral drift, laying path
// over land, bridges over water and scattering dirt beside the path.
func (f *field) carve(x, y, tx, ty int, rng *rand.Rand) {
	for steps := 0; steps < f.w*f.h && (x != tx || y != ty); steps++ {
		dx, dy := sign(tx-x), sign(ty-y)
		if abs(tx-x) > abs(ty-y) {
			dy = 0
			if rng.Float64() < 0.3 && ty != y {
				dx, dy = 0, sign(ty-y)
			}
		} else {
			dx = 0
			if rng.Float64() < 0.3 && tx != x {
				dx, dy = sign(tx-x), 0
			}
		}
		nx, ny := x+dx, y+dy
		if !f.inner(nx, ny) {
			break
		}

		switch cur := f.at(nx, ny); {
		case cur.wet():
			f.set(nx, ny, bridge)
		case cur != path && cur != bridge:
			f.set(nx, ny, path)
			for _, d := range [4]point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				ax, ay := nx+d.x, ny+d.y
				if f.inner(ax, ay) && (f.at(ax, ay) == grass || f.at(ax, ay) == tallGrass) && rng.Float64() < 0.4 {
					f.set(ax, ay, dirt)
				}
			}
		}
		x, y = nx, ny
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}
