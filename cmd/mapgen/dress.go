package main

import (
	"fmt"
	"math/rand"

	"isotile/internal/layers"
	"isotile/internal/maps"
)

// look is the graphic stack drawn for a terrain class. Zero entries are empty.
type look struct {
	ground  int
	objects []int // one is picked per tile
	overlay int
	wall    int
	shadow  int
	over2   int
}

// Graphic ids follow the bundled placeholder set: ground ids cycle through
// grass, dirt, stone, sand and water tints, and ids from 24 are animated.
var looks = map[terrain]look{
	grass:     {ground: 5},
	water:     {ground: 24},
	shallows:  {ground: 29},
	sand:      {ground: 8},
	flowers:   {ground: 10, overlay: 3},
	tallGrass: {ground: 15, overlay: 5},
	forest:    {ground: 5, objects: []int{1, 2, 3, 4, 5, 6}, shadow: 1},
	rock:      {ground: 7, objects: []int{12}},
	cliff:     {ground: 12, wall: 2},
	path:      {ground: 11},
	dirt:      {ground: 6},
	bridge:    {ground: 6, over2: 4},
}

// dress turns a terrain field into a map, placing a sign at the centre, a
// warp at each trail end and a few items and NPCs along the trails.
func dress(name string, f *field, ends []point, seed int64) *maps.Map {
	rng := rand.New(rand.NewSource(seed + 200))
	m := maps.New(name, f.w, f.h)

	var trail []point
	for y := 0; y < f.h; y++ {
		for x := 0; x < f.w; x++ {
			t := f.at(x, y)
			lk := looks[t]
			tile := m.Tile(x, y)
			tile.Gfx[layers.Ground] = lk.ground
			if len(lk.objects) > 0 {
				tile.Gfx[layers.Objects] = lk.objects[rng.Intn(len(lk.objects))]
			}
			tile.Gfx[layers.Overlay] = lk.overlay
			tile.Gfx[layers.DownWall] = lk.wall
			tile.Gfx[layers.Shadow] = lk.shadow
			tile.Gfx[layers.Overlay2] = lk.over2
			if t == path {
				trail = append(trail, point{x, y})
			}
		}
	}

	cx, cy := f.center()
	m.Tile(cx, cy).Sign = &maps.Sign{Title: name, Message: fmt.Sprintf("Seed %d", seed)}
	for i, e := range ends {
		m.Tile(e.x, e.y).Warp = &maps.Warp{Map: i + 1, X: e.x, Y: e.y, Door: i % 3}
	}

	rng.Shuffle(len(trail), func(i, j int) { trail[i], trail[j] = trail[j], trail[i] })
	for i, p := range trail[:min(len(trail), 6)] {
		if i%2 == 0 {
			m.Items = append(m.Items, maps.Item{X: p.x, Y: p.y, ID: 1 + i, Amount: 1, Key: i / 4})
		} else {
			m.NPCs = append(m.NPCs, maps.NPC{X: p.x, Y: p.y, ID: i, Speed: 1})
		}
	}
	return m
}
