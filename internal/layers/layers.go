package layers

import "fmt"

// Layer indices. The first nine are graphic layers stored in the map's tile
// gfx array; the rest are derived from tile specs and entities.
const (
	Ground = iota
	Objects
	Overlay
	DownWall
	RightWall
	Roof
	Top
	Shadow
	Overlay2
	Spec
	SpecOverlay
	Warp
	Sign
	Item
	NPC

	// Count is the number of compositing layers.
	Count
)

// GraphicCount is the number of layers backed by a tile's gfx array.
const GraphicCount = 9

const (
	// TileGap separates consecutive tiles within a row.
	TileGap = 0.00000001
	// RowGap separates consecutive rows.
	RowGap = 0.001
)

// Reserved file ids for sprites that do not come from a gfx file.
const (
	SpecFile   = 1000
	EntityFile = 1001
)

// Entity sprite resource ids within EntityFile.
const (
	EntityWarp = iota + 1
	EntityDoor
	EntityLockedDoor
	EntitySign
	EntityItems
	EntityChest
	EntityNPC
)

// Info describes how a layer's graphics are positioned and composited.
type Info struct {
	Name         string
	XOff, YOff   int
	Alpha        float64
	Centered     bool
	BottomOrigin bool
	Depth        float64
}

var table = [Count]Info{
	{"ground", 0, 0, 1.00, false, false, -3.0 + TileGap*1},
	{"objects", -2, -2, 1.00, true, true, 0.0 + TileGap*2},
	{"overlay", -2, -2, 1.00, true, true, 0.0 + TileGap*4},
	{"down wall", 0, -1, 1.00, false, true, 0.0 + TileGap*3},
	{"right wall", 32, -1, 1.00, false, true, -RowGap + TileGap*6},
	{"roof", 0, -64, 1.00, false, true, 0.0 + TileGap*5},
	{"top", 0, -32, 1.00, false, true, 0.0 + TileGap*1},
	{"shadow", -24, -12, 0.20, false, false, -1.0 + TileGap*1},
	{"overlay 2", -2, -2, 1.00, true, true, 1.0 + TileGap*1},
	{"tile spec", 0, 0, 0.25, false, false, -2.0 + TileGap*1},
	{"tile spec overlay", 0, 0, 0.25, false, false, 3.0 + TileGap*1},
	{"warp", 0, 0, 0.50, false, true, 4.0 + TileGap*1},
	{"sign", 0, 0, 0.50, false, true, 4.0 + TileGap*2},
	{"item", 0, 0, 0.50, false, true, 4.0 + TileGap*3},
	{"npc", 0, 0, 0.50, false, true, 4.0 + TileGap*4},
}

// gfx file per graphic layer
var files = [GraphicCount]int{3, 4, 5, 6, 6, 7, 3, 22, 5}

// Valid reports whether l is a compositing layer index.
func Valid(l int) bool {
	return l >= 0 && l < Count
}

// Get returns the layout of layer l. It panics on an invalid index; callers
// validate draw requests before reaching the table.
func Get(l int) Info {
	return table[l]
}

// File returns the gfx file id backing graphic layer l.
func File(l int) (int, error) {
	if l < 0 || l >= GraphicCount {
		return 0, fmt.Errorf("layer %d has no gfx file", l)
	}
	return files[l], nil
}

// ResourceID maps a map-stored graphic id to its resource id in the gfx file.
func ResourceID(gfx int) int {
	return gfx + 100
}

// Depth returns the paint-order key for layer l at tile (x, y).
func Depth(x, y, l int) float64 {
	return table[l].Depth + float64(y)*RowGap + float64(x)*Count*TileGap
}

// Name returns the layer's display name.
func Name(l int) string {
	if !Valid(l) {
		return fmt.Sprintf("layer(%d)", l)
	}
	return table[l].Name
}
