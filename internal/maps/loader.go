package maps

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"isotile/internal/layers"
)

// Warp is a tile warp. Door 0 is an open warp, 1 a door, anything higher a
// locked door whose key is Door-1.
type Warp struct {
	Map   int `json:"map"`
	X     int `json:"x"`
	Y     int `json:"y"`
	Level int `json:"level,omitempty"`
	Door  int `json:"door,omitempty"`
}

// Sign is a readable sign placed on a tile.
type Sign struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Item is a map item spawn. A non-zero Key marks a chest.
type Item struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	ID     int `json:"id"`
	Amount int `json:"amount,omitempty"`
	Key    int `json:"key,omitempty"`
}

// NPC is an NPC spawn point.
type NPC struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	ID    int `json:"id"`
	Speed int `json:"speed,omitempty"`
}

// MaxDimension is the largest width or height a map file may declare.
const MaxDimension = 4096

// Tile holds everything stored at one map coordinate.
type Tile struct {
	Gfx  [layers.GraphicCount]int
	Spec *int
	Warp *Warp
	Sign *Sign
}

// Map is an in-memory isometric map.
type Map struct {
	Name   string
	Width  int
	Height int
	Items  []Item
	NPCs   []NPC

	tiles []Tile // row-major
}

// New creates an empty map.
func New(name string, width, height int) *Map {
	return &Map{
		Name:   name,
		Width:  width,
		Height: height,
		tiles:  make([]Tile, width*height),
	}
}

// jsonMap is the on-disk JSON format. Only non-empty tiles are stored.
type jsonMap struct {
	Name   string     `json:"name"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Tiles  []jsonTile `json:"tiles"`
	Items  []Item     `json:"items,omitempty"`
	NPCs   []NPC      `json:"npcs,omitempty"`
}

type jsonTile struct {
	X    int   `json:"x"`
	Y    int   `json:"y"`
	Gfx  []int `json:"gfx,omitempty"`
	Spec *int  `json:"spec,omitempty"`
	Warp *Warp `json:"warp,omitempty"`
	Sign *Sign `json:"sign,omitempty"`
}

// LoadMap reads a JSON map file from disk.
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON map.
func Parse(data []byte) (*Map, error) {
	var jm jsonMap
	if err := json.Unmarshal(data, &jm); err != nil {
		return nil, fmt.Errorf("parse map JSON: %w", err)
	}

	if jm.Width <= 0 || jm.Height <= 0 {
		return nil, fmt.Errorf("invalid map size %dx%d", jm.Width, jm.Height)
	}
	if jm.Width > MaxDimension || jm.Height > MaxDimension {
		return nil, fmt.Errorf("map size %dx%d exceeds %d", jm.Width, jm.Height, MaxDimension)
	}

	m := New(jm.Name, jm.Width, jm.Height)
	for i, jt := range jm.Tiles {
		t := m.Tile(jt.X, jt.Y)
		if t == nil {
			return nil, fmt.Errorf("tile %d at (%d,%d) is outside %dx%d", i, jt.X, jt.Y, m.Width, m.Height)
		}
		if len(jt.Gfx) > layers.GraphicCount {
			return nil, fmt.Errorf("tile (%d,%d) has %d gfx layers, max %d", jt.X, jt.Y, len(jt.Gfx), layers.GraphicCount)
		}
		copy(t.Gfx[:], jt.Gfx)
		t.Spec = jt.Spec
		t.Warp = jt.Warp
		t.Sign = jt.Sign
	}

	for _, it := range jm.Items {
		if !m.InBounds(it.X, it.Y) {
			return nil, fmt.Errorf("item %d at (%d,%d) is out of bounds", it.ID, it.X, it.Y)
		}
	}
	for _, n := range jm.NPCs {
		if !m.InBounds(n.X, n.Y) {
			return nil, fmt.Errorf("npc %d at (%d,%d) is out of bounds", n.ID, n.X, n.Y)
		}
	}
	m.Items = jm.Items
	m.NPCs = jm.NPCs

	return m, nil
}

// Marshal encodes the map in its on-disk format.
func (m *Map) Marshal() ([]byte, error) {
	jm := jsonMap{
		Name:   m.Name,
		Width:  m.Width,
		Height: m.Height,
		Items:  m.Items,
		NPCs:   m.NPCs,
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			t := m.Tile(x, y)
			if t.empty() {
				continue
			}
			jt := jsonTile{X: x, Y: y, Spec: t.Spec, Warp: t.Warp, Sign: t.Sign}
			if t.Gfx != ([layers.GraphicCount]int{}) {
				jt.Gfx = trimGfx(t.Gfx)
			}
			jm.Tiles = append(jm.Tiles, jt)
		}
	}
	return json.MarshalIndent(jm, "", "  ")
}

func trimGfx(gfx [layers.GraphicCount]int) []int {
	n := len(gfx)
	for n > 0 && gfx[n-1] == 0 {
		n--
	}
	out := make([]int, n)
	copy(out, gfx[:n])
	return out
}

func (t *Tile) empty() bool {
	return t.Gfx == [layers.GraphicCount]int{} && t.Spec == nil && t.Warp == nil && t.Sign == nil
}

// Size returns the map dimensions in tiles.
func (m *Map) Size() (int, int) {
	return m.Width, m.Height
}

// Entities returns the item and NPC spawn lists.
func (m *Map) Entities() ([]Item, []NPC) {
	return m.Items, m.NPCs
}

// InBounds reports whether (x, y) is on the map.
func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// Tile returns the tile at (x, y), or nil outside the map. The returned tile
// is owned by the map and may be modified in place.
func (m *Map) Tile(x, y int) *Tile {
	if !m.InBounds(x, y) {
		return nil
	}
	return &m.tiles[y*m.Width+x]
}

// Clone returns a deep copy, so an editor can modify it without affecting
// other users of the original.
func (m *Map) Clone() *Map {
	c := New(m.Name, m.Width, m.Height)
	for i, t := range m.tiles {
		c.tiles[i].Gfx = t.Gfx
		if t.Spec != nil {
			spec := *t.Spec
			c.tiles[i].Spec = &spec
		}
		if t.Warp != nil {
			w := *t.Warp
			c.tiles[i].Warp = &w
		}
		if t.Sign != nil {
			s := *t.Sign
			c.tiles[i].Sign = &s
		}
	}
	c.Items = append([]Item(nil), m.Items...)
	c.NPCs = append([]NPC(nil), m.NPCs...)
	return c
}

// LoadMaps scans a directory for *.json files, loads each as a Map,
// and returns them indexed by Name.
func LoadMaps(dir string) (map[string]*Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read maps directory: %w", err)
	}

	allMaps := make(map[string]*Map)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		m, err := LoadMap(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
		if _, exists := allMaps[m.Name]; exists {
			return nil, fmt.Errorf("duplicate map name %q in %s", m.Name, entry.Name())
		}
		allMaps[m.Name] = m
	}

	return allMaps, nil
}

// DefaultMap returns a small grass field used when no map file is available.
func DefaultMap() *Map {
	w, h := 24, 24
	m := New("Default", w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := m.Tile(x, y)
			t.Gfx[layers.Ground] = 1 + (x*7+y*13)%4
			if x == 0 || y == 0 {
				t.Gfx[layers.DownWall] = 1
			}
		}
	}
	return m
}
