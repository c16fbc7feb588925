// Package scene composites an isometric map into a depth-sorted list of tile
// graphics. It keeps one graphic per (tile, layer), indexes graphics by screen
// section for culling and patches the render list as single tiles change.
//
// A Scene is not safe for concurrent use; it is driven from one tick loop.
package scene

import (
	"errors"
	"image"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"isotile/internal/atlas"
	"isotile/internal/layers"
	"isotile/internal/log"
	"isotile/internal/maps"
)

// FrameDuration is how long each animation frame is shown.
const FrameDuration = 600 * time.Millisecond

// AnimationFrames is the number of frames an animated sprite cycles through.
const AnimationFrames = 4

// MapSource is the map data the scene composites.
type MapSource interface {
	Size() (width, height int)
	Tile(x, y int) *maps.Tile
	Entities() ([]maps.Item, []maps.NPC)
}

// TextureCache hands out atlas entries. *atlas.Cache implements it.
type TextureCache interface {
	Get(key atlas.Key) (*atlas.Entry, error)
}

// LayerVisibility decides which layers are drawn.
type LayerVisibility interface {
	IsLayerVisible(layer int) bool
}

// AllLayers shows every layer.
type AllLayers struct{}

func (AllLayers) IsLayerVisible(int) bool { return true }

// LayerMask hides the layers set to true.
type LayerMask [layers.Count]bool

func (m *LayerMask) IsLayerVisible(l int) bool {
	return l < 0 || l >= layers.Count || !m[l]
}

// Toggle flips layer l and reports whether it is now visible.
func (m *LayerMask) Toggle(l int) bool {
	if l < 0 || l >= layers.Count {
		return true
	}
	m[l] = !m[l]
	return !m[l]
}

// Scene is a composited map.
type Scene struct {
	cache TextureCache
	src   MapSource
	vis   LayerVisibility
	log   logrus.FieldLogger

	width, height int
	grid          sectionGrid
	graphics      map[int]*TileGraphic
	items         *entityIndex[maps.Item]
	npcs          *entityIndex[maps.NPC]

	camera      Camera
	cameraDirty bool
	visible     []int
	visibleMask []bool

	list     []*TileGraphic
	dirty    bool
	selected int
	frame    int
}

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets the logger used for missing-resource warnings.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scene) {
		s.log = l
	}
}

// WithCamera sets the initial viewport.
func WithCamera(c Camera) Option {
	return func(s *Scene) {
		s.camera = c
	}
}

// New builds a scene for src, creating a graphic for every occupied tile
// layer. Missing sprites are logged and left blank; a fatal atlas error
// aborts construction.
func New(cache TextureCache, src MapSource, vis LayerVisibility, opts ...Option) (*Scene, error) {
	if vis == nil {
		vis = AllLayers{}
	}
	w, h := src.Size()
	s := &Scene{
		cache:       cache,
		src:         src,
		vis:         vis,
		log:         log.Entry("scene"),
		width:       w,
		height:      h,
		grid:        newSectionGrid(w, h),
		graphics:    make(map[int]*TileGraphic),
		items:       newEntityIndex[maps.Item](w),
		npcs:        newEntityIndex[maps.NPC](w),
		cameraDirty: true,
		dirty:       true,
	}
	s.visibleMask = make([]bool, len(s.grid.cells))
	for _, opt := range opts {
		opt(s)
	}

	items, npcs := src.Entities()
	for _, it := range items {
		if s.checkTile(it.X, it.Y) != nil {
			s.log.Warnf("item %d at (%d,%d) is off the map", it.ID, it.X, it.Y)
			continue
		}
		s.items.add(it.X, it.Y, it)
	}
	for _, n := range npcs {
		if s.checkTile(n.X, n.Y) != nil {
			s.log.Warnf("npc %d at (%d,%d) is off the map", n.ID, n.X, n.Y)
			continue
		}
		s.npcs.add(n.X, n.Y, n)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if err := s.initTile(x, y); err != nil {
				s.Destroy()
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Scene) initTile(x, y int) error {
	t := s.src.Tile(x, y)
	for l := 0; l < layers.GraphicCount; l++ {
		if t.Gfx[l] == 0 {
			continue
		}
		if err := s.SetGraphic(x, y, t.Gfx[l], l); err != nil {
			return err
		}
	}
	if t.Spec != nil {
		if err := s.SetSpec(x, y, t.Spec); err != nil {
			return err
		}
	}
	if t.Warp != nil {
		if err := s.SetWarp(x, y, t.Warp); err != nil {
			return err
		}
	}
	if t.Sign != nil {
		if err := s.SetSign(x, y, t.Sign); err != nil {
			return err
		}
	}
	if items := s.items.get(x, y); len(items) > 0 {
		if err := s.SetItems(x, y, items); err != nil {
			return err
		}
	}
	if npcs := s.npcs.get(x, y); len(npcs) > 0 {
		if err := s.SetNPCs(x, y, npcs); err != nil {
			return err
		}
	}
	return nil
}

// Update culls when the camera moved, rebuilds the render list when needed
// and advances the animation frame.
func (s *Scene) Update(now time.Time, _ time.Duration) error {
	if s.graphics == nil {
		return ErrDestroyed
	}
	if s.cameraDirty {
		s.cull()
		s.cameraDirty = false
	}
	if s.dirty {
		s.rebuild()
	}
	s.frame = int(now.UnixMilli()/FrameDuration.Milliseconds()) % AnimationFrames
	return nil
}

// Bounds returns the world rectangle covered by the section grid.
func (s *Scene) Bounds() image.Rectangle {
	return s.grid.extent()
}

// ErrDestroyed is returned by edits and updates on a destroyed scene.
var ErrDestroyed = errors.New("scene is destroyed")

// Destroy releases every atlas entry the scene holds.
func (s *Scene) Destroy() error {
	var errs []error
	for idx, g := range s.graphics {
		if err := g.Entry.DecRef(); err != nil {
			errs = append(errs, err)
		}
		delete(s.graphics, idx)
	}
	s.graphics = nil
	s.list = nil
	return errors.Join(errs...)
}

// SetLayerVisibility replaces the visibility policy. Hosts that mutate their
// policy in place call it again to force a rebuild.
func (s *Scene) SetLayerVisibility(vis LayerVisibility) {
	s.vis = vis
	s.dirty = true
}

// SetSelectedLayer highlights the layer being edited.
func (s *Scene) SetSelectedLayer(l int) {
	if l == s.selected {
		return
	}
	s.selected = l
	s.dirty = true
}

// SelectedLayer returns the highlighted layer.
func (s *Scene) SelectedLayer() int { return s.selected }

// RenderList returns the graphics to paint, back to front. The slice is owned
// by the scene and valid until the next edit or Update.
func (s *Scene) RenderList() []*TileGraphic { return s.list }

// Frame returns the current animation frame.
func (s *Scene) Frame() int { return s.frame }

// Graphic returns the graphic at (x, y, layer), or nil.
func (s *Scene) Graphic(x, y, layer int) *TileGraphic {
	if s.checkTile(x, y) != nil || !layers.Valid(layer) {
		return nil
	}
	return s.graphics[s.index(x, y, layer)]
}

// Len returns the number of live graphics.
func (s *Scene) Len() int { return len(s.graphics) }

// Size returns the map size in tiles.
func (s *Scene) Size() (int, int) { return s.width, s.height }

// TileAt returns the tile whose ground diamond contains world pixel (px, py).
func (s *Scene) TileAt(px, py float64) (x, y int, ok bool) {
	u := (px - 32) / 64
	v := py / 32
	x = int(math.Floor(v + u))
	y = int(math.Floor(v - u))
	return x, y, s.checkTile(x, y) == nil
}
