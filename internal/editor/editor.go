// Package editor owns one user's view of a map: a private atlas cache and
// load scheduler, the composited scene, a camera and the paint brush. Hosts
// feed it inputs and tick it once per frame from a single goroutine.
package editor

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"isotile/internal/atlas"
	"isotile/internal/layers"
	"isotile/internal/log"
	"isotile/internal/maps"
	"isotile/internal/scene"
)

// ScrollStep is how far one scroll input moves the camera, in world pixels.
const ScrollStep = 32

// editLayers are the layers the brush can paint: the graphic layers and the
// tile spec.
const editLayers = layers.Spec + 1

// Source provides sprite metadata and pixels.
type Source interface {
	atlas.InfoProvider
	atlas.PixelLoader
}

// Options configures New.
type Options struct {
	PageSize  int
	Evicting  bool
	MaxLoads  int64
	FrameRate func() float64
	Logger    logrus.FieldLogger
}

// Editor is a single-goroutine map editing session.
type Editor struct {
	m     *maps.Map
	cache *atlas.Cache
	sched *atlas.Scheduler
	scene *scene.Scene
	mask  scene.LayerMask
	log   logrus.FieldLogger

	centerX, centerY float64
	viewW, viewH     float64

	layer int
	brush [editLayers]int
	edits int
}

// New builds an editor over m. The map is edited in place; callers that share
// a map between editors pass each one a clone.
func New(m *maps.Map, src Source, opts Options) (*Editor, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Entry("editor")
	}

	var cacheOpts []atlas.Option
	if opts.PageSize > 0 {
		cacheOpts = append(cacheOpts, atlas.WithPageSize(opts.PageSize, opts.PageSize))
	}
	cacheOpts = append(cacheOpts, atlas.WithLogger(logger))

	e := &Editor{m: m, log: logger}
	if opts.Evicting {
		e.cache = atlas.NewEvictingCache(src, cacheOpts...)
	} else {
		e.cache = atlas.NewCache(src, cacheOpts...)
	}

	schedOpts := []atlas.SchedulerOption{atlas.WithSchedulerLogger(logger)}
	if opts.MaxLoads > 0 {
		schedOpts = append(schedOpts, atlas.WithMaxConcurrent(opts.MaxLoads))
	}
	if opts.FrameRate != nil {
		schedOpts = append(schedOpts, atlas.WithFrameRate(opts.FrameRate))
	}
	e.sched = atlas.NewScheduler(e.cache, src, schedOpts...)

	s, err := scene.New(e.cache, m, &e.mask, scene.WithLogger(logger))
	if err != nil {
		e.sched.Close()
		return nil, fmt.Errorf("compose %s: %w", m.Name, err)
	}
	e.scene = s

	w, h := m.Size()
	e.centerX, e.centerY = tileCenter(w/2, h/2)
	for l := range e.brush {
		e.brush[l] = 1
	}
	e.brush[layers.Spec] = 0
	return e, nil
}

func tileCenter(x, y int) (float64, float64) {
	return float64(32*x - 32*y + 32), float64(16*x + 16*y + 16)
}

// Apply performs one input. It reports whether the input asked to quit.
// Edit failures other than off-map painting are returned.
func (e *Editor) Apply(in Input) (quit bool, err error) {
	switch in.Action {
	case ActionUp:
		e.centerY -= ScrollStep
	case ActionDown:
		e.centerY += ScrollStep
	case ActionLeft:
		e.centerX -= ScrollStep
	case ActionRight:
		e.centerX += ScrollStep
	case ActionQuit:
		return true, nil
	case ActionToggleLayer:
		e.toggle(in.Layer)
		if in.Layer == layers.Spec {
			e.mask[layers.SpecOverlay] = e.mask[layers.Spec]
		}
		e.scene.SetLayerVisibility(&e.mask)
	case ActionToggleEntities:
		hide := !e.mask[layers.Warp]
		for l := layers.Warp; l < layers.Count; l++ {
			e.mask[l] = hide
		}
		e.scene.SetLayerVisibility(&e.mask)
	case ActionNextLayer:
		e.layer = (e.layer + 1) % editLayers
		e.scene.SetSelectedLayer(e.layer)
	case ActionBrushPrev:
		if e.brush[e.layer] > e.minBrush() {
			e.brush[e.layer]--
		}
	case ActionBrushNext:
		e.brush[e.layer]++
	case ActionPaint:
		return false, e.paint(e.brush[e.layer])
	case ActionErase:
		id := 0
		if e.layer == layers.Spec {
			id = scene.NoSpec
		}
		return false, e.paint(id)
	}
	return false, nil
}

func (e *Editor) toggle(l int) {
	if l >= 0 && l < layers.Count {
		e.mask.Toggle(l)
	}
}

func (e *Editor) minBrush() int {
	if e.layer == layers.Spec {
		return 0
	}
	return 1
}

func (e *Editor) paint(id int) error {
	x, y, ok := e.Cursor()
	if !ok {
		return nil
	}
	if err := e.scene.Draw(x, y, id, e.layer); err != nil {
		return fmt.Errorf("paint %s at (%d,%d): %w", layers.Name(e.layer), x, y, err)
	}
	e.edits++
	e.log.Debugf("painted %d on %s at (%d,%d)", id, layers.Name(e.layer), x, y)
	return nil
}

// SetViewSize sets the world size of the area the host shows.
func (e *Editor) SetViewSize(w, h float64) {
	e.viewW, e.viewH = w, h
}

// Camera returns the world rectangle centred on the editor's focus.
func (e *Editor) Camera() scene.Camera {
	return scene.Camera{
		X:      e.centerX - e.viewW/2,
		Y:      e.centerY - e.viewH/2,
		Width:  e.viewW,
		Height: e.viewH,
	}
}

// Tick drains the load scheduler and updates the scene for now.
func (e *Editor) Tick(now time.Time, delta time.Duration) (atlas.TickReport, error) {
	r := e.sched.Tick()
	e.scene.SetCamera(e.Camera())
	return r, e.scene.Update(now, delta)
}

// Center returns the world pixel the camera is centred on.
func (e *Editor) Center() (float64, float64) { return e.centerX, e.centerY }

// Cursor returns the tile under the camera centre.
func (e *Editor) Cursor() (x, y int, ok bool) {
	return e.scene.TileAt(e.centerX, e.centerY)
}

// Layer returns the layer the brush paints.
func (e *Editor) Layer() int { return e.layer }

// Brush returns the id painted on the current layer.
func (e *Editor) Brush() int { return e.brush[e.layer] }

// Edits returns how many paint or erase inputs changed the map.
func (e *Editor) Edits() int { return e.edits }

// VisibleMarks renders the layer mask: the digit of each shown edit layer or
// '.' when hidden, then 'e' or '.' for the entity layers.
func (e *Editor) VisibleMarks() string {
	var sb strings.Builder
	for l := 0; l < editLayers; l++ {
		if e.mask[l] {
			sb.WriteByte('.')
		} else {
			sb.WriteByte(byte('0' + l))
		}
	}
	if e.mask[layers.Warp] {
		sb.WriteByte('.')
	} else {
		sb.WriteByte('e')
	}
	return sb.String()
}

func (e *Editor) Map() *maps.Map              { return e.m }
func (e *Editor) Scene() *scene.Scene         { return e.scene }
func (e *Editor) Cache() *atlas.Cache         { return e.cache }
func (e *Editor) Scheduler() *atlas.Scheduler { return e.sched }

// Close stops outstanding loads and releases the scene's atlas entries.
func (e *Editor) Close() error {
	e.sched.Close()
	if err := e.scene.Destroy(); err != nil {
		return fmt.Errorf("release scene: %w", err)
	}
	return nil
}
