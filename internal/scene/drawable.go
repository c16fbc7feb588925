package scene

import (
	"image"
	"time"

	"isotile/internal/atlas"
)

// Drawable is what a host render loop drives each frame.
type Drawable interface {
	Update(now time.Time, delta time.Duration) error
	Bounds() image.Rectangle
	Destroy() error
}

var _ Drawable = (*Scene)(nil)

// TileGraphic is one positioned layer graphic of one tile. It holds a
// reference on its atlas entry for as long as it exists.
type TileGraphic struct {
	X, Y  int
	Layer int
	Depth float64
	Alpha float64
	Entry *atlas.Entry

	index    int
	sections []int
	drawn    bool
}

// Index returns the graphic's slot, (y*width + x)*layers.Count + layer.
func (g *TileGraphic) Index() int { return g.index }

// Width returns the pixel width of one frame of the backing sprite.
func (g *TileGraphic) Width() int { return g.Entry.Width() }

// Height returns the pixel height of one frame of the backing sprite.
func (g *TileGraphic) Height() int { return g.Entry.Height() }

// Bounds returns the graphic's world-space rectangle.
func (g *TileGraphic) Bounds() image.Rectangle {
	return image.Rect(g.X, g.Y, g.X+g.Width(), g.Y+g.Height())
}

// Source returns the page buffer and rectangle holding animation frame f.
// The pixels may still be blank while the scheduler is loading them.
func (g *TileGraphic) Source(f int) (*image.RGBA, image.Rectangle) {
	p := g.Entry.Page()
	if p == nil {
		return nil, image.Rectangle{}
	}
	return p.Image(), g.Entry.Frame(f)
}
