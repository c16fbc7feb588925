package render

import "isotile/internal/scene"

// Viewport maps a terminal onto world space. Each terminal cell covers
// Scale world pixels horizontally and 2*Scale vertically (two half-block
// pixels per row).
type Viewport struct {
	CenterX, CenterY float64 // world pixel at the middle of the map area
	Cols, Rows       int     // map area in terminal cells
	Scale            int
}

// NewViewport sizes a viewport for a terminal, leaving hudRows for the HUD.
func NewViewport(centerX, centerY float64, termW, termH, hudRows, scale int) Viewport {
	if scale < 1 {
		scale = 1
	}
	return Viewport{
		CenterX: centerX,
		CenterY: centerY,
		Cols:    max(termW, 0),
		Rows:    max(termH-hudRows, 0),
		Scale:   scale,
	}
}

// Camera returns the world rectangle the viewport shows.
func (v Viewport) Camera() scene.Camera {
	w := float64(v.Cols * v.Scale)
	h := float64(v.Rows * 2 * v.Scale)
	return scene.Camera{X: v.CenterX - w/2, Y: v.CenterY - h/2, Width: w, Height: h}
}

// ScreenToWorld converts a 0-based cell position to the world pixel at its
// centre.
func (v Viewport) ScreenToWorld(col, row int) (float64, float64) {
	c := v.Camera()
	s := float64(v.Scale)
	return c.X + (float64(col)+0.5)*s, c.Y + (float64(row)+0.5)*2*s
}
