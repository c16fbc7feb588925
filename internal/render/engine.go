// Package render rasterises a scene's render list into a terminal using
// 24-bit colour half-block cells, emitting only the cells that changed.
package render

import (
	"fmt"
	"image"
	"math"

	"isotile/internal/atlas"
	"isotile/internal/scene"
)

const HUDRows = 3

// Cell represents a single terminal cell with full RGB color.
type Cell struct {
	Ch            rune
	FgR, FgG, FgB uint8
	BgR, BgG, BgB uint8
	Bold          bool
}

var sentinel = Cell{Ch: '\x00', FgR: 255, BgB: 255, Bold: true}

// background is the colour behind the map.
var background = [3]uint8{10, 10, 15}

// HUD is the status shown under the map.
type HUD struct {
	MapName  string
	Layer    string
	Brush    int
	Visible  string // one mark per layer
	TileX    int
	TileY    int
	OnMap    bool
	Atlas    atlas.Stats
	FPS      float64
	Sessions int
}

// Frame is everything needed to draw one frame.
type Frame struct {
	Graphics  []*scene.TileGraphic
	AnimFrame int
	View      Viewport
	HUD       HUD
}

// Engine is a per-session double-buffer diff renderer.
type Engine struct {
	width, height int
	current       [][]Cell
	next          [][]Cell
	canvas        *image.RGBA
	firstFrame    bool
}

// NewEngine creates a renderer for the given terminal dimensions.
func NewEngine(width, height int) *Engine {
	e := &Engine{}
	e.Resize(width, height)
	return e
}

// Resize adjusts the renderer for a new terminal size.
func (e *Engine) Resize(width, height int) {
	e.width = width
	e.height = height
	e.current = e.makeBuffer(sentinel)
	e.next = e.makeBuffer(Cell{})
	e.canvas = image.NewRGBA(image.Rect(0, 0, width, max(height-HUDRows, 0)*2))
	e.firstFrame = true
}

func (e *Engine) makeBuffer(fill Cell) [][]Cell {
	buf := make([][]Cell, e.height)
	for y := 0; y < e.height; y++ {
		buf[y] = make([]Cell, e.width)
		for x := 0; x < e.width; x++ {
			buf[y][x] = fill
		}
	}
	return buf
}

// Render produces the ANSI byte output for the frame.
func (e *Engine) Render(f Frame, termW, termH int) string {
	if termW != e.width || termH != e.height {
		e.Resize(termW, termH)
	}

	e.paint(f)

	rows := e.canvas.Rect.Dy() / 2
	for y := 0; y < rows; y++ {
		for x := 0; x < e.width; x++ {
			top := e.canvas.RGBAAt(x, 2*y)
			bottom := e.canvas.RGBAAt(x, 2*y+1)
			e.next[y][x] = Cell{
				Ch:  HalfBlock,
				FgR: top.R, FgG: top.G, FgB: top.B,
				BgR: bottom.R, BgG: bottom.G, BgB: bottom.B,
			}
		}
	}
	e.drawCursor(rows)
	e.drawHUD(f.HUD)

	// Diff current vs next, emit only changed cells
	w := newCellWriter()
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			if nc := e.next[y][x]; e.firstFrame || nc != e.current[y][x] {
				w.put(y, x, nc)
			}
		}
	}
	out := w.String()

	e.current, e.next = e.next, e.current
	e.firstFrame = false

	return out
}

// paint composites the render list back to front into the canvas, sampling
// each canvas pixel at the centre of the world area it covers.
func (e *Engine) paint(f Frame) {
	pix := e.canvas.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = background[0], background[1], background[2], 0xFF
	}

	cam := f.View.Camera()
	scale := float64(f.View.Scale)
	b := e.canvas.Rect

	for _, g := range f.Graphics {
		src, r := g.Source(f.AnimFrame)
		if src == nil || g.Alpha <= 0 {
			continue
		}
		// Canvas pixels whose sample point may fall inside the graphic.
		x0 := max(b.Min.X, floor((float64(g.X)-cam.X)/scale)-1)
		x1 := min(b.Max.X, floor((float64(g.X+r.Dx())-cam.X)/scale)+1)
		y0 := max(b.Min.Y, floor((float64(g.Y)-cam.Y)/scale)-1)
		y1 := min(b.Max.Y, floor((float64(g.Y+r.Dy())-cam.Y)/scale)+1)

		for cy := y0; cy < y1; cy++ {
			sy := floor(cam.Y+(float64(cy)+0.5)*scale) - g.Y
			if sy < 0 || sy >= r.Dy() {
				continue
			}
			for cx := x0; cx < x1; cx++ {
				sx := floor(cam.X+(float64(cx)+0.5)*scale) - g.X
				if sx < 0 || sx >= r.Dx() {
					continue
				}
				s := src.PixOffset(r.Min.X+sx, r.Min.Y+sy)
				if src.Pix[s+3] == 0 {
					continue
				}
				blend(pix[e.canvas.PixOffset(cx, cy):], src.Pix[s:s+3], g.Alpha)
			}
		}
	}
}

func floor(v float64) int {
	return int(math.Floor(v))
}

// blend mixes an RGB source over dst with opacity a (clamped to 1).
func blend(dst, src []uint8, a float64) {
	if a >= 1 {
		dst[0], dst[1], dst[2] = src[0], src[1], src[2]
		return
	}
	for i := 0; i < 3; i++ {
		dst[i] = uint8(float64(dst[i])*(1-a) + float64(src[i])*a + 0.5)
	}
}

// drawCursor marks the cell at the centre of the map area.
func (e *Engine) drawCursor(rows int) {
	if rows == 0 || e.width == 0 {
		return
	}
	c := &e.next[rows/2][e.width/2]
	c.Ch = '+'
	c.FgR, c.FgG, c.FgB = 255, 255, 255
	c.Bold = true
}

func (e *Engine) drawHUD(h HUD) {
	hudY := e.height - HUDRows
	if hudY < 0 {
		return
	}
	bgR, bgG, bgB := uint8(15), uint8(18), uint8(30)

	for x := 0; x < e.width; x++ {
		t := uint8(60 - x*40/max(e.width, 1))
		e.next[hudY][x] = Cell{
			Ch: '━', FgR: 40 + t, FgG: 70 + t, FgB: 90 + t,
			BgR: bgR, BgG: bgG, BgB: bgB,
		}
	}
	for row := 1; row < HUDRows; row++ {
		for x := 0; x < e.width; x++ {
			e.next[hudY+row][x] = Cell{Ch: ' ', BgR: bgR, BgG: bgG, BgB: bgB}
		}
	}

	row1 := hudY + 1
	col := e.writeText(row1, 1, e.width, h.MapName, 220, 220, 235, bgR, bgG, bgB, true)
	col = e.writeText(row1, col, e.width, "  │  ", 60, 65, 85, bgR, bgG, bgB, false)
	tile := "off map"
	if h.OnMap {
		tile = fmt.Sprintf("%d,%d", h.TileX, h.TileY)
	}
	col = e.writeText(row1, col, e.width, tile, 180, 180, 195, bgR, bgG, bgB, false)
	col = e.writeText(row1, col, e.width, "  │  ", 60, 65, 85, bgR, bgG, bgB, false)
	col = e.writeText(row1, col, e.width, fmt.Sprintf("%s #%d", h.Layer, h.Brush), 100, 220, 220, bgR, bgG, bgB, true)
	col = e.writeText(row1, col, e.width, "  │  ", 60, 65, 85, bgR, bgG, bgB, false)
	col = e.writeText(row1, col, e.width, h.Visible, 180, 180, 195, bgR, bgG, bgB, false)
	col = e.writeText(row1, col, e.width, "  │  ", 60, 65, 85, bgR, bgG, bgB, false)
	e.writeText(row1, col, e.width,
		fmt.Sprintf("atlas %dp %d/%d  %.0f fps  %d online", h.Atlas.Pages, h.Atlas.Loaded, h.Atlas.Entries, h.FPS, h.Sessions),
		130, 130, 145, bgR, bgG, bgB, false)

	e.writeText(hudY+2, 1, e.width, "←↑↓→/WASD Scroll  0-9 Toggle layer  L Layer  [ ] Brush  Space Paint  X Erase  Q Quit",
		130, 130, 145, bgR, bgG, bgB, false)
}

// writeText writes colored text into a bounded region [col, maxCol). Returns the next column position.
func (e *Engine) writeText(row, col, maxCol int, text string, fgR, fgG, fgB, bgR, bgG, bgB uint8, bold bool) int {
	for _, r := range text {
		if col >= maxCol || col >= e.width {
			break
		}
		if row >= 0 && row < e.height && col >= 0 {
			e.next[row][col] = Cell{Ch: r, FgR: fgR, FgG: fgG, FgB: fgB, BgR: bgR, BgG: bgG, BgB: bgB, Bold: bold}
		}
		col++
	}
	return col
}
