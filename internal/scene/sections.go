package scene

import "image"

// SectionSize is the edge length of a culling section in world pixels.
const SectionSize = 256

// section holds the indices of graphics overlapping one grid cell.
type section map[int]struct{}

// sectionGrid partitions the projected map into SectionSize squares. World x
// runs from -halfWidth, so cell columns are offset by halfWidth.
type sectionGrid struct {
	cols, rows int
	halfWidth  int
	cells      []section
}

func newSectionGrid(mapW, mapH int) sectionGrid {
	g := sectionGrid{
		cols:      ceilDiv(mapW*64, SectionSize),
		rows:      ceilDiv(mapH*32, SectionSize),
		halfWidth: mapW * 32,
	}
	g.cells = make([]section, g.cols*g.rows)
	for i := range g.cells {
		g.cells[i] = make(section)
	}
	return g
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// overlapping returns the cells r touches, clamped to the grid, row-major.
func (g *sectionGrid) overlapping(r image.Rectangle) []int {
	x := r.Min.X + g.halfWidth
	y := r.Min.Y

	top := clamp(y/SectionSize, 0, g.rows-1)
	bottom := clamp((y+r.Dy())/SectionSize, 0, g.rows-1)
	left := clamp(x/SectionSize, 0, g.cols-1)
	right := clamp((x+r.Dx())/SectionSize, 0, g.cols-1)

	cells := make([]int, 0, (bottom-top+1)*(right-left+1))
	for cy := top; cy <= bottom; cy++ {
		for cx := left; cx <= right; cx++ {
			cells = append(cells, cy*g.cols+cx)
		}
	}
	return cells
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

func (g *sectionGrid) add(index int, cells []int) {
	for _, c := range cells {
		g.cells[c][index] = struct{}{}
	}
}

func (g *sectionGrid) remove(index int, cells []int) {
	for _, c := range cells {
		delete(g.cells[c], index)
	}
}

// cellRect returns the world rectangle covered by cell c.
func (g *sectionGrid) cellRect(c int) image.Rectangle {
	cx, cy := c%g.cols, c/g.cols
	left := -g.halfWidth + cx*SectionSize
	top := cy * SectionSize
	return image.Rect(left, top, left+SectionSize, top+SectionSize)
}

// extent returns the world rectangle covered by the whole grid.
func (g *sectionGrid) extent() image.Rectangle {
	return image.Rect(-g.halfWidth, 0, -g.halfWidth+g.cols*SectionSize, g.rows*SectionSize)
}
