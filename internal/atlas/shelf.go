package atlas

import "image"

// Bin is a rectangle handed out by a ShelfPacker.
type Bin struct {
	X, Y, W, H int

	// capacity of the slot, which can exceed W/H when a freed bin is reused
	maxW, maxH int
}

// Rect returns the bin as an image rectangle.
func (b Bin) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

type shelf struct {
	y, h int
	x    int // next free column
	free int
}

func (s *shelf) alloc(w, h int) (Bin, bool) {
	if w > s.free || h > s.h {
		return Bin{}, false
	}
	b := Bin{X: s.x, Y: s.y, W: w, H: h, maxW: w, maxH: s.h}
	s.x += w
	s.free -= w
	return b, true
}

// ShelfPacker places rectangles into a fixed-size area using horizontal
// shelves. Freed bins are kept and reused for rectangles that fit them.
type ShelfPacker struct {
	width, height int
	shelves       []*shelf
	freed         []Bin
	live          int
}

// NewShelfPacker creates a packer for a width x height area.
func NewShelfPacker(width, height int) *ShelfPacker {
	return &ShelfPacker{width: width, height: height}
}

// Empty reports whether no bin is currently allocated.
func (p *ShelfPacker) Empty() bool {
	return p.live == 0
}

// Live returns the number of allocated bins.
func (p *ShelfPacker) Live() int {
	return p.live
}

// Pack allocates a w x h bin. It returns false when the area has no room.
func (p *ShelfPacker) Pack(w, h int) (Bin, bool) {
	if w <= 0 || h <= 0 || w > p.width || h > p.height {
		return Bin{}, false
	}

	if b, ok := p.reuse(w, h); ok {
		p.live++
		return b, true
	}

	var best *shelf
	bestWaste := 0
	y := 0
	for _, s := range p.shelves {
		y += s.h
		if h > s.h || w > s.free {
			continue
		}
		waste := s.h - h
		if best == nil || waste < bestWaste {
			best, bestWaste = s, waste
			if waste == 0 {
				break
			}
		}
	}

	if best == nil {
		if y+h > p.height {
			return Bin{}, false
		}
		best = &shelf{y: y, h: h, free: p.width}
		p.shelves = append(p.shelves, best)
	}

	b, ok := best.alloc(w, h)
	if ok {
		p.live++
	}
	return b, ok
}

// reuse takes the smallest freed bin that can hold w x h.
func (p *ShelfPacker) reuse(w, h int) (Bin, bool) {
	best := -1
	for i, b := range p.freed {
		if w > b.maxW || h > b.maxH {
			continue
		}
		if best < 0 || b.maxW*b.maxH < p.freed[best].maxW*p.freed[best].maxH {
			best = i
		}
	}
	if best < 0 {
		return Bin{}, false
	}
	b := p.freed[best]
	p.freed = append(p.freed[:best], p.freed[best+1:]...)
	b.W, b.H = w, h
	return b, true
}

// Free returns a bin to the packer. Once the last bin is freed the packer
// resets so the whole area is available again.
func (p *ShelfPacker) Free(b Bin) {
	if p.live == 0 {
		return
	}
	p.live--
	if p.live == 0 {
		p.shelves = nil
		p.freed = nil
		return
	}
	b.W, b.H = b.maxW, b.maxH
	p.freed = append(p.freed, b)
}
