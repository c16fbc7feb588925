package scene

import "slices"

// Camera is the viewport in world pixels. X runs from -W*32 to W*32 across
// the map, Y from 0 to H*32.
type Camera struct {
	X, Y          float64
	Width, Height float64
}

// SetCamera moves the viewport. Culling reruns on the next Update only if the
// camera changed.
func (s *Scene) SetCamera(c Camera) {
	if c == s.camera {
		return
	}
	s.camera = c
	s.cameraDirty = true
}

// Camera returns the current viewport.
func (s *Scene) Camera() Camera { return s.camera }

// cull recomputes the visible sections and marks the render list dirty when
// the set changed.
func (s *Scene) cull() {
	halfWidth := float64(s.width * 32)
	fullHeight := float64(s.height * 32)
	c := s.camera

	top, bottom := c.Y, c.Y+c.Height
	left, right := c.X, c.X+c.Width

	// Snap to the nearest edge when the camera is entirely off the map.
	if bottom < 0 {
		top, bottom = -c.Height, 0
	} else if top > fullHeight {
		top, bottom = fullHeight, fullHeight+c.Height
	}
	if right < -halfWidth {
		left, right = -halfWidth-c.Width, -halfWidth
	} else if left > halfWidth {
		left, right = halfWidth, halfWidth+c.Width
	}

	top = max(0, top)
	bottom = min(fullHeight, bottom)
	left = max(-halfWidth, left)
	right = min(halfWidth, right)

	visible := make([]int, 0, len(s.visible))
	for i := range s.grid.cells {
		r := s.grid.cellRect(i)
		if float64(r.Max.X) >= left && float64(r.Min.X) <= right &&
			float64(r.Max.Y) >= top && float64(r.Min.Y) <= bottom {
			visible = append(visible, i)
		}
	}

	// Both lists are in grid order, so equal sets compare equal element-wise.
	if !slices.Equal(visible, s.visible) {
		s.dirty = true
	}

	s.visible = visible
	clear(s.visibleMask)
	for _, i := range visible {
		s.visibleMask[i] = true
	}
}

// VisibleSections returns the visible section indices in row-major order.
func (s *Scene) VisibleSections() []int {
	return slices.Clone(s.visible)
}
