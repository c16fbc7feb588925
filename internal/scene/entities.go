package scene

import (
	"isotile/internal/layers"
	"isotile/internal/maps"
)

// entityIndex is a sparse (x, y) -> entities lookup.
type entityIndex[T any] struct {
	width int
	at    map[int][]T
}

func newEntityIndex[T any](width int) *entityIndex[T] {
	return &entityIndex[T]{width: width, at: make(map[int][]T)}
}

func (e *entityIndex[T]) get(x, y int) []T {
	return e.at[y*e.width+x]
}

func (e *entityIndex[T]) set(x, y int, list []T) {
	i := y*e.width + x
	if len(list) == 0 {
		delete(e.at, i)
		return
	}
	e.at[i] = list
}

func (e *entityIndex[T]) add(x, y int, v T) {
	i := y*e.width + x
	e.at[i] = append(e.at[i], v)
}

func (e *entityIndex[T]) len() int {
	n := 0
	for _, l := range e.at {
		n += len(l)
	}
	return n
}

// warpKind picks the entity sprite for a warp.
func warpKind(w *maps.Warp) int {
	switch w.Door {
	case 0:
		return layers.EntityWarp
	case 1:
		return layers.EntityDoor
	default:
		return layers.EntityLockedDoor
	}
}

// itemsKind shows a chest when any item on the tile needs a key.
func itemsKind(items []maps.Item) int {
	for _, it := range items {
		if it.Key > 0 {
			return layers.EntityChest
		}
	}
	return layers.EntityItems
}

func isEntityLayer(l int) bool {
	return l >= layers.Warp && l <= layers.NPC
}

// updateEntityOffsets stacks the entity markers at (x, y) above the object
// graphic, in layer order.
func (s *Scene) updateEntityOffsets(x, y int) {
	offset := -10
	if obj := s.graphics[s.index(x, y, layers.Objects)]; obj != nil {
		offset = min(offset, 10-obj.Height())
	}

	for l := layers.Warp; l <= layers.NPC; l++ {
		g := s.graphics[s.index(x, y, l)]
		if g == nil {
			continue
		}
		if ny := 16*(x+y) + offset; ny != g.Y {
			s.move(g, g.X, ny)
		}
		offset -= 28
	}
}
