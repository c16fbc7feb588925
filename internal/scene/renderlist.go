package scene

import (
	"cmp"
	"slices"
)

func byDepth(a, b *TileGraphic) int {
	return cmp.Compare(a.Depth, b.Depth)
}

// rebuild collects every visible graphic from the visible sections and sorts
// them by depth. Graphics with equal depth keep no particular order.
func (s *Scene) rebuild() {
	for _, g := range s.list {
		g.drawn = false
	}

	list := make([]*TileGraphic, 0, len(s.list))
	for _, c := range s.visible {
		for idx := range s.grid.cells[c] {
			g := s.graphics[idx]
			if g.drawn || !s.vis.IsLayerVisible(g.Layer) {
				continue
			}
			g.Alpha = s.alpha(g.Layer)
			g.drawn = true
			list = append(list, g)
		}
	}
	slices.SortFunc(list, byDepth)

	s.list = list
	s.dirty = false
}

// sync patches a single graphic in or out of the list. While a rebuild is
// pending the rebuild takes care of it.
func (s *Scene) sync(g *TileGraphic) {
	if s.dirty {
		return
	}
	want := s.vis.IsLayerVisible(g.Layer) && s.inVisibleSection(g)
	switch {
	case want && !g.drawn:
		s.insert(g)
	case !want && g.drawn:
		s.removeFromList(g)
	}
}

func (s *Scene) inVisibleSection(g *TileGraphic) bool {
	for _, c := range g.sections {
		if s.visibleMask[c] {
			return true
		}
	}
	return false
}

func (s *Scene) insert(g *TileGraphic) {
	i, _ := slices.BinarySearchFunc(s.list, g, byDepth)
	s.list = slices.Insert(s.list, i, g)
	g.drawn = true
}

func (s *Scene) removeFromList(g *TileGraphic) {
	if i := slices.Index(s.list, g); i >= 0 {
		s.list = slices.Delete(s.list, i, i+1)
	}
	g.drawn = false
}
