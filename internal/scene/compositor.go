package scene

import (
	"isotile/internal/atlas"
	"isotile/internal/fault"
	"isotile/internal/layers"
	"isotile/internal/maps"
)

// NoSpec is the draw id that clears a tile spec.
const NoSpec = -1

// Draw sets the content of an editable layer: a graphic id on layers 0-8, or a
// tile spec on layer 9.
func (s *Scene) Draw(x, y, id, layer int) error {
	if err := s.checkTile(x, y); err != nil {
		return err
	}
	switch {
	case layer >= 0 && layer < layers.GraphicCount:
		return s.SetGraphic(x, y, id, layer)
	case layer == layers.Spec:
		if id == NoSpec {
			return s.SetSpec(x, y, nil)
		}
		return s.SetSpec(x, y, &id)
	}
	return fault.Fatalf("invalid draw layer %d", layer)
}

// DrawID reads back what Draw last stored for (x, y, layer).
func (s *Scene) DrawID(x, y, layer int) (int, error) {
	if err := s.checkTile(x, y); err != nil {
		return 0, err
	}
	t := s.src.Tile(x, y)
	switch {
	case layer >= 0 && layer < layers.GraphicCount:
		return t.Gfx[layer], nil
	case layer == layers.Spec:
		if t.Spec == nil {
			return NoSpec, nil
		}
		return *t.Spec, nil
	}
	return 0, fault.Fatalf("invalid draw layer %d", layer)
}

func (s *Scene) checkTile(x, y int) error {
	if s.graphics == nil {
		return ErrDestroyed
	}
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return fault.Fatalf("tile (%d,%d) outside %dx%d map", x, y, s.width, s.height)
	}
	return nil
}

// SetGraphic stores gfx on graphic layer 0-8 and updates its tile graphic. A
// gfx of 0 clears the slot.
func (s *Scene) SetGraphic(x, y, gfx, layer int) error {
	file, err := layers.File(layer)
	if err != nil {
		return fault.Fatalf("%v", err)
	}
	if err := s.checkTile(x, y); err != nil {
		return err
	}
	s.src.Tile(x, y).Gfx[layer] = gfx

	if gfx == 0 {
		return s.setTileGraphic(x, y, layer, nil)
	}
	entry, err := s.resolve(atlas.Key{File: file, Resource: layers.ResourceID(gfx)})
	if err != nil {
		return err
	}
	return s.setTileGraphic(x, y, layer, entry)
}

// SetSpec stores a tile spec. The same sprite is shown on the spec layer and
// on the spec overlay layer.
func (s *Scene) SetSpec(x, y int, spec *int) error {
	if err := s.checkTile(x, y); err != nil {
		return err
	}
	s.src.Tile(x, y).Spec = spec

	var entry *atlas.Entry
	if spec != nil {
		var err error
		entry, err = s.resolve(atlas.Key{File: layers.SpecFile, Resource: *spec})
		if err != nil {
			return err
		}
	}
	if err := s.setTileGraphic(x, y, layers.Spec, entry); err != nil {
		return err
	}
	return s.setTileGraphic(x, y, layers.SpecOverlay, entry)
}

// SetWarp stores a warp and shows its marker.
func (s *Scene) SetWarp(x, y int, w *maps.Warp) error {
	if err := s.checkTile(x, y); err != nil {
		return err
	}
	s.src.Tile(x, y).Warp = w

	kind := 0
	if w != nil {
		kind = warpKind(w)
	}
	return s.setEntity(x, y, layers.Warp, kind)
}

// SetSign stores a sign and shows its marker.
func (s *Scene) SetSign(x, y int, sign *maps.Sign) error {
	if err := s.checkTile(x, y); err != nil {
		return err
	}
	s.src.Tile(x, y).Sign = sign

	kind := 0
	if sign != nil {
		kind = layers.EntitySign
	}
	return s.setEntity(x, y, layers.Sign, kind)
}

// SetItems replaces the items lying on (x, y).
func (s *Scene) SetItems(x, y int, items []maps.Item) error {
	if err := s.checkTile(x, y); err != nil {
		return err
	}
	s.items.set(x, y, items)

	kind := 0
	if len(items) > 0 {
		kind = itemsKind(items)
	}
	return s.setEntity(x, y, layers.Item, kind)
}

// SetNPCs replaces the NPCs spawning on (x, y).
func (s *Scene) SetNPCs(x, y int, npcs []maps.NPC) error {
	if err := s.checkTile(x, y); err != nil {
		return err
	}
	s.npcs.set(x, y, npcs)

	kind := 0
	if len(npcs) > 0 {
		kind = layers.EntityNPC
	}
	return s.setEntity(x, y, layers.NPC, kind)
}

// Items returns the items on (x, y).
func (s *Scene) Items(x, y int) []maps.Item { return s.items.get(x, y) }

// NPCs returns the NPCs on (x, y).
func (s *Scene) NPCs(x, y int) []maps.NPC { return s.npcs.get(x, y) }

func (s *Scene) setEntity(x, y, layer, kind int) error {
	var entry *atlas.Entry
	if kind != 0 {
		var err error
		entry, err = s.resolve(atlas.Key{File: layers.EntityFile, Resource: kind})
		if err != nil {
			return err
		}
	}
	return s.setTileGraphic(x, y, layer, entry)
}

// resolve fetches an atlas entry. A missing resource is logged and yields a
// nil entry so the slot is cleared; anything else is returned.
func (s *Scene) resolve(key atlas.Key) (*atlas.Entry, error) {
	e, err := s.cache.Get(key)
	if fault.IsMissing(err) {
		s.log.Warnf("could not load gfx %s: %v", key, err)
		return nil, nil
	}
	return e, err
}

func (s *Scene) index(x, y, layer int) int {
	return (y*s.width+x)*layers.Count + layer
}

// setTileGraphic replaces the graphic at (x, y, layer) with one showing entry,
// or removes it when entry is nil.
func (s *Scene) setTileGraphic(x, y, layer int, entry *atlas.Entry) error {
	idx := s.index(x, y, layer)

	if old := s.graphics[idx]; old != nil {
		if err := old.Entry.DecRef(); err != nil {
			return err
		}
		s.grid.remove(idx, old.sections)
		delete(s.graphics, idx)
		if old.drawn {
			s.removeFromList(old)
		}
	}

	if entry == nil {
		if layer == layers.Objects || isEntityLayer(layer) {
			s.updateEntityOffsets(x, y)
		}
		return nil
	}

	entry.IncRef()

	info := layers.Get(layer)
	g := &TileGraphic{
		X:     info.XOff + 32*x - 32*y,
		Y:     info.YOff + 16*x + 16*y,
		Layer: layer,
		Depth: layers.Depth(x, y, layer),
		Alpha: s.alpha(layer),
		Entry: entry,
		index: idx,
	}
	if info.Centered {
		g.X -= entry.Width()/2 - 32
	}
	if info.BottomOrigin {
		g.Y -= entry.Height() - 32
	}
	g.sections = s.grid.overlapping(g.Bounds())
	s.grid.add(idx, g.sections)
	s.graphics[idx] = g

	if layer == layers.Objects || isEntityLayer(layer) {
		s.updateEntityOffsets(x, y)
	}
	s.sync(g)
	return nil
}

// move repositions a graphic and re-derives its section membership.
func (s *Scene) move(g *TileGraphic, x, y int) {
	s.grid.remove(g.index, g.sections)
	g.X, g.Y = x, y
	g.sections = s.grid.overlapping(g.Bounds())
	s.grid.add(g.index, g.sections)
	s.sync(g)
}

func (s *Scene) alpha(layer int) float64 {
	a := layers.Get(layer).Alpha
	if layer == layers.Spec && s.selected == layers.Spec {
		a *= 3
	}
	return a
}
