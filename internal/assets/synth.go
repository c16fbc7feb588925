package assets

import (
	"context"
	"image"
	"image/color"
	"math"

	"isotile/internal/atlas"
	"isotile/internal/fault"
	"isotile/internal/layers"
)

// Synthetic draws placeholder sprites for every layer file, so a map can be
// viewed without an asset directory. It is stateless and safe for
// concurrent use.
type Synthetic struct {
	// MaxGfx is the highest map graphic id with a sprite.
	MaxGfx int
	// AnimatedFrom is the first ground graphic id drawn as a 4-frame strip.
	AnimatedFrom int
	// MaxSpec is the highest tile spec with a sprite.
	MaxSpec int
}

// NewSynthetic returns a Synthetic covering graphic ids 1-32 and specs 0-63.
func NewSynthetic() *Synthetic {
	return &Synthetic{MaxGfx: 32, AnimatedFrom: 24, MaxSpec: 63}
}

// palette is the 16-colour ANSI set used to tint placeholder sprites.
var palette = [16]color.RGBA{
	{0, 0, 0, 255}, {170, 0, 0, 255}, {0, 170, 0, 255}, {170, 170, 0, 255},
	{0, 0, 170, 255}, {170, 0, 170, 255}, {0, 170, 170, 255}, {170, 170, 170, 255},
	{85, 85, 85, 255}, {255, 85, 85, 255}, {85, 255, 85, 255}, {255, 255, 85, 255},
	{85, 85, 255, 255}, {255, 85, 255, 255}, {85, 255, 255, 255}, {255, 255, 255, 255},
}

// groundColors are the tints used for ground tiles; grass, dirt, stone, sand.
var groundColors = []color.RGBA{
	{76, 140, 60, 255}, {122, 92, 58, 255}, {120, 120, 128, 255}, {196, 178, 120, 255},
	{60, 110, 170, 255},
}

// Close is a no-op; Synthetic holds no resources.
func (s *Synthetic) Close() {}

// Info implements atlas.InfoProvider.
func (s *Synthetic) Info(k atlas.Key) (atlas.Info, bool) {
	switch k.File {
	case layers.SpecFile:
		if k.Resource < 0 || k.Resource > s.MaxSpec {
			return atlas.Info{}, false
		}
		return atlas.Info{Width: 64, Height: 32, Frames: 1}, true
	case layers.EntityFile:
		if k.Resource < layers.EntityWarp || k.Resource > layers.EntityNPC {
			return atlas.Info{}, false
		}
		return atlas.Info{Width: 24, Height: 24, Frames: 1}, true
	}

	gfx := k.Resource - layers.ResourceID(0)
	if gfx < 1 || gfx > s.MaxGfx {
		return atlas.Info{}, false
	}
	switch k.File {
	case groundFile:
		if gfx >= s.AnimatedFrom {
			return atlas.Info{Width: 4 * FrameWidth, Height: 32, Frames: 4}, true
		}
		return atlas.Info{Width: 64, Height: 32, Frames: 1}, true
	case 4: // objects
		return atlas.Info{Width: 48, Height: 40 + 8*(gfx%6), Frames: 1}, true
	case 5: // overlays
		return atlas.Info{Width: 32, Height: 24, Frames: 1}, true
	case 6: // walls
		return atlas.Info{Width: 32, Height: 64, Frames: 1}, true
	case 7: // roofs
		return atlas.Info{Width: 64, Height: 48, Frames: 1}, true
	case 22: // shadows
		return atlas.Info{Width: 64, Height: 32, Frames: 1}, true
	}
	return atlas.Info{}, false
}

// LoadResource implements atlas.PixelLoader.
func (s *Synthetic) LoadResource(ctx context.Context, k atlas.Key) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, ok := s.Info(k)
	if !ok {
		return nil, fault.Missingf("no synthetic sprite %s", k)
	}
	img := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
	gfx := k.Resource - layers.ResourceID(0)

	switch k.File {
	case layers.SpecFile:
		outlineDiamond(img, img.Bounds(), palette[9+k.Resource%7])
	case layers.EntityFile:
		disc(img, img.Bounds(), palette[8+k.Resource])
	case groundFile:
		base := groundColors[gfx%len(groundColors)]
		for f := 0; f < info.Frames; f++ {
			r := image.Rect(f*FrameWidth, 0, (f+1)*FrameWidth, 32)
			if info.Frames == 1 {
				r = img.Bounds()
			}
			diamond(img, r, base, gfx*31+f*7)
		}
	case 4:
		tree(img, groundColors[0], palette[1+gfx%6])
	case 5:
		disc(img, img.Bounds(), palette[2+gfx%4])
	case 6:
		fill(img, img.Bounds(), shade(palette[7], -(gfx%3)*20))
	case 7:
		fill(img, image.Rect(0, 16, 64, 48), shade(palette[1], gfx%4*15))
	case 22:
		disc(img, img.Bounds(), color.RGBA{0, 0, 0, 255})
	}
	return img, nil
}

func shade(c color.RGBA, d int) color.RGBA {
	ch := func(v uint8) uint8 {
		return uint8(max(0, min(255, int(v)+d)))
	}
	return color.RGBA{ch(c.R), ch(c.G), ch(c.B), c.A}
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func inDiamond(r image.Rectangle, x, y int) bool {
	hw, hh := float64(r.Dx())/2, float64(r.Dy())/2
	dx := math.Abs(float64(x-r.Min.X)+0.5-hw) / hw
	dy := math.Abs(float64(y-r.Min.Y)+0.5-hh) / hh
	return dx+dy <= 1
}

// diamond fills the isometric tile shape with a speckled tint.
func diamond(img *image.RGBA, r image.Rectangle, c color.RGBA, seed int) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !inDiamond(r, x, y) {
				continue
			}
			h := (x*73856093 ^ y*19349663 ^ seed*83492791) & 0xF
			img.SetRGBA(x, y, shade(c, h-8))
		}
	}
}

func outlineDiamond(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	inner := r.Inset(3)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if inDiamond(r, x, y) && !inDiamond(inner, x, y) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func disc(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	cx, cy := float64(r.Min.X+r.Max.X)/2, float64(r.Min.Y+r.Max.Y)/2
	rx, ry := float64(r.Dx())/2, float64(r.Dy())/2
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy <= 1 {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// tree draws a trunk with a round crown filling the sprite.
func tree(img *image.RGBA, crown, trunk color.RGBA) {
	b := img.Bounds()
	fill(img, image.Rect(b.Dx()/2-4, b.Dy()-20, b.Dx()/2+4, b.Dy()-4), shade(trunk, -40))
	disc(img, image.Rect(0, 0, b.Dx(), b.Dy()-12), crown)
}
