// Package assets resolves atlas keys to sprite metadata and pixels, either
// from a directory of PNG files or from procedurally drawn placeholders.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"isotile/internal/atlas"
	"isotile/internal/fault"
	"isotile/internal/layers"
	"isotile/internal/log"
)

// FrameWidth is the width of one frame of an animated ground sprite.
const FrameWidth = 64

// groundFile holds the only animated sprites: ground strips FrameWidth*n wide.
const groundFile = 3

var entityNames = map[string]int{
	"warp":       layers.EntityWarp,
	"door":       layers.EntityDoor,
	"lockeddoor": layers.EntityLockedDoor,
	"sign":       layers.EntitySign,
	"items":      layers.EntityItems,
	"chest":      layers.EntityChest,
	"npc":        layers.EntityNPC,
}

type sprite struct {
	path string
	info atlas.Info
}

// Source serves sprites from a directory laid out as
//
//	gfx003/101.png   file 3, resource 101
//	spec/4.png       tile spec 4
//	entity/door.png  entity marker
//
// The index is built once by Open. Decoded pixels are kept in a
// cost-bounded cache; Source is safe for concurrent use.
type Source struct {
	root    string
	index   map[atlas.Key]sprite
	pixels  *ristretto.Cache[string, *image.RGBA]
	group   singleflight.Group
	log     logrus.FieldLogger
	workers int
	cacheMB int64
}

// Option configures a Source.
type Option func(*Source)

// WithPixelCacheMB bounds the decoded pixel cache.
func WithPixelCacheMB(mb int) Option {
	return func(s *Source) {
		if mb > 0 {
			s.cacheMB = int64(mb)
		}
	}
}

// WithWorkers sets how many files are indexed in parallel.
func WithWorkers(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the source's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Source) {
		s.log = l
	}
}

type found struct {
	key  atlas.Key
	path string
}

// Open indexes every sprite under root, reading only PNG headers.
func Open(ctx context.Context, root string, opts ...Option) (*Source, error) {
	s := &Source{
		root:    root,
		index:   make(map[atlas.Key]sprite),
		log:     log.Entry("assets"),
		workers: 8,
		cacheMB: 64,
	}
	for _, opt := range opts {
		opt(s)
	}

	files, err := s.scan()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, err := readInfo(f.path, f.key.File)
			if err != nil {
				return fmt.Errorf("index %s: %w", f.path, err)
			}
			mu.Lock()
			s.index[f.key] = sprite{path: f.path, info: info}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.pixels, err = ristretto.NewCache(&ristretto.Config[string, *image.RGBA]{
		NumCounters: int64(max(1000, 10*len(s.index))),
		MaxCost:     s.cacheMB << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create pixel cache: %w", err)
	}

	s.log.Infof("indexed %d sprites under %s", len(s.index), root)
	return s, nil
}

func (s *Source) scan() ([]found, error) {
	dirs, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read assets directory: %w", err)
	}

	var files []found
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		file, ok := dirFile(d.Name())
		if !ok {
			s.log.Debugf("skipping directory %s", d.Name())
			continue
		}
		dir := filepath.Join(s.root, d.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, ".png") {
				continue
			}
			res, ok := resourceID(file, strings.TrimSuffix(name, ".png"))
			if !ok {
				s.log.Warnf("unrecognised sprite name %s", filepath.Join(d.Name(), name))
				continue
			}
			files = append(files, found{key: atlas.Key{File: file, Resource: res}, path: filepath.Join(dir, name)})
		}
	}
	return files, nil
}

func dirFile(name string) (int, bool) {
	switch name {
	case "spec":
		return layers.SpecFile, true
	case "entity":
		return layers.EntityFile, true
	}
	if !strings.HasPrefix(name, "gfx") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, "gfx"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func resourceID(file int, base string) (int, bool) {
	if file == layers.EntityFile {
		kind, ok := entityNames[base]
		return kind, ok
	}
	n, err := strconv.Atoi(base)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func readInfo(path string, file int) (atlas.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return atlas.Info{}, err
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return atlas.Info{}, err
	}
	info := atlas.Info{Width: cfg.Width, Height: cfg.Height, Frames: 1}
	if file == groundFile && cfg.Width > FrameWidth && cfg.Width%FrameWidth == 0 {
		info.Frames = cfg.Width / FrameWidth
	}
	return info, nil
}

// Info implements atlas.InfoProvider.
func (s *Source) Info(k atlas.Key) (atlas.Info, bool) {
	sp, ok := s.index[k]
	return sp.info, ok
}

// Len returns the number of indexed sprites.
func (s *Source) Len() int { return len(s.index) }

// LoadResource implements atlas.PixelLoader. Concurrent loads of the same
// sprite share one decode.
func (s *Source) LoadResource(ctx context.Context, k atlas.Key) (image.Image, error) {
	sp, ok := s.index[k]
	if !ok {
		return nil, fault.Missingf("no sprite %s under %s", k, s.root)
	}

	id := k.String()
	if img, ok := s.pixels.Get(id); ok {
		return img, nil
	}

	v, err, _ := s.group.Do(id, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := decodeSprite(sp.path)
		if err != nil {
			return nil, err
		}
		s.pixels.Set(id, img, int64(len(img.Pix)))
		s.pixels.Wait()
		return img, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", k, err)
	}
	return v.(*image.RGBA), nil
}

// Close releases the pixel cache.
func (s *Source) Close() {
	s.pixels.Close()
}

// decodeSprite reads a PNG into RGBA. Pixels under half alpha and magenta
// (#FF00FF) pixels become transparent; everything else is opaque.
func decodeSprite(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(bl>>8)
			if a < 0x8000 || (r8 == 0xFF && g8 == 0x00 && b8 == 0xFF) {
				continue
			}
			i := out.PixOffset(x, y)
			// Un-premultiply so partially transparent pixels keep their colour.
			if a != 0xFFFF {
				r8 = uint8(r * 0xFF / a)
				g8 = uint8(g * 0xFF / a)
				b8 = uint8(bl * 0xFF / a)
			}
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = r8, g8, b8, 0xFF
		}
	}
	return out, nil
}

// Provider is a sprite source a host can release on shutdown.
type Provider interface {
	atlas.InfoProvider
	atlas.PixelLoader
	Close()
}

// OpenOrSynthetic opens the sprite directory at root, or falls back to
// placeholder sprites when root is empty or does not exist.
func OpenOrSynthetic(ctx context.Context, root string, opts ...Option) (Provider, error) {
	if root == "" {
		return NewSynthetic(), nil
	}
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		log.Warnf("assets directory %s not found, drawing placeholder sprites", root)
		return NewSynthetic(), nil
	}
	return Open(ctx, root, opts...)
}
