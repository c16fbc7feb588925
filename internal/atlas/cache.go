// Package atlas caches sprite pixels in fixed-size texture pages. Sprites are
// bin-packed into pages, shared through ref-counted entries and filled in the
// background by a Scheduler.
package atlas

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/sirupsen/logrus"

	"isotile/internal/fault"
	"isotile/internal/log"
)

// DefaultPageSize is the width and height of a page when none is configured.
const DefaultPageSize = 2048

// Key identifies a sprite by source file and resource id.
type Key struct {
	File     int
	Resource int
}

func (k Key) String() string {
	return fmt.Sprintf("%d.%d", k.File, k.Resource)
}

// Info is the metadata needed to reserve space for a sprite. Frames > 1 means
// the sprite is a horizontal strip of equally sized animation frames.
type Info struct {
	Width, Height int
	Frames        int
}

// InfoProvider resolves sprite metadata without loading pixels.
type InfoProvider interface {
	Info(key Key) (Info, bool)
}

// Page is one texture page: a pixel buffer plus its packer.
type Page struct {
	index   int
	img     *image.RGBA
	packer  *ShelfPacker
	version uint64
}

func newPage(index, w, h int) *Page {
	return &Page{
		index:  index,
		img:    image.NewRGBA(image.Rect(0, 0, w, h)),
		packer: NewShelfPacker(w, h),
	}
}

// Index returns the page's position in the cache.
func (p *Page) Index() int { return p.index }

// Image returns the page's pixel buffer. Renderers read it in place.
func (p *Page) Image() *image.RGBA { return p.img }

// Version increases every time pixels are written into the page.
func (p *Page) Version() uint64 { return p.version }

// Empty reports whether nothing is packed into the page.
func (p *Page) Empty() bool { return p.packer.Empty() }

func (p *Page) write(r image.Rectangle, src image.Image) {
	draw.Draw(p.img, r, src, src.Bounds().Min, draw.Src)
	p.version++
}

func (p *Page) clear(r image.Rectangle) {
	draw.Draw(p.img, r, image.Transparent, image.Point{}, draw.Src)
	p.version++
}

// Entry is a cached sprite. Tile graphics that display it hold a reference.
type Entry struct {
	key      Key
	page     *Page
	bin      Bin
	frames   []image.Rectangle
	refCount int
	loaded   bool
	evicted  bool
}

func (e *Entry) Key() Key        { return e.key }
func (e *Entry) RefCount() int   { return e.refCount }
func (e *Entry) Page() *Page     { return e.page }
func (e *Entry) Loaded() bool    { return e.loaded }
func (e *Entry) Evicted() bool   { return e.evicted }
func (e *Entry) FrameCount() int { return len(e.frames) }

// Width returns the width of one frame.
func (e *Entry) Width() int {
	if len(e.frames) == 0 {
		return 0
	}
	return e.frames[0].Dx()
}

// Height returns the height of one frame.
func (e *Entry) Height() int {
	if len(e.frames) == 0 {
		return 0
	}
	return e.frames[0].Dy()
}

// Frame returns the page rectangle of animation frame i, wrapping around.
func (e *Entry) Frame(i int) image.Rectangle {
	if len(e.frames) == 0 {
		return image.Rectangle{}
	}
	if i < 0 {
		i = -i
	}
	return e.frames[i%len(e.frames)]
}

// Rect returns the whole packed rectangle.
func (e *Entry) Rect() image.Rectangle { return e.bin.Rect() }

// IncRef records a new user of the entry.
func (e *Entry) IncRef() {
	e.refCount++
}

// DecRef releases a user. Releasing an entry nobody holds is a double release.
func (e *Entry) DecRef() error {
	if e.refCount == 0 {
		return fault.Fatalf("negative ref count for asset %s", e.key)
	}
	e.refCount--
	return nil
}

// outOfSpacePolicy decides what happens when no page can fit a sprite.
type outOfSpacePolicy interface {
	allocated()
	outOfSpace(c *Cache)
}

type growPolicy struct{}

func (growPolicy) allocated()          {}
func (growPolicy) outOfSpace(c *Cache) { c.addPage() }

// Cache maps sprite keys to packed entries.
type Cache struct {
	info         InfoProvider
	pageW, pageH int
	pages        []*Page
	entries      map[Key]*Entry
	pending      []*Entry
	policy       outOfSpacePolicy
	log          logrus.FieldLogger
}

// Option configures a Cache.
type Option func(*Cache)

// WithPageSize sets the page dimensions.
func WithPageSize(w, h int) Option {
	return func(c *Cache) {
		c.pageW, c.pageH = w, h
	}
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Cache) {
		c.log = l
	}
}

// NewCache returns a cache that adds a page whenever it runs out of space.
func NewCache(info InfoProvider, opts ...Option) *Cache {
	return newCache(info, growPolicy{}, opts)
}

func newCache(info InfoProvider, policy outOfSpacePolicy, opts []Option) *Cache {
	c := &Cache{
		info:    info,
		pageW:   DefaultPageSize,
		pageH:   DefaultPageSize,
		entries: make(map[Key]*Entry),
		policy:  policy,
		log:     log.Entry("atlas"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.addPage()
	return c
}

// Get returns the entry for key, reserving atlas space on first use. It
// returns an ErrMissing error when no metadata exists for key and an ErrFatal
// error when the sprite cannot fit even an empty page.
func (c *Cache) Get(key Key) (*Entry, error) {
	if e, ok := c.entries[key]; ok {
		return e, nil
	}
	return c.add(key)
}

// Lookup returns a cached entry without allocating.
func (c *Cache) Lookup(key Key) (*Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache) add(key Key) (*Entry, error) {
	info, ok := c.info.Info(key)
	if !ok || info.Width <= 0 || info.Height <= 0 {
		return nil, fault.Missingf("no resource info for %s", key)
	}

	for {
		e, err := c.allocate(key, info)
		if err != nil {
			return nil, err
		}
		if e != nil {
			c.entries[key] = e
			c.pending = append(c.pending, e)
			c.policy.allocated()
			return e, nil
		}
		c.policy.outOfSpace(c)
	}
}

// allocate tries every page in order. A nil entry with a nil error means no
// page had room.
func (c *Cache) allocate(key Key, info Info) (*Entry, error) {
	for _, p := range c.pages {
		bin, ok := p.packer.Pack(info.Width, info.Height)
		if ok {
			return &Entry{
				key:    key,
				page:   p,
				bin:    bin,
				frames: splitFrames(bin, info.Frames),
			}, nil
		}
		if p.Empty() {
			return nil, fault.Fatalf("failed to cache resource %s (%dx%d) in an empty %dx%d page",
				key, info.Width, info.Height, c.pageW, c.pageH)
		}
	}
	return nil, nil
}

func splitFrames(bin Bin, n int) []image.Rectangle {
	if n <= 1 || bin.W%n != 0 {
		return []image.Rectangle{bin.Rect()}
	}
	w := bin.W / n
	frames := make([]image.Rectangle, n)
	for i := range frames {
		x := bin.X + i*w
		frames[i] = image.Rect(x, bin.Y, x+w, bin.Y+bin.H)
	}
	return frames
}

func (c *Cache) addPage() {
	p := newPage(len(c.pages), c.pageW, c.pageH)
	c.pages = append(c.pages, p)
	c.log.Debugf("added atlas page %d (%dx%d)", p.index, c.pageW, c.pageH)
}

// evictEntry frees an entry's rectangle and forgets it.
func (c *Cache) evictEntry(e *Entry) {
	e.page.packer.Free(e.bin)
	e.page.clear(e.bin.Rect())
	e.evicted = true
	e.page = nil
	e.frames = nil
	delete(c.entries, e.key)

	for i, p := range c.pending {
		if p == e {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
}

// Pages returns the cache's pages in allocation order.
func (c *Cache) Pages() []*Page { return c.pages }

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.entries) }

// Pending returns the number of entries waiting for pixels.
func (c *Cache) Pending() int { return len(c.pending) }

// Stats summarises the cache for logs and HUDs.
type Stats struct {
	Pages   int
	Entries int
	Pending int
	Loaded  int
	Unused  int
}

func (c *Cache) Stats() Stats {
	s := Stats{Pages: len(c.pages), Entries: len(c.entries), Pending: len(c.pending)}
	for _, e := range c.entries {
		if e.loaded {
			s.Loaded++
		}
		if e.refCount == 0 {
			s.Unused++
		}
	}
	return s
}
