package atlas

import (
	"testing"

	"isotile/internal/fault"
)

// infoMap is an InfoProvider backed by a map; unknown keys fall back to def.
type infoMap struct {
	infos map[Key]Info
	def   Info
}

func (m infoMap) Info(key Key) (Info, bool) {
	if info, ok := m.infos[key]; ok {
		return info, true
	}
	if m.def.Width > 0 {
		return m.def, true
	}
	return Info{}, false
}

func squares(size int) infoMap {
	return infoMap{def: Info{Width: size, Height: size}}
}

func key(r int) Key { return Key{File: 3, Resource: r} }

func TestCacheGetReturnsSameEntry(t *testing.T) {
	c := NewCache(squares(32), WithPageSize(256, 256))

	a, err := c.Get(key(101))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := c.Get(key(101))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a != b {
		t.Error("expected the cached entry to be returned")
	}
	if c.Len() != 1 || c.Pending() != 1 {
		t.Errorf("Len=%d Pending=%d, want 1 and 1", c.Len(), c.Pending())
	}
	if a.Width() != 32 || a.Height() != 32 {
		t.Errorf("entry is %dx%d, want 32x32", a.Width(), a.Height())
	}
}

func TestCacheMissingInfo(t *testing.T) {
	c := NewCache(infoMap{}, WithPageSize(64, 64))
	e, err := c.Get(key(5))
	if e != nil {
		t.Error("expected no entry")
	}
	if !fault.IsMissing(err) {
		t.Errorf("err = %v, want a missing-resource error", err)
	}
	if c.Pending() != 0 {
		t.Error("missing resources must not be queued")
	}
}

func TestCacheTooLargeIsFatal(t *testing.T) {
	c := NewCache(squares(300), WithPageSize(256, 256))
	_, err := c.Get(key(1))
	if !fault.IsFatal(err) {
		t.Fatalf("err = %v, want fatal", err)
	}
	if len(c.Pages()) != 1 {
		t.Errorf("pages = %d, want 1", len(c.Pages()))
	}
}

func TestRefCountLifecycle(t *testing.T) {
	c := NewCache(squares(16), WithPageSize(64, 64))
	e, _ := c.Get(key(1))

	for i := 0; i < 3; i++ {
		e.IncRef()
	}
	for i := 0; i < 3; i++ {
		if err := e.DecRef(); err != nil {
			t.Fatalf("DecRef %d: %v", i, err)
		}
	}
	if e.RefCount() != 0 {
		t.Fatalf("RefCount = %d, want 0", e.RefCount())
	}

	err := e.DecRef()
	if !fault.IsFatal(err) {
		t.Errorf("DecRef at zero = %v, want fatal", err)
	}
	if e.RefCount() != 0 {
		t.Errorf("RefCount = %d after failed DecRef, want 0", e.RefCount())
	}
}

func TestCacheGrowsWhenFull(t *testing.T) {
	c := NewCache(squares(64), WithPageSize(256, 256))

	for i := 0; i < 16; i++ {
		e, err := c.Get(key(i))
		if err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
		if e.Page().Index() != 0 {
			t.Fatalf("entry %d landed on page %d", i, e.Page().Index())
		}
	}

	e, err := c.Get(key(16))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(c.Pages()) != 2 {
		t.Fatalf("pages = %d, want 2", len(c.Pages()))
	}
	if e.Page().Index() != 1 {
		t.Errorf("overflow entry on page %d, want 1", e.Page().Index())
	}
}

func TestEvictingCacheReusesSpace(t *testing.T) {
	c := NewEvictingCache(squares(64), WithPageSize(256, 256))

	var old []*Entry
	for i := 0; i < 16; i++ {
		e, err := c.Get(key(i))
		if err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
		old = append(old, e)
	}

	e, err := c.Get(key(100))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(c.Pages()) != 1 {
		t.Errorf("pages = %d, want 1 (eviction should make room)", len(c.Pages()))
	}
	if e.Page().Index() != 0 {
		t.Errorf("entry on page %d, want 0", e.Page().Index())
	}
	for i, o := range old {
		if !o.Evicted() {
			t.Errorf("entry %d was not evicted", i)
		}
		if _, ok := c.Lookup(o.Key()); ok {
			t.Errorf("entry %d still cached", i)
		}
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if c.Pending() != 1 {
		t.Errorf("Pending = %d, want 1 (evicted entries leave the queue)", c.Pending())
	}
}

func TestEvictingCacheKeepsReferencedEntries(t *testing.T) {
	c := NewEvictingCache(squares(64), WithPageSize(256, 256))

	var held []*Entry
	for i := 0; i < 16; i++ {
		e, _ := c.Get(key(i))
		if i%2 == 0 {
			e.IncRef()
			held = append(held, e)
		}
	}

	if _, err := c.Get(key(100)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, e := range held {
		if e.Evicted() {
			t.Errorf("referenced entry %s was evicted", e.Key())
		}
	}
	if c.Len() != len(held)+1 {
		t.Errorf("Len = %d, want %d", c.Len(), len(held)+1)
	}
}

func TestEvictingCacheFallsBackToNewPage(t *testing.T) {
	c := NewEvictingCache(squares(64), WithPageSize(256, 256))
	for i := 0; i < 16; i++ {
		e, _ := c.Get(key(i))
		e.IncRef()
	}

	// The sweep finds nothing to free, so the retry must add a page.
	e, err := c.Get(key(100))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(c.Pages()) != 2 || e.Page().Index() != 1 {
		t.Errorf("pages=%d entry page=%d, want 2 and 1", len(c.Pages()), e.Page().Index())
	}
}

func TestEvictingCacheDisarmedSkipsSweep(t *testing.T) {
	c := NewEvictingCache(squares(64), WithPageSize(256, 256))
	var unused []*Entry
	for i := 0; i < 16; i++ {
		e, _ := c.Get(key(i))
		unused = append(unused, e)
	}

	c.policy.(*evictPolicy).canEvict = false
	if _, err := c.Get(key(100)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(c.Pages()) != 2 {
		t.Errorf("pages = %d, want 2", len(c.Pages()))
	}
	for _, e := range unused {
		if e.Evicted() {
			t.Fatalf("entry %s evicted while eviction was disarmed", e.Key())
		}
	}
	if !c.policy.(*evictPolicy).canEvict {
		t.Error("a successful allocation should re-arm eviction")
	}
}

func TestAnimatedFrames(t *testing.T) {
	c := NewCache(infoMap{infos: map[Key]Info{key(1): {Width: 256, Height: 32, Frames: 4}}}, WithPageSize(512, 512))
	e, err := c.Get(key(1))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.FrameCount() != 4 {
		t.Fatalf("FrameCount = %d, want 4", e.FrameCount())
	}
	if e.Width() != 64 || e.Height() != 32 {
		t.Errorf("frame size %dx%d, want 64x32", e.Width(), e.Height())
	}
	if got, want := e.Frame(5), e.Frame(1); got != want {
		t.Errorf("Frame(5) = %v, want %v", got, want)
	}
	if e.Frame(1).Min.X != e.Rect().Min.X+64 {
		t.Errorf("frame 1 starts at %d", e.Frame(1).Min.X)
	}
}
