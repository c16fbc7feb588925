package atlas

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// solidLoader returns a sprite filled with a colour derived from the key.
type solidLoader struct {
	mu    sync.Mutex
	infos InfoProvider
	fail  map[Key]bool
	order []Key
	block chan struct{}
}

func (l *solidLoader) LoadResource(ctx context.Context, k Key) (image.Image, error) {
	l.mu.Lock()
	l.order = append(l.order, k)
	l.mu.Unlock()

	if l.block != nil {
		select {
		case <-l.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.fail[k] {
		return nil, errors.New("corrupt bitmap")
	}
	info, _ := l.infos.Info(k)
	img := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
	c := color.RGBA{R: uint8(k.Resource), G: 10, B: 20, A: 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img, nil
}

// stepClock advances by step every time it is read.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func quietLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

func TestSchedulerLoadsIntoPage(t *testing.T) {
	infos := squares(8)
	c := NewCache(infos, WithPageSize(64, 64))
	loader := &solidLoader{infos: infos}
	s := NewScheduler(c, loader)
	defer s.Close()

	e, _ := c.Get(key(7))
	r := s.Tick()
	if r.Dispatched != 1 {
		t.Fatalf("Dispatched = %d, want 1", r.Dispatched)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", c.Pending())
	}
	if e.Loaded() {
		t.Error("pixels must not be applied before the next tick")
	}

	s.Wait()
	r = s.Tick()
	if r.Applied != 1 {
		t.Fatalf("Applied = %d, want 1", r.Applied)
	}
	if !e.Loaded() {
		t.Error("entry should be loaded")
	}
	origin := e.Rect().Min
	if got := e.Page().Image().RGBAAt(origin.X, origin.Y); got.R != 7 || got.A != 255 {
		t.Errorf("page pixel = %v, want the loaded colour", got)
	}
	if e.Page().Version() == 0 {
		t.Error("page version should advance on write")
	}
}

func TestSchedulerServesHottestFirst(t *testing.T) {
	infos := squares(8)
	c := NewCache(infos, WithPageSize(64, 64))
	loader := &solidLoader{infos: infos}

	// Every clock read costs 2ms, so only the first entry fits a 1ms budget.
	clk := &stepClock{t: time.Unix(0, 0), step: 2 * time.Millisecond}
	s := NewScheduler(c, loader, WithClock(clk.now), WithMaxBudget(time.Millisecond), WithMaxConcurrent(1))
	defer s.Close()

	cold, _ := c.Get(key(1))
	warm, _ := c.Get(key(2))
	hot, _ := c.Get(key(3))
	warm.IncRef()
	hot.IncRef()
	hot.IncRef()

	r := s.Tick()
	if r.Dispatched != 1 {
		t.Fatalf("Dispatched = %d, want 1", r.Dispatched)
	}
	s.Wait()
	if got := loader.order; len(got) != 1 || got[0] != hot.Key() {
		t.Fatalf("loaded %v first, want %v", got, hot.Key())
	}
	if c.Pending() != 2 || c.pending[0] != warm || c.pending[1] != cold {
		t.Errorf("remaining queue is not warm, cold")
	}

	s.Tick()
	s.Wait()
	s.Tick()
	s.Wait()
	want := []Key{hot.Key(), warm.Key(), cold.Key()}
	for i, k := range want {
		if loader.order[i] != k {
			t.Errorf("load %d = %v, want %v", i, loader.order[i], k)
		}
	}
}

func TestSchedulerDispatchWaitsForFreeSlots(t *testing.T) {
	infos := squares(8)
	c := NewCache(infos, WithPageSize(64, 64))
	loader := &solidLoader{infos: infos, block: make(chan struct{})}
	s := NewScheduler(c, loader, WithMaxConcurrent(2))
	defer s.Close()

	for i := 1; i <= 5; i++ {
		if _, err := c.Get(key(i)); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}

	steps := []struct {
		name       string
		release    bool
		applied    int
		dispatched int
		pending    int
	}{
		{"fills the slots", false, 0, 2, 3},
		{"slots busy", false, 0, 0, 3},
		{"slots freed", true, 2, 2, 1},
		{"drains the queue", true, 2, 1, 0},
		{"last result", true, 1, 0, 0},
	}
	for i, st := range steps {
		if st.release {
			if i > 0 && !steps[i-1].release {
				close(loader.block)
			}
			s.Wait()
		}
		r := s.Tick()
		if r.Applied != st.applied || r.Dispatched != st.dispatched || c.Pending() != st.pending {
			t.Errorf("%s: Applied=%d Dispatched=%d Pending=%d, want %d %d %d",
				st.name, r.Applied, r.Dispatched, c.Pending(), st.applied, st.dispatched, st.pending)
		}
	}
}

func TestSchedulerBudget(t *testing.T) {
	tests := []struct {
		fps  float64
		want time.Duration
	}{
		{60, MaxLoadBudget},
		{250, 2 * time.Millisecond},
		{0, MaxLoadBudget},
	}
	for _, tt := range tests {
		fps := tt.fps
		s := NewScheduler(NewCache(squares(1), WithPageSize(8, 8)), &solidLoader{}, WithFrameRate(func() float64 { return fps }))
		if got := s.Budget(); got != tt.want {
			t.Errorf("fps %v: Budget = %v, want %v", tt.fps, got, tt.want)
		}
		s.Close()
	}
}

func TestSchedulerFailureIsReported(t *testing.T) {
	infos := squares(8)
	c := NewCache(infos, WithPageSize(64, 64))
	logger, hook := quietLogger()
	loader := &solidLoader{infos: infos, fail: map[Key]bool{key(9): true}}
	s := NewScheduler(c, loader, WithSchedulerLogger(logger))
	defer s.Close()

	e, _ := c.Get(key(9))
	s.Tick()
	s.Wait()
	r := s.Tick()

	if r.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", r.Failed)
	}
	if e.Loaded() {
		t.Error("failed entry must stay blank")
	}
	if c.Pending() != 0 {
		t.Error("failed loads are not retried")
	}
	last := hook.LastEntry()
	if last == nil || last.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %v", last)
	}
}

func TestSchedulerSkipsEvictedEntry(t *testing.T) {
	infos := squares(64)
	c := NewEvictingCache(infos, WithPageSize(64, 64))
	loader := &solidLoader{infos: infos, block: make(chan struct{})}
	s := NewScheduler(c, loader)
	defer s.Close()

	first, _ := c.Get(key(1))
	s.Tick() // load of first is now in flight

	// The page is full and first is unused, so this evicts it and takes its rectangle.
	second, err := c.Get(key(2))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !first.Evicted() {
		t.Fatal("expected first to be evicted")
	}
	second.IncRef()

	close(loader.block)
	s.Wait()
	r := s.Tick()
	if r.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", r.Skipped)
	}
	if first.Loaded() {
		t.Error("evicted entry must not be marked loaded")
	}
	p := second.Page().Image().RGBAAt(second.Rect().Min.X, second.Rect().Min.Y)
	if p.R == 1 {
		t.Error("a stale load wrote into a rectangle it no longer owns")
	}
}
