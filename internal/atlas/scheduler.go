package atlas

import (
	"context"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"isotile/internal/log"
)

// MaxLoadBudget caps the time a tick spends dispatching loads.
const MaxLoadBudget = 3 * time.Millisecond

// PixelLoader fetches the pixels of a sprite. It is called off the tick
// goroutine and may block.
type PixelLoader interface {
	LoadResource(ctx context.Context, key Key) (image.Image, error)
}

type loadResult struct {
	entry *Entry
	img   image.Image
	err   error
}

// Scheduler fills newly reserved entries with pixels. Loads run on their own
// goroutines; results are only written into pages from Tick.
type Scheduler struct {
	cache  *Cache
	loader PixelLoader

	fps       func() float64
	now       func() time.Time
	maxBudget time.Duration
	sem       *semaphore.Weighted
	log       logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	done []loadResult
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithFrameRate supplies the current frames per second, used to size the
// per-tick budget.
func WithFrameRate(fps func() float64) SchedulerOption {
	return func(s *Scheduler) { s.fps = fps }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithMaxBudget overrides MaxLoadBudget.
func WithMaxBudget(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.maxBudget = d }
}

// WithMaxConcurrent bounds the number of loads running at once. Entries
// beyond it wait in the cache's pending queue.
func WithMaxConcurrent(n int64) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(l logrus.FieldLogger) SchedulerOption {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler creates a scheduler draining cache's pending queue.
func NewScheduler(cache *Cache, loader PixelLoader, opts ...SchedulerOption) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cache:     cache,
		loader:    loader,
		fps:       func() float64 { return 60 },
		now:       time.Now,
		maxBudget: MaxLoadBudget,
		sem:       semaphore.NewWeighted(8),
		log:       log.Entry("loader"),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TickReport describes the work done by one Tick.
type TickReport struct {
	Applied    int
	Failed     int
	Skipped    int
	Dispatched int
	Elapsed    time.Duration
}

// Tick applies finished loads, then dispatches pending entries hottest first
// until the frame budget is spent or every load slot is busy.
func (s *Scheduler) Tick() TickReport {
	var r TickReport
	s.applyCompleted(&r)
	s.dispatch(&r)
	if r.Dispatched > 0 {
		s.log.Debugf("sent %d assets to the loader in %v", r.Dispatched, r.Elapsed)
	}
	return r
}

// Budget returns the dispatch budget for the current frame rate.
func (s *Scheduler) Budget() time.Duration {
	fps := s.fps()
	if fps <= 0 {
		return s.maxBudget
	}
	half := time.Duration(float64(time.Second) / fps / 2)
	return min(s.maxBudget, half)
}

func (s *Scheduler) dispatch(r *TickReport) {
	pending := s.cache.pending
	if len(pending) == 0 {
		return
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].refCount > pending[j].refCount
	})

	budget := s.Budget()
	start := s.now()
	n := 0
	for _, e := range pending {
		if !s.sem.TryAcquire(1) {
			break
		}
		s.start(e)
		n++
		r.Elapsed = s.now().Sub(start)
		if r.Elapsed > budget {
			break
		}
	}
	r.Dispatched = n

	rest := make([]*Entry, len(pending)-n)
	copy(rest, pending[n:])
	s.cache.pending = rest
}

// start runs one load on a slot already taken from sem.
func (s *Scheduler) start(e *Entry) {
	key := e.key
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)

		img, err := s.loader.LoadResource(s.ctx, key)
		s.finish(loadResult{entry: e, img: img, err: err})
	}()
}

func (s *Scheduler) finish(res loadResult) {
	s.mu.Lock()
	s.done = append(s.done, res)
	s.mu.Unlock()
}

func (s *Scheduler) applyCompleted(r *TickReport) {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()

	for _, res := range done {
		e := res.entry
		switch {
		case e.evicted:
			// the rectangle may already belong to another entry
			r.Skipped++
		case res.err != nil:
			r.Failed++
			s.log.WithError(res.err).Warnf("failed to load asset %s", e.key)
		case res.img == nil:
			r.Failed++
			s.log.Warnf("loader returned no pixels for asset %s", e.key)
		default:
			e.page.write(e.Rect(), res.img)
			e.loaded = true
			r.Applied++
		}
	}
}

// Wait blocks until every dispatched load has finished. The results are
// applied by the next Tick.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close cancels outstanding loads and waits for their goroutines.
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}
