// Package frame drives per-frame work: a fixed-rate loop that drains queued
// input before each tick, and a clock that tracks the achieved frame rate.
package frame

import (
	"context"
	"time"
)

const (
	// DefaultRate is the tick rate when none is configured.
	DefaultRate = 20
	// InputChanSize bounds queued input between ticks.
	InputChanSize = 256
)

// Loop calls OnInput for every queued event and then OnTick, Rate times per
// second. Both callbacks run on the goroutine that called Run, so they may
// share state without locking.
type Loop[E any] struct {
	Rate    int
	OnInput func(E)
	OnTick  func(now time.Time, delta time.Duration) error

	inputCh chan E
	clock   *Clock
	ticks   uint64
	stopCh  chan struct{}
}

// NewLoop returns a loop ticking at rate.
func NewLoop[E any](rate int) *Loop[E] {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Loop[E]{
		Rate:    rate,
		inputCh: make(chan E, InputChanSize),
		clock:   NewClock(float64(rate)),
		stopCh:  make(chan struct{}),
	}
}

// Input returns the channel producers send events on.
func (l *Loop[E]) Input() chan<- E {
	return l.inputCh
}

// Clock returns the loop's frame clock.
func (l *Loop[E]) Clock() *Clock { return l.clock }

// Ticks returns how many ticks have run.
func (l *Loop[E]) Ticks() uint64 { return l.ticks }

// Run ticks until ctx is done, Stop is called or OnTick fails.
func (l *Loop[E]) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(l.Rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return nil
		case now := <-ticker.C:
			if err := l.Step(now); err != nil {
				return err
			}
		}
	}
}

// Stop ends Run. It must be called at most once.
func (l *Loop[E]) Stop() {
	close(l.stopCh)
}

// Step drains pending input and runs one tick at now.
func (l *Loop[E]) Step(now time.Time) error {
drain:
	for {
		select {
		case ev := <-l.inputCh:
			if l.OnInput != nil {
				l.OnInput(ev)
			}
		default:
			break drain
		}
	}

	l.ticks++
	delta := l.clock.Tick(now)
	if l.OnTick == nil {
		return nil
	}
	return l.OnTick(now, delta)
}
