package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTickInterval is the live-duration refresh cadence.
const DefaultTickInterval = time.Second

// Ticker invokes a callback on a fixed interval between Start and Stop. Start
// and Stop are idempotent and never block on an in-flight callback.
type Ticker struct {
	interval time.Duration
	onTick   func(count uint64)

	mu    sync.Mutex
	stop  chan struct{}
	count atomic.Uint64
}

// NewTicker builds a stopped ticker.
func NewTicker(interval time.Duration, onTick func(count uint64)) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{interval: interval, onTick: onTick}
}

// Start begins ticking if not already running.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	stop := make(chan struct{})
	t.stop = stop
	go t.loop(stop)
}

// Stop halts ticking if running.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
}

// Running reports whether the ticker is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

// Count returns the number of ticks fired so far.
func (t *Ticker) Count() uint64 {
	return t.count.Load()
}

// Interval returns the configured cadence.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

func (t *Ticker) loop(stop <-chan struct{}) {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			select {
			case <-stop:
				return
			default:
			}
			n := t.count.Add(1)
			if t.onTick != nil {
				t.onTick(n)
			}
		}
	}
}
