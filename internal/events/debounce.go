package events

import (
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces bursts of keyed triggers into one flush that fires after
// delay has passed with no new trigger.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	gen     uint64
	stopped bool

	out chan []string
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]struct{}),
		out:     make(chan []string, 1),
	}
}

// C delivers the sorted set of keys coalesced into each flush.
func (d *Debouncer) C() <-chan []string {
	return d.out
}

func (d *Debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[key] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.flush(gen) })
}

func (d *Debouncer) flush(gen uint64) {
	d.mu.Lock()
	// gen guards against a timer that fired while Trigger was re-arming.
	if d.stopped || gen != d.gen || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	d.pending = make(map[string]struct{})
	d.timer = nil
	d.mu.Unlock()

	sort.Strings(keys)
	select {
	case d.out <- keys:
	default:
		// A flush is already queued; its consumer re-reads all local state.
	}
}

// Stop cancels any pending flush.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]struct{})
}
