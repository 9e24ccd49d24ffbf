package app

import (
	"sync"
	"time"
)

const DefaultSearchDelay = 300 * time.Millisecond

// Debouncer runs only the last function passed to Trigger within the delay window.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	// one count per scheduled or running call
	wg sync.WaitGroup
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		fn()
	})
}

// Stop cancels a pending call, if any, and waits for one that already started.
// It must not be called concurrently with Trigger.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.cancelLocked()
	d.timer = nil
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Debouncer) cancelLocked() {
	// Stop reports false once the callback has started; it then calls Done itself.
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
}
