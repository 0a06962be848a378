package live

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet period before a scheduled pass runs.
const DefaultWindow = 300 * time.Millisecond

// Debouncer coalesces bursts of triggers into a single run of task. It keeps
// one pending timer: each Trigger restarts it, and when it fires task runs
// once. Runs never overlap; a trigger that arrives while task is running
// schedules another run after the window.
type Debouncer struct {
	window time.Duration
	task   func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool

	runMu sync.Mutex
}

// NewDebouncer returns a Debouncer running task after window of quiet.
// A non-positive window uses DefaultWindow.
func NewDebouncer(window time.Duration, task func()) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window, task: task}
}

// Trigger (re)starts the pending timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A timer that was stopped too late may still call in; only the latest counts.
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()
	d.run()
}

func (d *Debouncer) run() {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	d.task()
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush runs a pending task now instead of waiting for the timer. It reports
// whether anything was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.gen++
	d.mu.Unlock()
	d.run()
	return true
}

// Stop cancels any pending run and ignores later triggers. It waits for a run
// in progress to finish.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	// wait for an in-flight run
	d.runMu.Lock()
	defer d.runMu.Unlock()
}
