package lock

import (
	"time"

	"miclock/log"
	"miclock/watch"
)

// Enforcer runs one enforcement pass.
type Enforcer interface {
	Enforce() (Result, error)
	Snapshot() Snapshot
}

// Refresher is told to redraw after every pass. RequestRefresh is called from
// the worker goroutine and must not block; extra calls may be coalesced.
type Refresher interface {
	RequestRefresh()
}

// RefreshFunc adapts a plain function to Refresher.
type RefreshFunc func()

func (f RefreshFunc) RequestRefresh() { f() }

// Worker drains the event queue, collapses bursts and runs Enforce once per
// burst.
type Worker struct {
	events    *watch.Queue
	enforcer  Enforcer
	refresher Refresher
	window    time.Duration
	poll      time.Duration
	passes    int
}

type WorkerOption func(*Worker)

// WithDebounce overrides the debounce window and poll interval.
func WithDebounce(window, poll time.Duration) WorkerOption {
	return func(w *Worker) {
		w.window = window
		w.poll = poll
	}
}

func NewWorker(events *watch.Queue, enforcer Enforcer, refresher Refresher, opts ...WorkerOption) *Worker {
	w := &Worker{
		events:    events,
		enforcer:  enforcer,
		refresher: refresher,
		window:    DebounceWindow,
		poll:      DebouncePoll,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run blocks until the queue is closed and drained.
func (w *Worker) Run() {
	for {
		first, ok := w.events.Recv()
		if !ok {
			return
		}
		n, closed := w.debounce()
		log.Debounce(n+1, first.String())
		w.pass("event")
		if closed {
			return
		}
	}
}

// Start runs the worker on its own goroutine. The returned channel is closed
// when Run returns.
func (w *Worker) Start() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run()
	}()
	return done
}

// Passes is the number of enforcement passes run so far. Only meaningful
// after Run has returned.
func (w *Worker) Passes() int { return w.passes }

// debounce polls the queue until the window measured from the first event
// has passed. It reports how many further events it absorbed and whether
// the queue was closed meanwhile. A queue that never empties does not
// extend the window.
func (w *Worker) debounce() (absorbed int, closed bool) {
	deadline := time.Now().Add(w.window)
	for {
		for {
			if !time.Now().Before(deadline) {
				return absorbed, false
			}
			_, err := w.events.TryRecv()
			if err == watch.ErrClosed {
				return absorbed, true
			}
			if err != nil {
				break
			}
			absorbed++
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return absorbed, false
		}
		time.Sleep(min(w.poll, remaining))
	}
}

func (w *Worker) pass(trigger string) {
	w.passes++
	runPass(w.enforcer, w.refresher, trigger)
}

func runPass(e Enforcer, r Refresher, trigger string) (Result, error) {
	start := time.Now()
	res, err := e.Enforce()
	snap := e.Snapshot()
	log.Enforce(log.EnforceData{
		Trigger:       trigger,
		Enabled:       snap.Enabled,
		LockedUID:     snap.LockedUID,
		Changed:       res.Changed,
		LockedMissing: res.LockedMissing,
		DurationMs:    float64(time.Since(start).Microseconds()) / 1000,
		Err:           err,
	})
	if r != nil {
		r.RequestRefresh()
	}
	return res, err
}

// RunPass runs one enforcement pass outside the event loop, the way UI
// actions do, and requests a refresh afterwards.
func RunPass(e Enforcer, r Refresher) (Result, error) {
	return runPass(e, r, "action")
}

// InitialPass runs one enforcement pass after delay, independent of any
// event, to fix up state set before the listeners were live.
func InitialPass(e Enforcer, r Refresher, delay time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(delay)
		runPass(e, r, "initial")
	}()
	return done
}
