package lock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"miclock/audio"
	"miclock/watch"
)

type countingEnforcer struct {
	mu    sync.Mutex
	calls int
}

func (e *countingEnforcer) Enforce() (Result, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return Result{}, nil
}

func (e *countingEnforcer) Snapshot() Snapshot { return Snapshot{} }

func (e *countingEnforcer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type chanRefresher chan struct{}

func (r chanRefresher) RequestRefresh() {
	select {
	case r <- struct{}{}:
	default:
	}
}

func waitRefresh(t *testing.T, r chanRefresher) {
	t.Helper()
	select {
	case <-r:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh")
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestDebounceCoalescesBurst(t *testing.T) {
	q := watch.NewQueue()
	e := &countingEnforcer{}
	r := make(chanRefresher, 1)
	w := NewWorker(q, e, r)
	done := w.Start()

	for i := 0; i < 10; i++ {
		q.Publish(watch.DevicesChanged)
		time.Sleep(5 * time.Millisecond)
	}
	waitRefresh(t, r)

	// nothing else queued: no second pass
	time.Sleep(DebounceWindow + 50*time.Millisecond)
	if got := e.count(); got != 1 {
		t.Errorf("enforce called %d times, want 1", got)
	}

	q.Close()
	waitDone(t, done)
	if w.Passes() != 1 {
		t.Errorf("passes = %d", w.Passes())
	}
}

func TestDebounceWaitsForWindow(t *testing.T) {
	q := watch.NewQueue()
	e := &countingEnforcer{}
	r := make(chanRefresher, 1)
	w := NewWorker(q, e, r)
	done := w.Start()

	start := time.Now()
	q.Publish(watch.DefaultInputChanged)
	waitRefresh(t, r)
	if elapsed := time.Since(start); elapsed < DebounceWindow {
		t.Errorf("enforced after %v, before the debounce window", elapsed)
	}

	q.Close()
	waitDone(t, done)
}

func TestDebounceBoundedUnderFlood(t *testing.T) {
	q := watch.NewQueue()
	e := &countingEnforcer{}
	r := make(chanRefresher, 1)
	w := NewWorker(q, e, r)

	stop := make(chan struct{})
	flooding := make(chan struct{})
	go func() {
		defer close(flooding)
		for {
			select {
			case <-stop:
				return
			default:
				q.Publish(watch.DevicesChanged)
			}
		}
	}()
	defer func() {
		close(stop)
		<-flooding
		q.Close()
	}()

	start := time.Now()
	w.Start()
	waitRefresh(t, r)
	if elapsed := time.Since(start); elapsed > DebounceWindow+50*time.Millisecond {
		t.Errorf("first pass after %v under a constant flood", elapsed)
	}
}

func TestSeparateBurstsEnforceSeparately(t *testing.T) {
	q := watch.NewQueue()
	e := &countingEnforcer{}
	r := make(chanRefresher, 1)
	w := NewWorker(q, e, r, WithDebounce(20*time.Millisecond, time.Millisecond))
	done := w.Start()

	q.Publish(watch.DevicesChanged)
	waitRefresh(t, r)
	q.Publish(watch.DefaultInputChanged)
	waitRefresh(t, r)

	q.Close()
	waitDone(t, done)
	if got := e.count(); got != 2 {
		t.Errorf("enforce called %d times, want 2", got)
	}
}

func TestWorkerExitsOnClose(t *testing.T) {
	q := watch.NewQueue()
	e := &countingEnforcer{}
	done := NewWorker(q, e, nil).Start()
	q.Close()
	waitDone(t, done)
	if e.count() != 0 {
		t.Error("enforced without any event")
	}
}

func TestCloseDuringDebounceStillEnforces(t *testing.T) {
	q := watch.NewQueue()
	e := &countingEnforcer{}
	q.Publish(watch.ServiceRestarted)
	q.Publish(watch.DevicesChanged)
	q.Close()

	NewWorker(q, e, nil).Run()
	if got := e.count(); got != 1 {
		t.Errorf("enforce called %d times, want 1", got)
	}
}

func TestInitialPass(t *testing.T) {
	e := &countingEnforcer{}
	var refreshed atomic.Int32
	start := time.Now()
	done := InitialPass(e, RefreshFunc(func() { refreshed.Add(1) }), InitialDelay)
	waitDone(t, done)
	if time.Since(start) < InitialDelay {
		t.Error("initial pass ran before its delay")
	}
	if e.count() != 1 || refreshed.Load() != 1 {
		t.Errorf("enforce=%d refresh=%d, want 1 and 1", e.count(), refreshed.Load())
	}
}

func TestPipelineCorrectsExternalChange(t *testing.T) {
	hal := audio.NewFakeHAL(micA, micB)
	hal.SetDefault(micA.ID)
	c := New(audio.NewDirectory(hal), true, "UID-A")

	n := watch.New(hal)
	if err := n.Start(); err != nil {
		t.Fatal(err)
	}
	r := make(chanRefresher, 1)
	done := NewWorker(n.Events(), c, r).Start()

	// another application switches the default input
	hal.SetDefault(micB.ID)
	hal.Fire(audio.SelDefaultInput)
	waitRefresh(t, r)

	got, err := hal.DefaultInputDevice()
	if err != nil || got != micA.ID {
		t.Errorf("default = %d, %v; want %d", got, err, micA.ID)
	}

	if err := n.Stop(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, done)
}
