package watch

import (
	"errors"
	"sync"
	"testing"
	"time"

	"miclock/audio"
)

func drain(q *Queue) []Event {
	var out []Event
	for {
		ev, err := q.TryRecv()
		if err != nil {
			return out
		}
		out = append(out, ev)
	}
}

func TestStartRegistersAllListeners(t *testing.T) {
	hal := audio.NewFakeHAL()
	n := New(hal)
	if err := n.Start(); err != nil {
		t.Fatal(err)
	}
	for _, sel := range []audio.Selector{audio.SelDefaultInput, audio.SelDevices, audio.SelServiceRestart} {
		if hal.ListenerCount(sel) != 1 {
			t.Errorf("%s: %d listeners, want 1", sel, hal.ListenerCount(sel))
		}
	}
	if err := n.Start(); !errors.Is(err, ErrRunning) {
		t.Errorf("second Start: got %v, want ErrRunning", err)
	}
	if err := n.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestMandatoryRegistrationFailure(t *testing.T) {
	for _, sel := range []audio.Selector{audio.SelDefaultInput, audio.SelDevices} {
		hal := audio.NewFakeHAL()
		hal.FailListener(sel, 7)
		n := New(hal)
		err := n.Start()
		var serr *audio.SubsystemError
		if !errors.As(err, &serr) {
			t.Fatalf("%s: got %v, want SubsystemError", sel, err)
		}
		for _, s := range []audio.Selector{audio.SelDefaultInput, audio.SelDevices, audio.SelServiceRestart} {
			if hal.ListenerCount(s) != 0 {
				t.Errorf("%s failure left %s registered", sel, s)
			}
		}
	}
}

func TestOptionalRegistrationFailure(t *testing.T) {
	hal := audio.NewFakeHAL()
	hal.FailListener(audio.SelServiceRestart, 7)
	n := New(hal)
	if err := n.Start(); err != nil {
		t.Fatalf("service-restarted failure must not abort start: %v", err)
	}
	if got := len(n.Registered()); got != 2 {
		t.Errorf("registered %d, want 2", got)
	}
	if err := n.Stop(); err != nil {
		t.Fatalf("stop should mirror the two registrations: %v", err)
	}
	if hal.ListenerCount(audio.SelDefaultInput) != 0 || hal.ListenerCount(audio.SelDevices) != 0 {
		t.Error("listeners left behind")
	}
}

func TestCallbackMapping(t *testing.T) {
	hal := audio.NewFakeHAL()
	n := New(hal)
	if err := n.Start(); err != nil {
		t.Fatal(err)
	}
	defer n.Stop()

	hal.Fire(audio.SelDevices, audio.SelDefaultInput, audio.SelServiceRestart)
	got := drain(n.Events())
	want := []Event{DevicesChanged, DefaultInputChanged, ServiceRestarted}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCallbackWithoutPropertyList(t *testing.T) {
	hal := audio.NewFakeHAL()
	n := New(hal)
	if err := n.Start(); err != nil {
		t.Fatal(err)
	}
	defer n.Stop()

	hal.Fire()
	got := drain(n.Events())
	if len(got) != 1 || got[0] != DefaultInputChanged {
		t.Errorf("got %v, want [default_input_changed]", got)
	}
}

func TestNoCallbackAfterStop(t *testing.T) {
	hal := audio.NewFakeHAL()
	n := New(hal)
	if err := n.Start(); err != nil {
		t.Fatal(err)
	}
	if err := n.Stop(); err != nil {
		t.Fatal(err)
	}
	hal.Fire(audio.SelDefaultInput)
	if _, ok := n.Events().Recv(); ok {
		t.Error("event delivered after stop")
	}
}

func TestQueueFIFOAndClose(t *testing.T) {
	q := NewQueue()
	q.Publish(DevicesChanged)
	q.Publish(DefaultInputChanged)
	q.Close()
	if q.Publish(ServiceRestarted) {
		t.Error("publish after close accepted")
	}
	if ev, ok := q.Recv(); !ok || ev != DevicesChanged {
		t.Errorf("first = %v %v", ev, ok)
	}
	if ev, ok := q.Recv(); !ok || ev != DefaultInputChanged {
		t.Errorf("second = %v %v", ev, ok)
	}
	if _, ok := q.Recv(); ok {
		t.Error("recv after drain should report closed")
	}
	if _, err := q.TryRecv(); err != ErrClosed {
		t.Errorf("TryRecv = %v, want ErrClosed", err)
	}
}

func TestQueueRecvBlocksUntilPublish(t *testing.T) {
	q := NewQueue()
	got := make(chan Event, 1)
	go func() {
		ev, _ := q.Recv()
		got <- ev
	}()

	select {
	case <-got:
		t.Fatal("Recv returned on empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	q.Publish(ServiceRestarted)
	select {
	case ev := <-got:
		if ev != ServiceRestarted {
			t.Errorf("got %s", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Recv")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()
	const producers, each = 8, 200
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				q.Publish(DevicesChanged)
			}
		}()
	}
	go func() {
		wg.Wait()
		q.Close()
	}()

	n := 0
	for {
		if _, ok := q.Recv(); !ok {
			break
		}
		n++
	}
	if n != producers*each {
		t.Errorf("received %d, want %d", n, producers*each)
	}
}
