package lock

import (
	"errors"
	"testing"
	"time"

	"miclock/audio"
)

var (
	micA = audio.FakeDevice{ID: 10, UID: "UID-A", Name: "USB Mic", Channels: 1}
	micB = audio.FakeDevice{ID: 20, UID: "UID-B", Name: "MacBook Pro Microphone", Channels: 1}
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newController(t *testing.T, hal *audio.FakeHAL, enabled bool, uid string) (*Controller, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	return New(audio.NewDirectory(hal), enabled, uid, WithClock(clk.now)), clk
}

func TestEnforceCorrectsDrift(t *testing.T) {
	hal := audio.NewFakeHAL(micA, micB)
	hal.SetDefault(micB.ID)
	c, _ := newController(t, hal, true, "UID-A")

	res, err := c.Enforce()
	if err != nil {
		t.Fatal(err)
	}
	if res != (Result{Changed: true}) {
		t.Errorf("got %+v, want changed", res)
	}
	if w := hal.Writes(); len(w) != 1 || w[0] != micA.ID {
		t.Errorf("writes = %v, want [%d]", w, micA.ID)
	}
}

func TestEnforceIdempotent(t *testing.T) {
	hal := audio.NewFakeHAL(micA, micB)
	hal.SetDefault(micA.ID)
	c, clk := newController(t, hal, true, "UID-A")

	for i := 0; i < 3; i++ {
		clk.advance(time.Second)
		res, err := c.Enforce()
		if err != nil {
			t.Fatal(err)
		}
		if res.Changed {
			t.Errorf("pass %d reported a change", i)
		}
	}
	if w := hal.Writes(); len(w) != 0 {
		t.Errorf("writes = %v, want none", w)
	}
}

func TestEnforceDisabledTouchesNothing(t *testing.T) {
	for _, uid := range []string{"", "UID-A", "UID-X"} {
		hal := audio.NewFakeHAL(micA, micB)
		hal.SetDefault(micB.ID)
		c, _ := newController(t, hal, false, uid)

		res, err := c.Enforce()
		if err != nil {
			t.Fatal(err)
		}
		if res != (Result{}) {
			t.Errorf("uid %q: got %+v", uid, res)
		}
		if hal.Calls() != 0 {
			t.Errorf("uid %q: %d subsystem calls, want 0", uid, hal.Calls())
		}
	}
}

func TestEnforceEnabledWithoutTarget(t *testing.T) {
	hal := audio.NewFakeHAL(micA)
	c, _ := newController(t, hal, true, "")
	res, err := c.Enforce()
	if err != nil || res != (Result{}) {
		t.Errorf("got %+v, %v", res, err)
	}
	if hal.Calls() != 0 {
		t.Errorf("%d subsystem calls, want 0", hal.Calls())
	}
}

func TestEnforceUnresolvedSetsMissing(t *testing.T) {
	hal := audio.NewFakeHAL(micA, micB)
	hal.SetDefault(micB.ID)
	c, _ := newController(t, hal, true, "UID-X")

	res, err := c.Enforce()
	if err != nil {
		t.Fatal(err)
	}
	if res != (Result{LockedMissing: true}) {
		t.Errorf("got %+v", res)
	}
	snap := c.Snapshot()
	if !snap.LockedMissing {
		t.Error("snapshot not marked missing")
	}
	if snap.State() != "enabled-missing" {
		t.Errorf("state = %s", snap.State())
	}
	if len(hal.Writes()) != 0 {
		t.Error("wrote default for an unresolved device")
	}
}

func TestMissingFlagLifecycle(t *testing.T) {
	hal := audio.NewFakeHAL(micB)
	hal.SetDefault(micB.ID)
	c, clk := newController(t, hal, true, "UID-B")

	c.SetLockedUID("UID-A")
	res, err := c.Enforce()
	if err != nil {
		t.Fatal(err)
	}
	if !res.LockedMissing || res.Changed {
		t.Fatalf("got %+v, want missing", res)
	}

	hal.Plug(micA)
	clk.advance(time.Second)
	res, err = c.Enforce()
	if err != nil {
		t.Fatal(err)
	}
	if res != (Result{Changed: true}) {
		t.Errorf("got %+v, want changed", res)
	}
	if c.Snapshot().LockedMissing {
		t.Error("missing flag not cleared")
	}

	clk.advance(time.Second)
	if res, _ := c.Enforce(); res.Changed {
		t.Error("second pass wrote again")
	}
	if w := hal.Writes(); len(w) != 1 {
		t.Errorf("writes = %v, want exactly one", w)
	}
}

func TestSetLockedUIDClearsMissing(t *testing.T) {
	hal := audio.NewFakeHAL(micB)
	c, _ := newController(t, hal, true, "UID-X")
	c.Enforce()
	if !c.Snapshot().LockedMissing {
		t.Fatal("expected missing")
	}
	c.SetLockedUID("UID-Y")
	if c.Snapshot().LockedMissing {
		t.Error("re-selection must clear missing")
	}
}

func TestMissingClearedWhenAlreadyDefault(t *testing.T) {
	hal := audio.NewFakeHAL(micB)
	hal.SetDefault(micB.ID)
	c, _ := newController(t, hal, true, "UID-A")
	c.Enforce()

	hal.Plug(micA)
	hal.SetDefault(micA.ID)
	res, err := c.Enforce()
	if err != nil {
		t.Fatal(err)
	}
	if res != (Result{}) || c.Snapshot().LockedMissing {
		t.Errorf("got %+v missing=%v", res, c.Snapshot().LockedMissing)
	}
}

func TestSelfSuppression(t *testing.T) {
	hal := audio.NewFakeHAL(micA, micB)
	hal.SetDefault(micB.ID)
	c, clk := newController(t, hal, true, "UID-A")

	if res, _ := c.Enforce(); !res.Changed {
		t.Fatal("first pass should write")
	}
	// the subsystem has not caught up with our write yet
	hal.SetDefault(micB.ID)

	clk.advance(100 * time.Millisecond)
	res, err := c.Enforce()
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed {
		t.Error("write repeated inside the suppression window")
	}
	if w := hal.Writes(); len(w) != 1 {
		t.Errorf("writes = %v, want one", w)
	}

	clk.advance(SelfSuppressWindow)
	if res, _ := c.Enforce(); !res.Changed {
		t.Error("drift after the window must be corrected")
	}
	if w := hal.Writes(); len(w) != 2 {
		t.Errorf("writes = %v, want two", w)
	}
}

func TestSelfSuppressionOnlyForSameTarget(t *testing.T) {
	hal := audio.NewFakeHAL(micA, micB)
	hal.SetDefault(micB.ID)
	c, clk := newController(t, hal, true, "UID-A")
	c.Enforce()

	c.SetLockedUID("UID-B")
	hal.SetDefault(micA.ID)
	clk.advance(50 * time.Millisecond)
	res, err := c.Enforce()
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed {
		t.Error("a different target must not be suppressed")
	}
}

func TestTranslationFallback(t *testing.T) {
	hal := audio.NewFakeHAL(micA, micB)
	hal.SetDefault(micB.ID)
	hal.FailTranslation(true)
	c, _ := newController(t, hal, true, "UID-A")

	res, err := c.Enforce()
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed {
		t.Errorf("got %+v, want changed through scan fallback", res)
	}
}

func TestEnforceWriteFailure(t *testing.T) {
	hal := audio.NewFakeHAL(micA, micB)
	hal.SetDefault(micB.ID)
	hal.FailOp("SetDefaultInputDevice", 1852797029)
	c, _ := newController(t, hal, true, "UID-A")

	_, err := c.Enforce()
	var serr *audio.SubsystemError
	if !errors.As(err, &serr) {
		t.Fatalf("got %v, want SubsystemError", err)
	}
	if serr.Code != 1852797029 {
		t.Errorf("code = %d", serr.Code)
	}
	if c.Snapshot().LockedMissing {
		t.Error("a failed write is not a missing device")
	}
}

func TestEnforceNoDefaultYet(t *testing.T) {
	hal := audio.NewFakeHAL(micA)
	c, _ := newController(t, hal, true, "UID-A")

	res, err := c.Enforce()
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed {
		t.Error("an unset default should be replaced by the locked device")
	}
}

func TestSnapshotStates(t *testing.T) {
	tests := []struct {
		snap Snapshot
		want string
	}{
		{Snapshot{}, "disabled"},
		{Snapshot{Enabled: true}, "enabled-unset"},
		{Snapshot{Enabled: true, LockedUID: "u"}, "enabled-resolved"},
		{Snapshot{Enabled: true, LockedUID: "u", LockedMissing: true}, "enabled-missing"},
	}
	for _, tt := range tests {
		if got := tt.snap.State(); got != tt.want {
			t.Errorf("%+v: got %s, want %s", tt.snap, got, tt.want)
		}
	}
}
