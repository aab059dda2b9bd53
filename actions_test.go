package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"miclock/audio"
	"miclock/chime"
	"miclock/config"
	"miclock/ctl"
	"miclock/lock"
	"miclock/tray"
)

func newTestApp(t *testing.T) (*app, *audio.FakeHAL) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	hal := audio.NewFakeHAL(
		audio.FakeDevice{ID: 10, UID: "UID-A", Name: "Mic A", Channels: 1},
		audio.FakeDevice{ID: 20, UID: "UID-B", Name: "Mic B", Channels: 2},
		audio.FakeDevice{ID: 30, UID: "UID-SPK", Name: "Speakers", Channels: 0},
	)
	hal.SetDefault(10)
	dir := audio.NewDirectory(hal)

	store, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return newApp(dir, lock.New(dir, false, ""), store), hal
}

func currentDefault(t *testing.T, hal *audio.FakeHAL) audio.DeviceID {
	t.Helper()
	id, err := hal.DefaultInputDevice()
	if err != nil {
		t.Fatalf("DefaultInputDevice: %v", err)
	}
	return id
}

func TestLockDeviceDoesNotEnable(t *testing.T) {
	a, hal := newTestApp(t)

	if err := a.lockDevice("UID-B"); err != nil {
		t.Fatalf("lockDevice: %v", err)
	}
	if n := len(hal.Writes()); n != 0 {
		t.Errorf("%d writes while disabled", n)
	}
	cfg := a.store.Get()
	if cfg.LockedUID != "UID-B" || cfg.LockEnabled {
		t.Errorf("saved %+v", cfg)
	}
}

func TestToggleLockEnforcesAndPersists(t *testing.T) {
	a, hal := newTestApp(t)
	a.lockDevice("UID-B")

	if err := a.toggleLock(); err != nil {
		t.Fatalf("toggleLock: %v", err)
	}
	if got := currentDefault(t, hal); got != 20 {
		t.Errorf("default = %d, want 20", got)
	}
	if !a.store.Get().LockEnabled {
		t.Error("enabled state not saved")
	}

	if err := a.toggleLock(); err != nil {
		t.Fatalf("toggleLock: %v", err)
	}
	if a.lock.Snapshot().Enabled || a.store.Get().LockEnabled {
		t.Error("second toggle did not disable")
	}
}

func TestUnlockClearsTarget(t *testing.T) {
	a, _ := newTestApp(t)
	a.lockDevice("UID-B")
	a.setEnabled(true)

	if err := a.unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if got := a.lock.Snapshot().State(); got != "enabled-unset" {
		t.Errorf("state = %q", got)
	}
	if uid := a.store.Get().LockedUID; uid != "" {
		t.Errorf("saved uid %q", uid)
	}
}

func TestHandleCommands(t *testing.T) {
	a, _ := newTestApp(t)

	resp := a.Handle(ctl.Request{Command: ctl.CmdStatus})
	if resp.Error != "" || resp.State != "disabled" || resp.Current != "Mic A" {
		t.Errorf("status = %+v", resp)
	}

	resp = a.Handle(ctl.Request{Command: ctl.CmdLock, UID: "UID-B"})
	if resp.Error != "" || resp.LockedName != "Mic B" || resp.Enabled {
		t.Errorf("lock = %+v", resp)
	}

	resp = a.Handle(ctl.Request{Command: ctl.CmdEnable})
	if !resp.Enabled || resp.State != "enabled-resolved" || resp.Current != "Mic B" {
		t.Errorf("enable = %+v", resp)
	}

	resp = a.Handle(ctl.Request{Command: ctl.CmdDisable})
	if resp.Enabled || resp.State != "disabled" {
		t.Errorf("disable = %+v", resp)
	}
}

func TestHandleRejectsBadRequests(t *testing.T) {
	a, _ := newTestApp(t)

	if resp := a.Handle(ctl.Request{Command: ctl.CmdLock}); !strings.Contains(resp.Error, "missing device UID") {
		t.Errorf("lock without uid: %+v", resp)
	}
	if resp := a.Handle(ctl.Request{Command: "reboot"}); !strings.Contains(resp.Error, "unknown command") {
		t.Errorf("unknown command: %+v", resp)
	}
}

func TestHandleReportsMissingDevice(t *testing.T) {
	a, hal := newTestApp(t)
	a.Handle(ctl.Request{Command: ctl.CmdLock, UID: "UID-GONE"})

	resp := a.Handle(ctl.Request{Command: ctl.CmdEnable})
	if !resp.LockedMissing || resp.State != "enabled-missing" {
		t.Errorf("enable = %+v", resp)
	}
	if n := len(hal.Writes()); n != 0 {
		t.Errorf("%d writes for a missing device", n)
	}
}

func TestViewListsInputsOnly(t *testing.T) {
	a, _ := newTestApp(t)
	a.lockDevice("UID-A")

	s := a.view()
	if len(s.Devices) != 2 {
		t.Fatalf("devices = %+v", s.Devices)
	}
	if s.LockedName != "Mic A" || s.CurrentName != "Mic A" {
		t.Errorf("view = %+v", s)
	}
	if s.StartAtLogin {
		t.Error("start at login reported without registration")
	}
}

func TestRefreshLoopDeliversLatestState(t *testing.T) {
	a, _ := newTestApp(t)
	got := make(chan tray.State, 4)
	a.addSink(func(s tray.State) { got <- s })

	stop := make(chan struct{})
	defer close(stop)
	go a.refreshLoop(stop)

	a.lockDevice("UID-B")
	a.RequestRefresh()

	deadline := time.After(time.Second)
	for {
		select {
		case s := <-got:
			if s.LockedUID == "UID-B" {
				return
			}
		case <-deadline:
			t.Fatal("no refreshed state delivered")
		}
	}
}

func TestToneFor(t *testing.T) {
	tests := []struct {
		s    lock.Snapshot
		want chime.Tone
	}{
		{lock.Snapshot{}, chime.Off},
		{lock.Snapshot{LockedUID: "UID-A"}, chime.Off},
		{lock.Snapshot{Enabled: true}, chime.Missing},
		{lock.Snapshot{Enabled: true, LockedUID: "UID-A", LockedMissing: true}, chime.Missing},
		{lock.Snapshot{Enabled: true, LockedUID: "UID-A"}, chime.On},
	}
	for _, tt := range tests {
		if got := toneFor(tt.s); got != tt.want {
			t.Errorf("toneFor(%+v) = %d, want %d", tt.s, got, tt.want)
		}
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, ctl.Response{
		Enabled:       true,
		State:         "enabled-missing",
		LockedUID:     "USB-1234",
		LockedMissing: true,
		Current:       "MacBook Pro Microphone",
	})
	out := buf.String()
	for _, want := range []string{
		"Input lock:    on (enabled-missing)",
		"Locked input:  USB-1234 (missing)",
		"Current input: MacBook Pro Microphone",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintDevicesMarksDefault(t *testing.T) {
	a, _ := newTestApp(t)
	var buf bytes.Buffer
	if err := printDevices(&buf, a.dir); err != nil {
		t.Fatalf("printDevices: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "*") || !strings.Contains(lines[1], "UID-A") {
		t.Errorf("default not marked: %q", lines[1])
	}
	if strings.HasPrefix(lines[2], "*") {
		t.Errorf("non-default marked: %q", lines[2])
	}
}

func TestRunCommandUsageErrors(t *testing.T) {
	var buf bytes.Buffer
	if code := runCommand([]string{"lock"}, true, &buf); code != 2 {
		t.Errorf("lock without uid exit = %d", code)
	}
	if code := runCommand([]string{"frobnicate"}, true, &buf); code != 2 {
		t.Errorf("unknown command exit = %d", code)
	}
}

func TestRunCommandDevicesFake(t *testing.T) {
	var buf bytes.Buffer
	if code := runCommand([]string{"devices"}, true, &buf); code != 0 {
		t.Fatalf("exit = %d", code)
	}
	out := buf.String()
	if !strings.Contains(out, "AirPods Pro") || strings.Contains(out, "Speakers") {
		t.Errorf("unexpected listing:\n%s", out)
	}
}

func TestDemoControls(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	hal := newDemoHAL()
	dir := audio.NewDirectory(hal)
	store, _ := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	a := newApp(dir, lock.New(dir, false, ""), store)
	demo := newDemoControls(hal, a)

	if err := demo.switchDefault(); err != nil {
		t.Fatalf("switchDefault: %v", err)
	}
	if got := currentDefault(t, hal); got != 41 {
		t.Errorf("default = %d, want 41", got)
	}

	if err := demo.toggleLockedPresent(); err == nil {
		t.Error("unplug without a locked device succeeded")
	}
	a.lockDevice("AppleUSBAudioEngine:Blue:Yeti:1")
	if err := demo.toggleLockedPresent(); err != nil {
		t.Fatalf("unplug: %v", err)
	}
	if _, err := dir.DeviceForUID("AppleUSBAudioEngine:Blue:Yeti:1"); err == nil {
		t.Error("device still present after unplug")
	}
	if err := demo.toggleLockedPresent(); err != nil {
		t.Fatalf("replug: %v", err)
	}
	if id, err := dir.DeviceForUID("AppleUSBAudioEngine:Blue:Yeti:1"); err != nil || id != 57 {
		t.Errorf("replug = %d, %v", id, err)
	}
}
