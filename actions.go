package main

import (
	"fmt"
	"sync"

	"miclock/audio"
	"miclock/chime"
	"miclock/config"
	"miclock/ctl"
	"miclock/lock"
	"miclock/log"
	"miclock/login"
	"miclock/tray"
)

// app ties the lock controller to the settings store and to whatever UI is
// showing the state. UI actions, the control socket and the hotkey all go
// through it.
type app struct {
	dir   *audio.Directory
	lock  *lock.Controller
	store *config.Store

	refreshCh chan struct{}
	sinkMu    sync.Mutex
	sinks     []func(tray.State)
}

func newApp(dir *audio.Directory, lc *lock.Controller, store *config.Store) *app {
	return &app{
		dir:       dir,
		lock:      lc,
		store:     store,
		refreshCh: make(chan struct{}, 1),
	}
}

// RequestRefresh never blocks. Requests made while a redraw is pending
// collapse into it.
func (a *app) RequestRefresh() {
	select {
	case a.refreshCh <- struct{}{}:
	default:
	}
}

func (a *app) addSink(fn func(tray.State)) {
	a.sinkMu.Lock()
	a.sinks = append(a.sinks, fn)
	a.sinkMu.Unlock()
}

// refreshLoop rebuilds the view for every refresh request until stop closes.
func (a *app) refreshLoop(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-a.refreshCh:
		}
		s := a.view()
		a.sinkMu.Lock()
		sinks := append(([]func(tray.State))(nil), a.sinks...)
		a.sinkMu.Unlock()
		for _, sink := range sinks {
			sink(s)
		}
	}
}

// view queries the directory afresh; nothing from a previous view is reused.
func (a *app) view() tray.State {
	snap := a.lock.Snapshot()
	s := tray.State{
		Enabled:       snap.Enabled,
		LockedUID:     snap.LockedUID,
		LockedMissing: snap.LockedMissing,
		CurrentName:   a.dir.CurrentInputName(),
		StartAtLogin:  login.Enabled(),
	}
	if snap.LockedUID != "" {
		if name, err := a.dir.NameForUID(snap.LockedUID); err == nil {
			s.LockedName = name
		}
	}
	devices, err := a.dir.ListInputDevices()
	if err != nil {
		log.Warnf("listing devices for display: %v", err)
	}
	for _, d := range devices {
		s.Devices = append(s.Devices, tray.Device{UID: d.UID, Name: d.Name})
	}
	return s
}

// enforce runs the pass every action ends with.
func (a *app) enforce() (lock.Result, error) {
	res, err := lock.RunPass(a.lock, a)
	if err != nil {
		log.Errorf("enforce after action: %v", err)
	}
	return res, err
}

func (a *app) save(fn func(*config.Config)) {
	if _, err := a.store.Update(fn); err != nil {
		log.Errorf("saving config: %v", err)
	}
}

func (a *app) setEnabled(on bool) error {
	a.save(func(c *config.Config) { c.LockEnabled = on })
	a.lock.SetEnabled(on)
	_, err := a.enforce()
	return err
}

func (a *app) toggleLock() error {
	return a.setEnabled(!a.lock.Snapshot().Enabled)
}

// hotkeyToggle confirms the new state with a tone.
func (a *app) hotkeyToggle() {
	if err := a.toggleLock(); err != nil {
		log.Errorf("hotkey toggle: %v", err)
	}
	chime.Play(toneFor(a.lock.Snapshot()))
}

func toneFor(s lock.Snapshot) chime.Tone {
	switch {
	case !s.Enabled:
		return chime.Off
	case s.LockedUID == "" || s.LockedMissing:
		return chime.Missing
	}
	return chime.On
}

// lockDevice makes uid the locked device. It does not turn the lock on.
func (a *app) lockDevice(uid string) error {
	a.save(func(c *config.Config) { c.LockedUID = uid })
	a.lock.SetLockedUID(uid)
	_, err := a.enforce()
	return err
}

func (a *app) unlock() error {
	return a.lockDevice("")
}

// setLogin persists the setting only once registration succeeded.
func (a *app) setLogin(on bool) error {
	var err error
	if on {
		err = login.Enable()
	} else {
		err = login.Disable()
	}
	if err != nil {
		a.RequestRefresh()
		return err
	}
	a.save(func(c *config.Config) { c.StartAtLogin = on })
	a.RequestRefresh()
	return nil
}

func (a *app) trayHandlers() tray.Handlers {
	return tray.Handlers{
		ToggleLock:   func() { a.toggleLock() },
		SelectDevice: func(uid string) { a.lockDevice(uid) },
		SetLogin:     a.setLogin,
	}
}

// Handle serves control socket requests.
func (a *app) Handle(req ctl.Request) ctl.Response {
	var err error
	switch req.Command {
	case ctl.CmdStatus:
	case ctl.CmdEnable:
		err = a.setEnabled(true)
	case ctl.CmdDisable:
		err = a.setEnabled(false)
	case ctl.CmdToggle:
		err = a.toggleLock()
	case ctl.CmdLock:
		if req.UID == "" {
			return ctl.Response{Error: "lock: missing device UID"}
		}
		err = a.lockDevice(req.UID)
	case ctl.CmdUnlock:
		err = a.unlock()
	default:
		return ctl.Response{Error: fmt.Sprintf("unknown command %q", req.Command)}
	}

	s := a.view()
	resp := ctl.Response{
		Enabled:       s.Enabled,
		State:         a.lock.Snapshot().State(),
		LockedUID:     s.LockedUID,
		LockedName:    s.LockedName,
		LockedMissing: s.LockedMissing,
		Current:       s.CurrentName,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
