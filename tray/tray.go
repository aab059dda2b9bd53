// Package tray renders the lock state in the macOS status bar. On other
// platforms every call is a no-op apart from the shared state bookkeeping.
package tray

import "sync"

type Device struct {
	UID  string
	Name string
}

// State is everything the menu shows. It is rebuilt by the caller on every
// refresh; the tray never queries the audio subsystem itself.
type State struct {
	Enabled       bool
	LockedUID     string
	LockedName    string // empty when the locked UID cannot be named
	LockedMissing bool
	CurrentName   string
	Devices       []Device
	StartAtLogin  bool
}

// Handlers are invoked from the tray's event goroutine.
type Handlers struct {
	ToggleLock   func()
	SelectDevice func(uid string)
	SetLogin     func(on bool) error
}

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	handlersMu sync.Mutex
	handlers   Handlers

	pendingMu sync.Mutex
	pending   *State
	redrawCh  = make(chan struct{}, 1)
)

func SetHandlers(h Handlers) {
	handlersMu.Lock()
	handlers = h
	handlersMu.Unlock()
}

func currentHandlers() Handlers {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	return handlers
}

// Refresh queues s for display. It never blocks; several calls before the
// next redraw collapse into one showing the latest state.
func Refresh(s State) {
	pendingMu.Lock()
	pending = &s
	pendingMu.Unlock()
	select {
	case redrawCh <- struct{}{}:
	default:
	}
}

// takePending returns the most recent state passed to Refresh since the
// last call.
func takePending() (State, bool) {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	if pending == nil {
		return State{}, false
	}
	s := *pending
	pending = nil
	return s, true
}

func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}

// Title is the status bar text. The bang flags an active lock whose device
// is not connected.
func Title(s State) string {
	if s.Enabled && s.LockedMissing {
		return "MicLock!"
	}
	return "MicLock"
}

func CurrentLabel(s State) string {
	return "Current Input: " + s.CurrentName
}

func LockedLabel(s State) string {
	if s.LockedUID == "" {
		return "Locked Input: (not set)"
	}
	name := s.LockedName
	if name == "" {
		name = s.LockedUID
	}
	if s.LockedMissing {
		name += " (missing)"
	}
	return "Locked Input: " + name
}
