// Package lock keeps the locked input device pinned as the system default.
package lock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"miclock/audio"
)

const (
	// SelfSuppressWindow is how long a write we made ourselves is treated as
	// the cause of any matching change notification.
	SelfSuppressWindow = 350 * time.Millisecond

	DebounceWindow = 180 * time.Millisecond
	DebouncePoll   = 10 * time.Millisecond
	InitialDelay   = 200 * time.Millisecond
)

// Directory is the part of audio.Directory the controller needs.
type Directory interface {
	DeviceForUID(uid string) (audio.DeviceID, error)
	DefaultInputDevice() (audio.DeviceID, error)
	SetDefaultInputDevice(id audio.DeviceID) error
}

// Snapshot is a copy of the lock state for rendering.
type Snapshot struct {
	Enabled       bool
	LockedUID     string
	LockedMissing bool
}

// State derives the logical state name used in logs and the control socket.
func (s Snapshot) State() string {
	switch {
	case !s.Enabled:
		return "disabled"
	case s.LockedUID == "":
		return "enabled-unset"
	case s.LockedMissing:
		return "enabled-missing"
	}
	return "enabled-resolved"
}

// Result is the outcome of one enforcement pass.
type Result struct {
	Changed       bool
	LockedMissing bool
}

type selfSet struct {
	id audio.DeviceID
	at time.Time
}

type Controller struct {
	dir      Directory
	suppress time.Duration
	now      func() time.Time

	mu            sync.Mutex
	enabled       bool
	lockedUID     string
	lockedMissing bool
	lastSelfSet   *selfSet
}

type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New builds a controller from persisted settings. An empty uid means no
// device has been chosen.
func New(dir Directory, enabled bool, uid string, opts ...Option) *Controller {
	c := &Controller{
		dir:       dir,
		suppress:  SelfSuppressWindow,
		now:       time.Now,
		enabled:   enabled,
		lockedUID: uid,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Enabled:       c.enabled,
		LockedUID:     c.lockedUID,
		LockedMissing: c.lockedMissing,
	}
}

func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

// SetLockedUID selects a new target. The missing flag is cleared so the next
// pass resolves the new device from scratch.
func (c *Controller) SetLockedUID(uid string) {
	c.mu.Lock()
	c.lockedUID = uid
	c.lockedMissing = false
	c.mu.Unlock()
}

// Enforce corrects the system default input if it drifted away from the
// locked device. The state lock is never held across a directory call.
func (c *Controller) Enforce() (Result, error) {
	c.mu.Lock()
	enabled, uid := c.enabled, c.lockedUID
	var last selfSet
	haveLast := c.lastSelfSet != nil
	if haveLast {
		last = *c.lastSelfSet
	}
	c.mu.Unlock()

	if !enabled || uid == "" {
		return Result{}, nil
	}

	target, err := c.dir.DeviceForUID(uid)
	if err != nil {
		c.mu.Lock()
		c.lockedMissing = true
		c.mu.Unlock()
		return Result{LockedMissing: true}, nil
	}

	if haveLast && last.id == target && c.now().Sub(last.at) < c.suppress {
		c.clearMissing()
		return Result{}, nil
	}

	current, err := c.dir.DefaultInputDevice()
	if err != nil && !errors.Is(err, audio.ErrNotFound) {
		return Result{}, fmt.Errorf("reading default input: %w", err)
	}

	if err == nil && current == target {
		c.clearMissing()
		return Result{}, nil
	}

	if err := c.dir.SetDefaultInputDevice(target); err != nil {
		return Result{}, fmt.Errorf("setting default input: %w", err)
	}

	c.mu.Lock()
	c.lastSelfSet = &selfSet{id: target, at: c.now()}
	c.lockedMissing = false
	c.mu.Unlock()
	return Result{Changed: true}, nil
}

// A successful resolution clears the missing flag.
func (c *Controller) clearMissing() {
	c.mu.Lock()
	c.lockedMissing = false
	c.mu.Unlock()
}
