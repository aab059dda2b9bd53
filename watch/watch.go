// Package watch turns audio subsystem change notifications into a queue of
// events for the enforcement worker.
package watch

import (
	"errors"
	"fmt"
	"sync"

	"miclock/audio"
	"miclock/log"
)

// Event is what changed, as far as the lock is concerned.
type Event int

const (
	DefaultInputChanged Event = iota + 1
	DevicesChanged
	ServiceRestarted
)

func (e Event) String() string {
	switch e {
	case DefaultInputChanged:
		return "default_input_changed"
	case DevicesChanged:
		return "devices_changed"
	case ServiceRestarted:
		return "service_restarted"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

type subscription struct {
	sel       audio.Selector
	ev        Event
	mandatory bool
}

// Registration order. Stop removes in the same set.
var subscriptions = []subscription{
	{audio.SelDefaultInput, DefaultInputChanged, true},
	{audio.SelDevices, DevicesChanged, true},
	{audio.SelServiceRestart, ServiceRestarted, false},
}

var ErrRunning = errors.New("watch: notifier already started")

// Notifier owns the listener context and the registrations made with it.
// The context is released only after every registration has been removed,
// so no callback can fire against released state.
type Notifier struct {
	host   audio.ListenerHost
	events *Queue

	mu         sync.Mutex
	ctx        *audio.ListenerContext
	registered []audio.Selector
	adds       int
	removes    int
}

func New(host audio.ListenerHost) *Notifier {
	return &Notifier{host: host, events: NewQueue()}
}

// Events is the queue the notifier publishes to. It is closed by Stop.
func (n *Notifier) Events() *Queue { return n.events }

// Start registers the listeners. Failing to register default-input or
// devices listeners is fatal: everything registered so far is removed and
// the error is returned. The service-restarted listener is best effort.
func (n *Notifier) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ctx != nil {
		return ErrRunning
	}

	n.ctx = audio.NewListenerContext(n.handle)
	for _, s := range subscriptions {
		if err := n.host.AddPropertyListener(s.sel, n.ctx); err != nil {
			if !s.mandatory {
				log.Warnf("listener %s unavailable: %v", s.ev, err)
				continue
			}
			n.teardown()
			return fmt.Errorf("registering %s listener: %w", s.ev, err)
		}
		n.registered = append(n.registered, s.sel)
		n.adds++
	}
	log.Infof("notifier_started: %d listeners", len(n.registered))
	return nil
}

// Stop removes every registered listener, releases the context and closes
// the event queue, which ends the worker loop.
func (n *Notifier) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ctx == nil {
		n.events.Close()
		return nil
	}
	err := n.teardown()
	n.events.Close()
	return err
}

// teardown must be called with n.mu held.
func (n *Notifier) teardown() error {
	var errs []error
	for _, sel := range n.registered {
		if err := n.host.RemovePropertyListener(sel, n.ctx); err != nil {
			errs = append(errs, fmt.Errorf("removing %s listener: %w", sel, err))
			continue
		}
		n.removes++
	}
	if n.adds != n.removes {
		errs = append(errs, fmt.Errorf("watch: %d listeners registered, %d removed", n.adds, n.removes))
	}
	n.registered = nil
	n.ctx.Release()
	n.ctx = nil
	return errors.Join(errs...)
}

// handle runs on the subsystem's callback thread.
func (n *Notifier) handle(changed []audio.Selector) {
	if changed == nil {
		// no property list: re-check everything
		n.events.Publish(DefaultInputChanged)
		return
	}
	for _, sel := range changed {
		if ev, ok := eventFor(sel); ok {
			n.events.Publish(ev)
		}
	}
}

func eventFor(sel audio.Selector) (Event, bool) {
	for _, s := range subscriptions {
		if s.sel == sel {
			return s.ev, true
		}
	}
	return 0, false
}

// Registered lists the selectors currently registered.
func (n *Notifier) Registered() []audio.Selector {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]audio.Selector(nil), n.registered...)
}
