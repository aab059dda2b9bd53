//go:build linux

package audio

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

const (
	pulsePollInterval = 250 * time.Millisecond
	connectAttempts   = 5
	connectDelay      = 200 * time.Millisecond
	connectMaxDelay   = 2 * time.Second
)

// pulseHAL maps PulseAudio (or pipewire-pulse) onto the HAL model: capture
// sources are input devices, the source name is the UID and the description
// is the display name. Handles are assigned per process on first sight.
//
// The protocol client has no public hook for subscription events, so
// listeners are served by a poller that diffs the default source and the
// source list.
type pulseHAL struct {
	mu     sync.Mutex
	client *pulse.Client
	ids    map[string]DeviceID
	names  map[DeviceID]string
	next   DeviceID

	lmu       sync.Mutex
	listeners map[Selector][]*ListenerContext
	stop      chan struct{}
	done      chan struct{}
}

// NewHAL connects to the PulseAudio server, retrying briefly since the
// server may still be starting when we are launched at login.
func NewHAL() (HAL, error) {
	c, err := connectPulse()
	if err != nil {
		return nil, err
	}
	return &pulseHAL{
		client:    c,
		ids:       make(map[string]DeviceID),
		names:     make(map[DeviceID]string),
		listeners: make(map[Selector][]*ListenerContext),
	}, nil
}

func connectPulse() (*pulse.Client, error) {
	c, err := retry.DoWithData(func() (*pulse.Client, error) {
		return pulse.NewClient()
	}, retry.Attempts(connectAttempts), retry.Delay(connectDelay), retry.MaxDelay(connectMaxDelay))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return c, nil
}

func pulseErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", &SubsystemError{Op: op, Code: -1}, err)
}

func isMonitor(s *pulse.Source) bool {
	return strings.HasSuffix(s.ID(), ".monitor")
}

// handle returns the process-local handle for a source name. Callers hold h.mu.
func (h *pulseHAL) handle(name string) DeviceID {
	if id, ok := h.ids[name]; ok {
		return id
	}
	h.next++
	h.ids[name] = h.next
	h.names[h.next] = name
	return h.next
}

func (h *pulseHAL) conn() (*pulse.Client, error) {
	if h.client == nil {
		return nil, &SubsystemError{Op: "pulse connection", Code: -1}
	}
	return h.client, nil
}

func (h *pulseHAL) source(id DeviceID) (*pulse.Source, error) {
	c, err := h.conn()
	if err != nil {
		return nil, err
	}
	name, ok := h.names[id]
	if !ok {
		return nil, &SubsystemError{Op: "lookup source", Code: -1}
	}
	s, err := c.SourceByID(name)
	if err != nil {
		return nil, pulseErr("get source "+name, err)
	}
	return s, nil
}

func (h *pulseHAL) DeviceIDs() ([]DeviceID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.conn()
	if err != nil {
		return nil, err
	}
	sources, err := c.ListSources()
	if err != nil {
		return nil, pulseErr("list sources", err)
	}
	var ids []DeviceID
	for _, s := range sources {
		if isMonitor(s) {
			continue
		}
		ids = append(ids, h.handle(s.ID()))
	}
	return ids, nil
}

func (h *pulseHAL) StringProperty(id DeviceID, sel Selector) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, err := h.source(id)
	if err != nil {
		return "", err
	}
	var v string
	switch sel {
	case SelName:
		v = s.Name()
	case SelDeviceUID:
		v = s.ID()
	default:
		return "", &SubsystemError{Op: "get " + sel.String(), Code: -1}
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (h *pulseHAL) InputChannelCount(id DeviceID) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, err := h.source(id)
	if err != nil {
		return 0, err
	}
	return uint32(len(s.Channels())), nil
}

// InputStreamCount is one for every capture source: pulse has no separate
// stream objects.
func (h *pulseHAL) InputStreamCount(id DeviceID) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.source(id); err != nil {
		return 0, err
	}
	return 1, nil
}

func (h *pulseHAL) DefaultInputDevice() (DeviceID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.conn()
	if err != nil {
		return 0, err
	}
	s, err := c.DefaultSource()
	if err != nil {
		return 0, pulseErr("get default source", err)
	}
	if s == nil || s.ID() == "" {
		return 0, ErrNotFound
	}
	return h.handle(s.ID()), nil
}

func (h *pulseHAL) SetDefaultInputDevice(id DeviceID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.conn()
	if err != nil {
		return err
	}
	name, ok := h.names[id]
	if !ok {
		return &SubsystemError{Op: "set default source", Code: -1}
	}
	return pulseErr("set default source", c.RawRequest(&proto.SetDefaultSource{SourceName: name}, nil))
}

func (h *pulseHAL) DeviceForUID(uid string) (DeviceID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.conn()
	if err != nil {
		return 0, err
	}
	s, err := c.SourceByID(uid)
	if err != nil {
		return 0, pulseErr("get source "+uid, err)
	}
	if s == nil || isMonitor(s) {
		return 0, ErrNotFound
	}
	return h.handle(s.ID()), nil
}

func (h *pulseHAL) AddPropertyListener(sel Selector, ctx *ListenerContext) error {
	h.lmu.Lock()
	defer h.lmu.Unlock()
	h.listeners[sel] = append(h.listeners[sel], ctx)
	if h.stop == nil {
		h.stop = make(chan struct{})
		h.done = make(chan struct{})
		go h.poll(h.stop, h.done)
	}
	return nil
}

func (h *pulseHAL) RemovePropertyListener(sel Selector, ctx *ListenerContext) error {
	h.lmu.Lock()
	ctxs := h.listeners[sel]
	idx := slices.Index(ctxs, ctx)
	if idx < 0 {
		h.lmu.Unlock()
		return &SubsystemError{Op: "remove listener " + sel.String(), Code: -1}
	}
	h.listeners[sel] = slices.Delete(ctxs, idx, idx+1)
	var stop, done chan struct{}
	if h.empty() && h.stop != nil {
		stop, done = h.stop, h.done
		h.stop, h.done = nil, nil
	}
	h.lmu.Unlock()

	// wait outside lmu: an in-flight dispatch may still be looking up listeners
	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

func (h *pulseHAL) empty() bool {
	for _, ctxs := range h.listeners {
		if len(ctxs) > 0 {
			return false
		}
	}
	return true
}

type pulseState struct {
	def     string
	sources []string
}

func (h *pulseHAL) snapshot() (pulseState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.conn()
	if err != nil {
		return pulseState{}, err
	}
	var st pulseState
	sources, err := c.ListSources()
	if err != nil {
		return st, err
	}
	for _, s := range sources {
		if !isMonitor(s) {
			st.sources = append(st.sources, s.ID())
		}
	}
	slices.Sort(st.sources)
	if s, err := c.DefaultSource(); err == nil && s != nil {
		st.def = s.ID()
	}
	return st, nil
}

// reconnect replaces a dead client. The server going away and coming back
// is reported as a service restart.
func (h *pulseHAL) reconnect() bool {
	c, err := pulse.NewClient()
	if err != nil {
		return false
	}
	h.mu.Lock()
	if h.client != nil {
		h.client.Close()
	}
	h.client = c
	h.mu.Unlock()
	return true
}

func (h *pulseHAL) poll(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(pulsePollInterval)
	defer ticker.Stop()

	last, err := h.snapshot()
	down := err != nil
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		if down {
			if !h.reconnect() {
				continue
			}
		}
		cur, err := h.snapshot()
		if err != nil {
			down = true
			continue
		}

		var changed []Selector
		if down {
			changed = append(changed, SelServiceRestart)
			down = false
		}
		if cur.def != last.def {
			changed = append(changed, SelDefaultInput)
		}
		if !slices.Equal(cur.sources, last.sources) {
			changed = append(changed, SelDevices)
		}
		last = cur
		if len(changed) > 0 {
			h.dispatch(changed)
		}
	}
}

// dispatch delivers one callback per registered context carrying the
// selectors it registered for.
func (h *pulseHAL) dispatch(changed []Selector) {
	h.lmu.Lock()
	per := map[*ListenerContext][]Selector{}
	var order []*ListenerContext
	for _, sel := range changed {
		for _, ctx := range h.listeners[sel] {
			if _, ok := per[ctx]; !ok {
				order = append(order, ctx)
			}
			per[ctx] = append(per[ctx], sel)
		}
	}
	h.lmu.Unlock()

	for _, ctx := range order {
		ctx.Dispatch(per[ctx])
	}
}

func (h *pulseHAL) Close() error {
	h.lmu.Lock()
	stop, done := h.stop, h.done
	h.stop, h.done = nil, nil
	h.lmu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client != nil {
		h.client.Close()
		h.client = nil
	}
	return nil
}
