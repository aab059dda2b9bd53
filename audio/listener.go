package audio

import "sync"

// ListenerContext is the state a native change callback runs against. Native
// code only ever sees its numeric id; the callback resolves the id through a
// registry so a released context can never be reached again.
type ListenerContext struct {
	id uintptr
	fn func(changed []Selector)
}

var (
	listenersMu sync.RWMutex
	listeners   = map[uintptr]*ListenerContext{}
	nextID      uintptr
)

// NewListenerContext allocates a context. fn receives the selectors reported
// by one host invocation, or nil when the host passed no property list.
func NewListenerContext(fn func(changed []Selector)) *ListenerContext {
	listenersMu.Lock()
	defer listenersMu.Unlock()
	nextID++
	ctx := &ListenerContext{id: nextID, fn: fn}
	listeners[ctx.id] = ctx
	return ctx
}

// ID is the value handed to native registration calls as client data.
func (c *ListenerContext) ID() uintptr { return c.id }

// Dispatch runs the callback unless the context has been released.
func (c *ListenerContext) Dispatch(changed []Selector) {
	if !c.Live() {
		return
	}
	c.fn(changed)
}

func (c *ListenerContext) Live() bool {
	listenersMu.RLock()
	defer listenersMu.RUnlock()
	return listeners[c.id] == c
}

// Release drops the context. Callers must have removed every listener
// registered with it first.
func (c *ListenerContext) Release() {
	listenersMu.Lock()
	delete(listeners, c.id)
	listenersMu.Unlock()
}

func lookupListener(id uintptr) *ListenerContext {
	listenersMu.RLock()
	defer listenersMu.RUnlock()
	return listeners[id]
}
