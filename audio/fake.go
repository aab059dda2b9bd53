package audio

import (
	"sort"
	"sync"
)

// FakeDevice is one device known to a FakeHAL.
type FakeDevice struct {
	ID       DeviceID
	UID      string
	Name     string
	Channels uint32
	Streams  int

	ConfigErr bool // stream configuration query fails
	NameErr   bool
	UIDErr    bool
}

// FakeHAL is an in-memory audio subsystem for tests and -fake runs.
type FakeHAL struct {
	mu        sync.Mutex
	devices   map[DeviceID]FakeDevice
	def       DeviceID
	failOps   map[string]int32
	noXlate   bool
	writes    []DeviceID
	calls     int
	listeners map[Selector][]*ListenerContext
	closed    bool
}

func NewFakeHAL(devices ...FakeDevice) *FakeHAL {
	f := &FakeHAL{
		devices:   make(map[DeviceID]FakeDevice),
		failOps:   make(map[string]int32),
		listeners: make(map[Selector][]*ListenerContext),
	}
	for _, d := range devices {
		f.devices[d.ID] = d
	}
	return f
}

// Plug adds or replaces a device and fires the devices listeners.
func (f *FakeHAL) Plug(d FakeDevice) {
	f.mu.Lock()
	f.devices[d.ID] = d
	f.mu.Unlock()
	f.Fire(SelDevices)
}

// Unplug removes a device and fires the devices listeners.
func (f *FakeHAL) Unplug(id DeviceID) {
	f.mu.Lock()
	delete(f.devices, id)
	f.mu.Unlock()
	f.Fire(SelDevices)
}

// SetDefault changes the default input behind the controller's back, the
// way another application would.
func (f *FakeHAL) SetDefault(id DeviceID) {
	f.mu.Lock()
	f.def = id
	f.mu.Unlock()
}

// FailTranslation makes DeviceForUID fail so callers exercise their scan fallback.
func (f *FakeHAL) FailTranslation(fail bool) {
	f.mu.Lock()
	f.noXlate = fail
	f.mu.Unlock()
}

// FailOp makes the named operation return a SubsystemError with code.
// A zero code clears the failure.
func (f *FakeHAL) FailOp(op string, code int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code == 0 {
		delete(f.failOps, op)
		return
	}
	f.failOps[op] = code
}

// FailListener makes registration of a listener for sel fail with code.
func (f *FakeHAL) FailListener(sel Selector, code int32) {
	f.FailOp(addListenerOp(sel), code)
}

func addListenerOp(sel Selector) string {
	return "AddPropertyListener " + sel.String()
}

// Writes returns every SetDefaultInputDevice target in order.
func (f *FakeHAL) Writes() []DeviceID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DeviceID(nil), f.writes...)
}

// Calls counts every HAL query and mutation so far.
func (f *FakeHAL) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ListenerCount reports how many listeners are registered for sel.
func (f *FakeHAL) ListenerCount(sel Selector) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners[sel])
}

// Fire delivers one host callback carrying sels to every context registered
// for any of them, once per context. Fire() with no selectors delivers a
// callback without a property list to every registered context.
func (f *FakeHAL) Fire(sels ...Selector) {
	f.mu.Lock()
	var targets []*ListenerContext
	seen := map[*ListenerContext]bool{}
	collect := func(ctxs []*ListenerContext) {
		for _, c := range ctxs {
			if !seen[c] {
				seen[c] = true
				targets = append(targets, c)
			}
		}
	}
	if len(sels) == 0 {
		for _, ctxs := range f.listeners {
			collect(ctxs)
		}
	} else {
		for _, s := range sels {
			collect(f.listeners[s])
		}
	}
	f.mu.Unlock()

	var payload []Selector
	if len(sels) > 0 {
		payload = sels
	}
	for _, c := range targets {
		c.Dispatch(payload)
	}
}

func (f *FakeHAL) enter(op string) error {
	f.calls++
	if code, ok := f.failOps[op]; ok {
		return &SubsystemError{Op: op, Code: code}
	}
	return nil
}

func (f *FakeHAL) DeviceIDs() ([]DeviceID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeviceIDs"); err != nil {
		return nil, err
	}
	ids := make([]DeviceID, 0, len(f.devices))
	for id := range f.devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *FakeHAL) StringProperty(id DeviceID, sel Selector) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("StringProperty"); err != nil {
		return "", err
	}
	d, ok := f.devices[id]
	if !ok {
		return "", &SubsystemError{Op: "StringProperty", Code: badObject}
	}
	switch sel {
	case SelName:
		if d.NameErr {
			return "", &SubsystemError{Op: "StringProperty", Code: unknownProperty}
		}
		return d.Name, nil
	case SelDeviceUID:
		if d.UIDErr {
			return "", &SubsystemError{Op: "StringProperty", Code: unknownProperty}
		}
		return d.UID, nil
	}
	return "", &SubsystemError{Op: "StringProperty", Code: unknownProperty}
}

func (f *FakeHAL) InputChannelCount(id DeviceID) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("InputChannelCount"); err != nil {
		return 0, err
	}
	d, ok := f.devices[id]
	if !ok {
		return 0, &SubsystemError{Op: "InputChannelCount", Code: badObject}
	}
	if d.ConfigErr {
		return 0, &SubsystemError{Op: "InputChannelCount", Code: unknownProperty}
	}
	return d.Channels, nil
}

func (f *FakeHAL) InputStreamCount(id DeviceID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("InputStreamCount"); err != nil {
		return 0, err
	}
	d, ok := f.devices[id]
	if !ok {
		return 0, &SubsystemError{Op: "InputStreamCount", Code: badObject}
	}
	return d.Streams, nil
}

func (f *FakeHAL) DefaultInputDevice() (DeviceID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DefaultInputDevice"); err != nil {
		return 0, err
	}
	if f.def == 0 {
		return 0, ErrNotFound
	}
	return f.def, nil
}

func (f *FakeHAL) SetDefaultInputDevice(id DeviceID) error {
	f.mu.Lock()
	if err := f.enter("SetDefaultInputDevice"); err != nil {
		f.mu.Unlock()
		return err
	}
	if _, ok := f.devices[id]; !ok {
		f.mu.Unlock()
		return &SubsystemError{Op: "SetDefaultInputDevice", Code: badObject}
	}
	changed := f.def != id
	f.def = id
	f.writes = append(f.writes, id)
	f.mu.Unlock()
	if changed {
		f.Fire(SelDefaultInput)
	}
	return nil
}

func (f *FakeHAL) DeviceForUID(uid string) (DeviceID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeviceForUID"); err != nil {
		return 0, err
	}
	if f.noXlate {
		return 0, &SubsystemError{Op: "DeviceForUID", Code: unknownProperty}
	}
	for id, d := range f.devices {
		if d.UID == uid {
			return id, nil
		}
	}
	return 0, ErrNotFound
}

func (f *FakeHAL) AddPropertyListener(sel Selector, ctx *ListenerContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(addListenerOp(sel)); err != nil {
		return err
	}
	f.listeners[sel] = append(f.listeners[sel], ctx)
	return nil
}

func (f *FakeHAL) RemovePropertyListener(sel Selector, ctx *ListenerContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RemovePropertyListener"); err != nil {
		return err
	}
	ctxs := f.listeners[sel]
	for i, c := range ctxs {
		if c == ctx {
			f.listeners[sel] = append(ctxs[:i], ctxs[i+1:]...)
			return nil
		}
	}
	return &SubsystemError{Op: "RemovePropertyListener", Code: unknownProperty}
}

func (f *FakeHAL) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// CoreAudio status codes the fake reports, so errors read like the real thing.
const (
	badObject       int32 = 0x21_6F_62_6A // '!obj'
	unknownProperty int32 = 0x77_68_6F_3F // 'who?'
)
