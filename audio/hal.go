package audio

import "fmt"

// Selector is a four-char property code as used by the CoreAudio HAL. The
// Linux backend maps its own concepts onto the same codes.
type Selector uint32

func fourCC(tag string) Selector {
	return Selector(uint32(tag[0])<<24 | uint32(tag[1])<<16 | uint32(tag[2])<<8 | uint32(tag[3]))
}

var (
	SelDevices        = fourCC("dev#")
	SelDefaultInput   = fourCC("dIn ")
	SelServiceRestart = fourCC("srst")
	SelName           = fourCC("lnam")
	SelDeviceUID      = fourCC("uid ")
)

func (s Selector) String() string {
	b := []byte{byte(s >> 24), byte(s >> 16), byte(s >> 8), byte(s)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(s))
		}
	}
	return "'" + string(b) + "'"
}

// HAL is the host audio subsystem. Implementations are thin: every call maps
// to one native query and reports non-success statuses as *SubsystemError.
// Fallbacks and placeholder policy live in Directory.
type HAL interface {
	DeviceIDs() ([]DeviceID, error)
	// StringProperty reads a global-scope string property (SelName, SelDeviceUID).
	StringProperty(id DeviceID, sel Selector) (string, error)
	// InputChannelCount sums channels over the input stream configuration buffers.
	InputChannelCount(id DeviceID) (uint32, error)
	InputStreamCount(id DeviceID) (int, error)
	DefaultInputDevice() (DeviceID, error)
	SetDefaultInputDevice(id DeviceID) error
	// DeviceForUID asks the subsystem's own UID translation facility.
	DeviceForUID(uid string) (DeviceID, error)

	ListenerHost
	Close() error
}

// ListenerHost registers change callbacks against the system-wide object.
// Remove must be called with the same selector and context as Add.
type ListenerHost interface {
	AddPropertyListener(sel Selector, ctx *ListenerContext) error
	RemovePropertyListener(sel Selector, ctx *ListenerContext) error
}
