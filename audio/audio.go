package audio

import (
	"regexp"
	"strings"
)

// DeviceID is the subsystem-scoped handle of an audio device. Handles can be
// reused after a reboot or a reconnect, so they are never persisted.
type DeviceID uint32

// DeviceInfo describes one eligible input device. It is produced fresh on each
// directory query and never cached.
type DeviceInfo struct {
	ID            DeviceID
	UID           string // stable across reboots and reconnects
	Name          string
	InputChannels uint32
}

const (
	UnknownName = "<unknown>"
	UnknownUID  = "<no-uid>"
)

// Headset product names, lower case.
var btNames = []string{
	"airpods", "beats", "powerbeats", "bose", "jabra", "plantronics",
	"wh-1000", "wf-1000", "galaxy buds", "pixel buds", "jbl ",
	"sennheiser momentum", "soundcore", "skullcandy", "tozo",
	"bluetooth", " bt ", " bt)", " bt]",
}

// CoreAudio Bluetooth UIDs start with the device address; Pulse names
// BlueZ sources bluez_input.* or bluez_source.*.
var btUID = regexp.MustCompile(`^(?:[0-9A-Fa-f]{2}[-:]){5}[0-9A-Fa-f]{2}|^bluez_(?:input|source)\.`)

// bluetoothName guesses from a display name whether a device is a Bluetooth
// headset. Locking one of those as input drops its output to the headset
// profile.
func bluetoothName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btNames {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsBluetoothDevice checks the UID first and falls back to the name.
func IsBluetoothDevice(d DeviceInfo) bool {
	return btUID.MatchString(d.UID) || bluetoothName(d.Name)
}
