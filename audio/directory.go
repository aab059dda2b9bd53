package audio

import (
	"errors"
	"fmt"
)

// Directory answers device questions against a HAL. Nothing is cached: every
// call goes back to the subsystem because handles can go stale at any time.
type Directory struct {
	hal HAL
}

func NewDirectory(hal HAL) *Directory {
	return &Directory{hal: hal}
}

func (d *Directory) HAL() HAL { return d.hal }

// ListInputDevices returns every device with at least one input channel.
// Devices whose name or UID cannot be read are kept with placeholder strings.
func (d *Directory) ListInputDevices() ([]DeviceInfo, error) {
	ids, err := d.hal.DeviceIDs()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}

	var out []DeviceInfo
	for _, id := range ids {
		channels, isInput := d.inputChannels(id)
		if !isInput {
			continue
		}

		name, err := d.hal.StringProperty(id, SelName)
		if err != nil {
			name = UnknownName
		}
		uid, err := d.hal.StringProperty(id, SelDeviceUID)
		if err != nil {
			uid = UnknownUID
		}

		out = append(out, DeviceInfo{
			ID:            id,
			UID:           uid,
			Name:          name,
			InputChannels: channels,
		})
	}
	return out, nil
}

// inputChannels reads the stream configuration first. When that says nothing
// useful, the mere presence of input streams still qualifies the device.
func (d *Directory) inputChannels(id DeviceID) (uint32, bool) {
	channels, err := d.hal.InputChannelCount(id)
	if err == nil && channels > 0 {
		return channels, true
	}
	n, err := d.hal.InputStreamCount(id)
	if err == nil && n > 0 {
		return 0, true
	}
	return 0, false
}

func (d *Directory) DefaultInputDevice() (DeviceID, error) {
	return d.hal.DefaultInputDevice()
}

func (d *Directory) SetDefaultInputDevice(id DeviceID) error {
	return d.hal.SetDefaultInputDevice(id)
}

// DeviceForUID resolves a UID to a handle: the subsystem's translation
// facility first, then a full scan. Some device classes translate
// unreliably, so the scan is always the last word.
func (d *Directory) DeviceForUID(uid string) (DeviceID, error) {
	if id, err := d.hal.DeviceForUID(uid); err == nil {
		return id, nil
	}

	devices, err := d.ListInputDevices()
	if err != nil {
		return 0, err
	}
	for _, dev := range devices {
		if dev.UID == uid {
			return dev.ID, nil
		}
	}
	return 0, ErrNotFound
}

func (d *Directory) DeviceName(id DeviceID) (string, error) {
	return d.hal.StringProperty(id, SelName)
}

func (d *Directory) DeviceUID(id DeviceID) (string, error) {
	return d.hal.StringProperty(id, SelDeviceUID)
}

// NameForUID resolves through DeviceForUID and, if the name read fails, falls
// back to the name carried by the full scan.
func (d *Directory) NameForUID(uid string) (string, error) {
	if id, err := d.DeviceForUID(uid); err == nil {
		if name, err := d.DeviceName(id); err == nil {
			return name, nil
		}
	}

	devices, err := d.ListInputDevices()
	if err != nil {
		return "", err
	}
	for _, dev := range devices {
		if dev.UID == uid {
			return dev.Name, nil
		}
	}
	return "", ErrNotFound
}

// CurrentInputName is the display name of the system default input, or
// UnknownName when it cannot be determined.
func (d *Directory) CurrentInputName() string {
	id, err := d.DefaultInputDevice()
	if err != nil {
		return UnknownName
	}
	name, err := d.DeviceName(id)
	if err != nil {
		return UnknownName
	}
	return name
}

// IsNotFound reports whether err means "no such device" rather than a failed call.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
