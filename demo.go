package main

import (
	"errors"
	"sync"

	"miclock/audio"
)

// demoControls plays the other applications and the user's hands in -fake
// mode: it moves the default input and unplugs the locked device.
type demoControls struct {
	hal *audio.FakeHAL
	dir *audio.Directory
	a   *app

	mu        sync.Mutex
	unplugged *audio.FakeDevice
}

func newDemoControls(hal *audio.FakeHAL, a *app) *demoControls {
	return &demoControls{hal: hal, dir: audio.NewDirectory(hal), a: a}
}

// switchDefault moves the default input to the next device in the list.
func (d *demoControls) switchDefault() error {
	devices, err := d.dir.ListInputDevices()
	if err != nil {
		return err
	}
	if len(devices) < 2 {
		return errors.New("need two input devices to switch")
	}
	cur, _ := d.dir.DefaultInputDevice()
	next := devices[0].ID
	for i, dev := range devices {
		if dev.ID == cur {
			next = devices[(i+1)%len(devices)].ID
		}
	}
	d.hal.SetDefault(next)
	d.hal.Fire(audio.SelDefaultInput)
	return nil
}

// toggleLockedPresent unplugs the locked device, or plugs it back in.
func (d *demoControls) toggleLockedPresent() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unplugged != nil {
		dev := *d.unplugged
		d.unplugged = nil
		d.hal.Plug(dev)
		return nil
	}
	uid := d.a.lock.Snapshot().LockedUID
	if uid == "" {
		return errors.New("no locked device")
	}
	for _, dev := range demoDevices {
		if dev.UID == uid {
			d.unplugged = &dev
			d.hal.Unplug(dev.ID)
			return nil
		}
	}
	return errors.New("locked device is not a demo device")
}
