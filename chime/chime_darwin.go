//go:build darwin

package chime

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	initOnce sync.Once
	mctx     *malgo.AllocatedContext
	device   *malgo.Device

	// read from the device callback
	current atomic.Pointer[[]byte]
	pos     atomic.Uint32
	playMu  sync.Mutex
)

func openDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: fill})
	return err
}

func initPlayback() {
	var err error
	mctx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	if err := openDevice(); err != nil {
		mctx.Uninit()
		mctx = nil
	}
}

func fill(out, _ []byte, frames uint32) {
	want := frames * 2
	buf := current.Load()
	var n uint32
	if buf != nil {
		p := pos.Load()
		n = uint32(copy(out[:want], (*buf)[p:]))
		pos.Store(p + n)
		if p+n >= uint32(len(*buf)) {
			current.Store(nil)
		}
	}
	clear(out[n:want])
}

func play(pcm []int16) {
	initOnce.Do(initPlayback)
	if mctx == nil {
		return
	}
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}

	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}
	device.Stop()
	pos.Store(0)
	current.Store(&b)
	if err := device.Start(); err != nil {
		// the device goes stale across sleep and wake
		device.Uninit()
		if err := openDevice(); err != nil {
			device = nil
			current.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			current.Store(nil)
		}
	}
}
