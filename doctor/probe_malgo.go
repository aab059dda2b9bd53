//go:build cgo

package doctor

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// malgoProber captures through miniaudio. Its device ids carry the CoreAudio
// UID or the PulseAudio source name as a NUL-terminated string, which is what
// the lock stores as the UID.
type malgoProber struct{}

func newProber() Prober { return malgoProber{} }

func (malgoProber) Probe(uid string, d time.Duration) (ProbeResult, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("init context: %w", err)
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = 16000

	res := ProbeResult{Device: "default input"}
	if uid != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err != nil {
			return ProbeResult{}, fmt.Errorf("list capture devices: %w", err)
		}
		found := false
		for _, info := range infos {
			id := info.ID
			if deviceIDString(id[:]) != uid {
				continue
			}
			cfg.Capture.DeviceID = id.Pointer()
			res.Device = info.Name()
			found = true
			break
		}
		if !found {
			return ProbeResult{}, fmt.Errorf("%s not visible to the capture backend", uid)
		}
	}

	var (
		mu    sync.Mutex
		meter levelMeter
	)
	dev, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frames uint32) {
			mu.Lock()
			meter.add(input)
			res.Frames += uint64(frames)
			mu.Unlock()
		},
	})
	if err != nil {
		return ProbeResult{}, fmt.Errorf("open device: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return ProbeResult{}, fmt.Errorf("start capture: %w", err)
	}
	time.Sleep(d)
	dev.Stop()

	mu.Lock()
	defer mu.Unlock()
	res.RMS = meter.rms()
	return res, nil
}

func deviceIDString(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}
