package doctor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"miclock/audio"
)

type stubProber struct {
	res ProbeResult
	err error
	uid string
}

func (p *stubProber) Probe(uid string, _ time.Duration) (ProbeResult, error) {
	p.uid = uid
	return p.res, p.err
}

func newHAL() *audio.FakeHAL {
	hal := audio.NewFakeHAL(
		audio.FakeDevice{ID: 1, UID: "BuiltInMicrophoneDevice", Name: "MacBook Pro Microphone", Channels: 1},
		audio.FakeDevice{ID: 2, UID: "USB-YETI", Name: "Yeti Stereo Microphone", Channels: 2},
	)
	hal.SetDefault(1)
	return hal
}

func TestRunAllPass(t *testing.T) {
	var out bytes.Buffer
	p := &stubProber{res: ProbeResult{Device: "Yeti Stereo Microphone", Frames: 24000, RMS: 0.1}}
	code := Run(Options{HAL: newHAL(), LockedUID: "USB-YETI", Prober: p, Out: &out})
	if code != 0 {
		t.Fatalf("exit code %d, output:\n%s", code, out.String())
	}
	if p.uid != "USB-YETI" {
		t.Errorf("probed %q, want the locked device", p.uid)
	}
	for _, want := range []string{
		"PASS: 2 input device(s)",
		"PASS: MacBook Pro Microphone (BuiltInMicrophoneDevice)",
		"PASS: USB-YETI -> device 2 (translation)",
		"PASS: 3 listener(s) registered and removed",
		"level -20.0 dBFS",
		"All checks passed!",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunScanFallback(t *testing.T) {
	hal := newHAL()
	hal.FailTranslation(true)
	var out bytes.Buffer
	p := &stubProber{res: ProbeResult{Device: "x", Frames: 1, RMS: 0.5}}
	if code := Run(Options{HAL: hal, LockedUID: "USB-YETI", Prober: p, Out: &out}); code != 0 {
		t.Fatalf("exit code %d:\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "(scan fallback)") {
		t.Errorf("scan tier not reported:\n%s", out.String())
	}
}

func TestRunMissingLockedDevice(t *testing.T) {
	var out bytes.Buffer
	p := &stubProber{err: errors.New("USB-GONE not visible to the capture backend")}
	code := Run(Options{HAL: newHAL(), LockedUID: "USB-GONE", Prober: p, Out: &out})
	if code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(out.String(), "FAIL: USB-GONE is not connected") {
		t.Errorf("missing device not reported:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "2 check(s) failed") {
		t.Errorf("fail count wrong:\n%s", out.String())
	}
}

func TestRunNotifierFailure(t *testing.T) {
	hal := newHAL()
	hal.FailListener(audio.SelDevices, 1)
	var out bytes.Buffer
	p := &stubProber{err: ErrProbeUnsupported}
	if code := Run(Options{HAL: hal, Prober: p, Out: &out}); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(out.String(), "FAIL: cannot register listeners") {
		t.Errorf("notifier failure not reported:\n%s", out.String())
	}
	if hal.ListenerCount(audio.SelDefaultInput) != 0 {
		t.Error("doctor left a listener registered")
	}
}

func TestLevelMeter(t *testing.T) {
	var m levelMeter
	if m.rms() != 0 {
		t.Error("empty meter should read 0")
	}
	pcm := make([]byte, 8)
	for i, v := range []int16{16384, -16384, 16384, -16384} {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	m.add(pcm)
	if got := m.rms(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("rms = %v, want 0.5", got)
	}
	if db := (ProbeResult{RMS: 0.5}).DBFS(); math.Abs(db-(-6.0206)) > 1e-3 {
		t.Errorf("dBFS = %v", db)
	}
	if !math.IsInf((ProbeResult{}).DBFS(), -1) {
		t.Error("silence should be -Inf dBFS")
	}
}
