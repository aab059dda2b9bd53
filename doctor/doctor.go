// Package doctor runs the -doctor diagnostics: it walks every layer the lock
// depends on and prints one PASS or FAIL line per check.
package doctor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"miclock/audio"
	"miclock/hotkey"
	"miclock/shutdown"
	"miclock/watch"
)

const probeDuration = 1500 * time.Millisecond

type Options struct {
	HAL       audio.HAL
	LockedUID string
	Prober    Prober // nil uses the platform capture probe
	Hotkey    bool
	Out       io.Writer
}

type report struct {
	out   io.Writer
	step  int
	total int
	fails int
}

func (r *report) section(title string) {
	r.step++
	fmt.Fprintf(r.out, "\n[%d/%d] %s\n", r.step, r.total, title)
}

func (r *report) pass(format string, args ...any) {
	fmt.Fprintf(r.out, "  PASS: "+format+"\n", args...)
}

func (r *report) fail(format string, args ...any) {
	r.fails++
	fmt.Fprintf(r.out, "  FAIL: "+format+"\n", args...)
}

func (r *report) info(format string, args ...any) {
	fmt.Fprintf(r.out, "  "+format+"\n", args...)
}

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Prober == nil {
		opts.Prober = newProber()
	}
	setupInterruptHandler()

	r := &report{out: opts.Out, total: 5}
	if opts.Hotkey {
		r.total++
	}
	fmt.Fprintln(r.out, "miclock doctor - audio subsystem diagnostics")
	fmt.Fprintln(r.out, "============================================")

	dir := audio.NewDirectory(opts.HAL)
	devices := checkDevices(r, dir)
	checkDefault(r, dir)
	target := checkResolution(r, dir, opts.HAL, opts.LockedUID, devices)
	checkNotifier(r, opts.HAL)
	checkCapture(r, opts.Prober, target)
	if opts.Hotkey {
		checkHotkey(r)
	}

	fmt.Fprintln(r.out)
	if r.fails == 0 {
		fmt.Fprintln(r.out, "All checks passed!")
		return 0
	}
	fmt.Fprintf(r.out, "%d check(s) failed. See details above.\n", r.fails)
	return 1
}

func setupInterruptHandler() {
	stop := shutdown.Requested()
	go func() {
		<-stop
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		os.Exit(1)
	}()
}

func checkDevices(r *report, dir *audio.Directory) []audio.DeviceInfo {
	r.section("Input devices")
	devices, err := dir.ListInputDevices()
	if err != nil {
		r.fail("cannot enumerate devices: %v", err)
		return nil
	}
	if len(devices) == 0 {
		r.fail("no input devices found")
		return nil
	}
	for _, d := range devices {
		bt := ""
		if audio.IsBluetoothDevice(d) {
			bt = " [bluetooth]"
		}
		r.info("%-40s %s (%d ch)%s", d.Name, d.UID, d.InputChannels, bt)
	}
	r.pass("%d input device(s)", len(devices))
	return devices
}

func checkDefault(r *report, dir *audio.Directory) {
	r.section("Default input")
	id, err := dir.DefaultInputDevice()
	if err != nil {
		r.fail("cannot read default input: %v", err)
		return
	}
	name, err := dir.DeviceName(id)
	if err != nil {
		name = audio.UnknownName
	}
	uid, err := dir.DeviceUID(id)
	if err != nil {
		uid = audio.UnknownUID
	}
	r.pass("%s (%s)", name, uid)
}

// checkResolution exercises both UID resolution tiers separately so a broken
// translation facility shows up even when the scan hides it.
func checkResolution(r *report, dir *audio.Directory, hal audio.HAL, uid string, devices []audio.DeviceInfo) string {
	r.section("Locked device resolution")
	if uid == "" {
		r.info("no locked device configured, probing the default input instead")
		r.pass("nothing to resolve")
		return ""
	}

	xlated, xerr := hal.DeviceForUID(uid)
	var scanned audio.DeviceID
	for _, d := range devices {
		if d.UID == uid {
			scanned = d.ID
		}
	}

	switch {
	case xerr == nil && scanned != 0 && xlated != scanned:
		r.fail("translation gave device %d but the scan found %d", xlated, scanned)
	case xerr == nil:
		r.pass("%s -> device %d (translation)", uid, xlated)
	case scanned != 0:
		r.info("translation failed: %v", xerr)
		r.pass("%s -> device %d (scan fallback)", uid, scanned)
	default:
		if _, err := dir.DeviceForUID(uid); errors.Is(err, audio.ErrNotFound) {
			r.fail("%s is not connected (lock shows as missing)", uid)
		} else {
			r.fail("cannot resolve %s: %v", uid, err)
		}
	}
	return uid
}

func checkNotifier(r *report, hal audio.HAL) {
	r.section("Change notifications")
	n := watch.New(hal)
	if err := n.Start(); err != nil {
		r.fail("cannot register listeners: %v", err)
		return
	}
	registered := n.Registered()
	if err := n.Stop(); err != nil {
		r.fail("listeners did not unregister cleanly: %v", err)
		return
	}
	r.pass("%d listener(s) registered and removed", len(registered))
}

func checkCapture(r *report, p Prober, uid string) {
	r.section("Capture probe")
	res, err := p.Probe(uid, probeDuration)
	if errors.Is(err, ErrProbeUnsupported) {
		r.info("capture probe not available in this build")
		r.pass("skipped")
		return
	}
	if err != nil {
		r.fail("capture failed: %v", err)
		return
	}
	if res.Frames == 0 {
		r.fail("%s delivered no audio", res.Device)
		return
	}
	r.pass("%s: %d frames, level %.1f dBFS", res.Device, res.Frames, res.DBFS())
}

func checkHotkey(r *report) {
	r.section("Global shortcut")
	msg, err := hotkey.Diagnose()
	if err != nil {
		r.fail("%v", err)
		return
	}
	r.pass("%s", msg)
}
