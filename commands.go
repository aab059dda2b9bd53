package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"

	"miclock/audio"
	"miclock/clipboard"
	"miclock/config"
	"miclock/ctl"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: miclock [flags] [command]

Without a command miclock runs the lock daemon.

Commands:
  devices         list input devices
  status          show the running daemon's lock state
  enable|disable  turn the lock on or off
  toggle          flip the lock
  lock <uid>      lock to the device with this UID ("-" reads it from the clipboard)
  unlock          forget the locked device

Flags:
`)
	flag.PrintDefaults()
}

// runCommand handles the subcommands and returns the process exit code.
func runCommand(args []string, fake bool, out io.Writer) int {
	switch args[0] {
	case "devices":
		hal, _, err := openHAL(fake)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer hal.Close()
		if err := printDevices(out, audio.NewDirectory(hal)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	case ctl.CmdStatus, ctl.CmdEnable, ctl.CmdDisable, ctl.CmdToggle, ctl.CmdUnlock:
		return sendCommand(out, ctl.Request{Command: args[0]})
	case ctl.CmdLock:
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: miclock lock <uid>  (see `miclock devices`)")
			return 2
		}
		uid := args[1]
		if uid == "-" {
			var err error
			if uid, err = uidFromClipboard(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
		}
		return sendCommand(out, ctl.Request{Command: ctl.CmdLock, UID: uid})
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
	usage()
	return 2
}

// uidFromClipboard pairs with the TUI's copy key.
func uidFromClipboard() (string, error) {
	if !clipboard.Available() {
		return "", errors.New("no clipboard utility found")
	}
	text, err := clipboard.Read()
	if err != nil {
		return "", fmt.Errorf("reading clipboard: %w", err)
	}
	uid := strings.TrimSpace(text)
	if uid == "" || strings.ContainsAny(uid, "\n\t") {
		return "", errors.New("clipboard does not hold a device UID")
	}
	return uid, nil
}

func sendCommand(out io.Writer, req ctl.Request) int {
	resp, err := ctl.Send(ctl.SocketPath(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	printStatus(out, resp)
	return 0
}

func printStatus(out io.Writer, r ctl.Response) {
	lockState := "off"
	if r.Enabled {
		lockState = "on"
	}
	locked := "(not set)"
	if r.LockedUID != "" {
		locked = r.LockedUID
		if r.LockedName != "" {
			locked = r.LockedName + " [" + r.LockedUID + "]"
		}
		if r.LockedMissing {
			locked += " (missing)"
		}
	}
	fmt.Fprintf(out, "Input lock:    %s (%s)\n", lockState, r.State)
	fmt.Fprintf(out, "Locked input:  %s\n", locked)
	fmt.Fprintf(out, "Current input: %s\n", r.Current)
}

func printDevices(out io.Writer, dir *audio.Directory) error {
	devices, err := dir.ListInputDevices()
	if err != nil {
		return err
	}
	def, _ := dir.DefaultInputDevice()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tUID\tCHANNELS")
	for _, d := range devices {
		mark := ""
		if d.ID == def {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", mark, d.Name, d.UID, d.InputChannels)
	}
	return w.Flush()
}

// runSetup picks the locked device interactively and saves it. A running
// daemon is told about the new choice.
func runSetup(dir *audio.Directory, store *config.Store) int {
	dev, err := audio.SelectDevice(dir, store.Get().LockedUID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if dev == nil {
		fmt.Println("Cancelled.")
		return 0
	}
	if _, err := store.Update(func(c *config.Config) {
		c.LockedUID = dev.UID
		c.LockEnabled = true
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: saving %s: %v\n", store.Path(), err)
		return 1
	}
	fmt.Printf("Locked input: %s [%s]\n", dev.Name, dev.UID)
	if audio.IsBluetoothDevice(*dev) {
		fmt.Println("Warning: Bluetooth headsets switch to a low quality profile while their microphone is in use.")
	}
	if _, err := ctl.Send(ctl.SocketPath(), ctl.Request{Command: ctl.CmdLock, UID: dev.UID}); err == nil {
		ctl.Send(ctl.SocketPath(), ctl.Request{Command: ctl.CmdEnable})
		fmt.Println("Running miclock updated.")
	}
	return 0
}

// openHAL returns the platform audio subsystem, or the demo one for -fake.
func openHAL(fake bool) (audio.HAL, string, error) {
	if fake {
		return newDemoHAL(), "fake", nil
	}
	hal, err := audio.NewHAL()
	if err != nil {
		return nil, "", fmt.Errorf("opening audio subsystem: %w", err)
	}
	backend := "pulse"
	if runtime.GOOS == "darwin" {
		backend = "coreaudio"
	}
	return hal, backend, nil
}

var demoDevices = []audio.FakeDevice{
	{ID: 41, UID: "BuiltInMicrophoneDevice", Name: "MacBook Pro Microphone", Channels: 1},
	{ID: 57, UID: "AppleUSBAudioEngine:Blue:Yeti:1", Name: "Yeti Stereo Microphone", Channels: 2},
	{ID: 63, UID: "A8-91-3D-00-11-22:input", Name: "AirPods Pro", Channels: 1},
	{ID: 70, UID: "BuiltInSpeakerDevice", Name: "MacBook Pro Speakers", Channels: 0},
}

// newDemoHAL starts with the headset selected as default so the first
// enforcement pass has something to correct.
func newDemoHAL() *audio.FakeHAL {
	hal := audio.NewFakeHAL(demoDevices...)
	hal.SetDefault(63)
	return hal
}
