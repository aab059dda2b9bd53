package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

type pickKey int

const (
	pickNone pickKey = iota
	pickUp
	pickDown
	pickFirst
	pickLast
	pickConfirm
	pickCancel
)

// decodeKey maps one raw-mode read to a picker key.
func decodeKey(b []byte) pickKey {
	if len(b) == 3 && b[0] == 0x1b && b[1] == '[' {
		switch b[2] {
		case 'A':
			return pickUp
		case 'B':
			return pickDown
		case 'H':
			return pickFirst
		case 'F':
			return pickLast
		}
		return pickNone
	}
	if len(b) != 1 {
		return pickNone
	}
	switch b[0] {
	case '\r', '\n':
		return pickConfirm
	case 3, 'q', 0x1b:
		return pickCancel
	case 'k':
		return pickUp
	case 'j':
		return pickDown
	case 'g':
		return pickFirst
	case 'G':
		return pickLast
	}
	return pickNone
}

type picker struct {
	devices []DeviceInfo
	locked  string
	cursor  int
}

func newPicker(devices []DeviceInfo, lockedUID string) *picker {
	p := &picker{devices: devices, locked: lockedUID}
	for i, d := range devices {
		if d.UID == lockedUID {
			p.cursor = i
		}
	}
	return p
}

// press moves the cursor or finishes. done is false while the user is still
// choosing; a nil choice with done set means cancelled.
func (p *picker) press(k pickKey) (choice *DeviceInfo, done bool) {
	switch k {
	case pickUp:
		p.cursor = max(p.cursor-1, 0)
	case pickDown:
		p.cursor = min(p.cursor+1, len(p.devices)-1)
	case pickFirst:
		p.cursor = 0
	case pickLast:
		p.cursor = len(p.devices) - 1
	case pickConfirm:
		return &p.devices[p.cursor], true
	case pickCancel:
		return nil, true
	}
	return nil, false
}

// lines is how many rows render writes.
func (p *picker) lines() int { return len(p.devices) + 2 }

func (p *picker) render(w io.Writer) {
	fmt.Fprint(w, "\r\x1b[J")
	fmt.Fprint(w, "Select input device to lock (↑/↓, Enter to confirm, q to cancel):\r\n\r\n")
	for i, d := range p.devices {
		tags := ""
		if d.UID == p.locked {
			tags += " \x1b[2m(locked)\x1b[0m"
		}
		if IsBluetoothDevice(d) {
			tags += " \x1b[33m[⚠ Bluetooth]\x1b[0m"
		}
		if i == p.cursor {
			fmt.Fprintf(w, "  \x1b[1;36m▶ %s\x1b[0m%s\r\n", d.Name, tags)
		} else {
			fmt.Fprintf(w, "    %s%s\r\n", d.Name, tags)
		}
	}
}

// SelectDevice lets the user pick the device to lock on the terminal. The
// cursor starts on lockedUID when that device is present. A single device is
// returned without prompting; nil means the user cancelled.
func SelectDevice(dir *Directory, lockedUID string) (*DeviceInfo, error) {
	devices, err := dir.ListInputDevices()
	if err != nil {
		return nil, err
	}
	switch len(devices) {
	case 0:
		return nil, errors.New("no input devices found")
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("device selection needs an interactive terminal")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	p := newPicker(devices, lockedUID)
	p.render(os.Stdout)
	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		if choice, done := p.press(decodeKey(buf[:n])); done {
			fmt.Print("\r\n")
			return choice, nil
		}
		fmt.Printf("\x1b[%dA", p.lines())
		p.render(os.Stdout)
	}
}
