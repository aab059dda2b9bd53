//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// evdev codes from linux/input-event-codes.h
const (
	evKey = 1

	keyLeftCtrl   = 29
	keyRightCtrl  = 97
	keyLeftShift  = 42
	keyRightShift = 54
	keyL          = 38
)

// struct input_event on 64-bit: timeval (16 bytes), type, code, value.
const inputEventSize = 24

var errNoKeyboards = errors.New("no keyboard devices found (is user in 'input' group?)")

// evdevHotkey reads keyboards under /dev/input directly, which works under
// X11 and Wayland alike but needs membership of the input group.
type evdevHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	once    sync.Once
}

func New() Hotkey {
	return &evdevHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *evdevHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return errNoKeyboards
	}
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.read(f)
	}
	if len(h.files) == 0 {
		return fmt.Errorf("could not open any of %d keyboard(s) (run: sudo usermod -aG input $USER, then re-login)", len(keyboards))
	}
	return nil
}

// read runs until the file is closed by Unregister.
func (h *evdevHotkey) read(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var c chord
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			ev := buf[i : i+inputEventSize]
			if binary.LittleEndian.Uint16(ev[16:]) != evKey {
				continue
			}
			down, up := c.feed(binary.LittleEndian.Uint16(ev[18:]), int32(binary.LittleEndian.Uint32(ev[20:])))
			if down {
				notify(h.keydown)
			}
			if up {
				notify(h.keyup)
			}
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// chord tracks Ctrl+Shift+L on one keyboard. Key values are 0 release,
// 1 press, 2 auto-repeat.
type chord struct {
	ctrl, shift, l bool
}

func (c *chord) feed(code uint16, value int32) (down, up bool) {
	if value == 2 {
		return false, false
	}
	pressed := value == 1
	switch code {
	case keyLeftCtrl, keyRightCtrl:
		c.ctrl = pressed
	case keyLeftShift, keyRightShift:
		c.shift = pressed
	case keyL:
		switch {
		case pressed && !c.l && c.ctrl && c.shift:
			c.l = true
			return true, false
		case !pressed && c.l:
			c.l = false
			return false, true
		}
	}
	return false, false
}

func (h *evdevHotkey) Unregister() {
	h.once.Do(func() {
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *evdevHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevHotkey) Keyup() <-chan struct{}   { return h.keyup }

// findKeyboards lists event devices that can produce the L key.
func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "event") {
			continue
		}
		caps, err := os.ReadFile(filepath.Join("/sys/class/input", name, "device", "capabilities", "key"))
		if err != nil || !hasKey(string(caps), keyL) {
			continue
		}
		out = append(out, filepath.Join("/dev/input", name))
	}
	return out, nil
}

// hasKey reads a sysfs key capability bitmap: space separated hex words,
// most significant first, each the width of a C long.
func hasKey(caps string, code int) bool {
	words := strings.Fields(caps)
	idx := len(words) - 1 - code/strconv.IntSize
	if idx < 0 || idx >= len(words) {
		return false
	}
	w, err := strconv.ParseUint(words[idx], 16, strconv.IntSize)
	if err != nil {
		return false
	}
	return w&(1<<(code%strconv.IntSize)) != 0
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", errNoKeyboards
	}
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), path), nil
		}
	}
	return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
}
