// Package hotkey delivers the global Ctrl+Shift+L shortcut that toggles the
// input lock.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Label is the shortcut as shown to the user.
const Label = "Ctrl+Shift+L"
