// Package clipboard copies device UIDs so they can be pasted into
// `miclock lock <uid>` or a config file.
package clipboard

import cb "github.com/atotto/clipboard"

// Available reports whether a clipboard utility was found (xclip, xsel or
// wl-copy on Linux; always true on macOS).
func Available() bool {
	return !cb.Unsupported
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

func Read() (string, error) {
	return cb.ReadAll()
}
