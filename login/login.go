// Package login registers miclock to start when the user logs in.
package login

import (
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"time"
)

const (
	label = "io.miclock.agent"

	maxRetries     = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

var ErrUnsupported = errors.New("login: start at login is not supported on this platform")

// launchAgent renders the LaunchAgent property list for exe.
func launchAgent(exe string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>%s</string>
	<key>ProgramArguments</key>
	<array>
		<string>%s</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>LimitLoadToSessionType</key>
	<string>Aqua</string>
	<key>ProcessType</key>
	<string>Interactive</string>
</dict>
</plist>
`, label, html.EscapeString(exe))
}

// desktopEntry renders an XDG autostart entry for exe.
func desktopEntry(exe string) string {
	return fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=MicLock
Comment=Keep the chosen microphone as the default input
Exec=%q -tui=false
Terminal=false
X-GNOME-Autostart-enabled=true
`, exe)
}

// install writes an autostart file in one step so a login racing with
// Enable never reads half an entry.
func install(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func uninstall(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
