//go:build linux

package login

import (
	"fmt"
	"os"
	"path/filepath"
)

// entryPath follows the XDG autostart spec.
func entryPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "autostart", "miclock.desktop"), nil
}

func Enabled() bool {
	path, err := entryPath()
	return err == nil && exists(path)
}

func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	path, err := entryPath()
	if err != nil {
		return err
	}
	return install(path, desktopEntry(exe))
}

func Disable() error {
	path, err := entryPath()
	if err != nil {
		return err
	}
	return uninstall(path)
}
