//go:build darwin

package login

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/codeGROOVE-dev/retry"
)

func agentPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), nil
}

func launchctl(args ...string) error {
	out, err := exec.Command("launchctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("launchctl %s: %w (%s)", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func guiDomain() string { return fmt.Sprintf("gui/%d", os.Getuid()) }

func Enabled() bool {
	path, err := agentPath()
	return err == nil && exists(path)
}

// Enable installs the LaunchAgent and loads it into the GUI session. A
// failed bootstrap leaves nothing installed.
func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	path, err := agentPath()
	if err != nil {
		return err
	}
	if err := install(path, launchAgent(exe)); err != nil {
		return err
	}

	// a loaded copy from an earlier install would make bootstrap fail
	launchctl("bootout", guiDomain(), path)
	err = retry.Do(func() error {
		return launchctl("bootstrap", guiDomain(), path)
	}, retry.Attempts(maxRetries), retry.Delay(initialBackoff), retry.MaxDelay(maxBackoff))
	if err != nil {
		uninstall(path)
		return err
	}
	return nil
}

func Disable() error {
	path, err := agentPath()
	if err != nil {
		return err
	}
	if !exists(path) {
		return nil
	}
	launchctl("bootout", guiDomain(), path)
	return uninstall(path)
}
