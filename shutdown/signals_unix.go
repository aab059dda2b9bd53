//go:build !windows

package shutdown

import (
	"os"
	"syscall"
)

// SIGHUP arrives when the terminal running the TUI goes away.
var signals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
