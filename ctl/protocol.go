// Package ctl lets a second miclock process drive the running one over a
// unix-domain socket. Each connection carries one JSON request and one JSON
// response.
package ctl

import (
	"os"
	"path/filepath"
)

const (
	CmdStatus  = "status"
	CmdEnable  = "enable"
	CmdDisable = "disable"
	CmdToggle  = "toggle"
	CmdLock    = "lock"   // UID required
	CmdUnlock  = "unlock" // clears the locked device
)

type Request struct {
	Command string `json:"command"`
	UID     string `json:"uid,omitempty"`
}

type Response struct {
	Enabled       bool   `json:"enabled"`
	State         string `json:"state,omitempty"`
	LockedUID     string `json:"locked_uid,omitempty"`
	LockedName    string `json:"locked_name,omitempty"`
	LockedMissing bool   `json:"locked_missing"`
	Current       string `json:"current,omitempty"`
	Error         string `json:"error,omitempty"`
}

// SocketPath is $XDG_RUNTIME_DIR/miclock.sock, or the same name in the
// temp directory.
func SocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "miclock.sock")
}
