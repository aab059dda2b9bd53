//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// The menu bar and the hotkey both need the main thread.
func main() {
	mainthread.Init(run)
}
