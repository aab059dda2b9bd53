// Package shutdown turns termination signals into a channel the daemon and
// the diagnostics can wait on.
package shutdown

import (
	"os"
	"os/signal"
)

// Notify relays every termination signal to ch.
func Notify(ch chan<- os.Signal) {
	signal.Notify(ch, signals...)
}

// Requested returns a channel that is closed by the first termination
// signal. Later signals are left to the default handling, so a second
// Ctrl+C kills a shutdown that hangs.
func Requested() <-chan struct{} {
	sig := make(chan os.Signal, 1)
	Notify(sig)
	done := make(chan struct{})
	go func() {
		<-sig
		signal.Reset(signals...)
		close(done)
	}()
	return done
}
