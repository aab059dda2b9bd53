//go:build !darwin

package tray

// Init has no status bar to start. The returned channel closes on Quit.
func Init() <-chan struct{} {
	go func() {
		for {
			select {
			case <-redrawCh:
				takePending()
			case <-quitCh:
				return
			}
		}
	}()
	return quitCh
}
