package hotkey

import "sync"

// Presses turns raw key events into one call per physical press. Keydown
// repeats delivered while the key is held are dropped until the matching
// keyup arrives.
type Presses struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Watch calls fn on its own goroutine for every press of hk.
func Watch(hk Hotkey, fn func()) *Presses {
	p := &Presses{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go p.run(hk, fn)
	return p
}

func (p *Presses) run(hk Hotkey, fn func()) {
	defer close(p.done)
	held := false
	for {
		select {
		case <-p.stop:
			return
		case <-hk.Keydown():
			if held {
				continue
			}
			held = true
			fn()
		case <-hk.Keyup():
			held = false
		}
	}
}

// Stop ends the watch and waits for the goroutine to exit.
func (p *Presses) Stop() {
	p.once.Do(func() { close(p.stop) })
	<-p.done
}
