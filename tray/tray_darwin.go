//go:build darwin

package tray

import (
	"fyne.io/systray"
	"golang.design/x/hotkey/mainthread"

	"miclock/log"
)

var (
	mLock      *systray.MenuItem
	mDevices   *systray.MenuItem
	mNoDevices *systray.MenuItem
	mCurrent   *systray.MenuItem
	mLocked    *systray.MenuItem
	mLogin     *systray.MenuItem

	deviceItems []*systray.MenuItem
	deviceUIDs  []string
	deviceClick = make(chan int, 8)
)

// Init starts the status item on the main thread and returns a channel that
// is closed when the user picks Quit.
func Init() <-chan struct{} {
	start, _ := systray.RunWithExternalLoop(onReady, onExit)
	done := make(chan struct{})
	mainthread.Call(func() {
		start()
		close(done)
	})
	<-done
	return quitCh
}

func onReady() {
	systray.SetTemplateIcon(iconIdleHi, iconIdle)
	systray.SetTitle("MicLock")
	systray.SetTooltip("MicLock keeps your microphone selected")

	mLock = systray.AddMenuItemCheckbox("Input Lock", "Keep the locked input as system default", false)
	mDevices = systray.AddMenuItem("Select Locked Mic…", "Choose the input to keep selected")
	mNoDevices = mDevices.AddSubMenuItem("No input devices", "")
	mNoDevices.Disable()

	systray.AddSeparator()
	mCurrent = systray.AddMenuItem("Current Input: ", "")
	mCurrent.Disable()
	mLocked = systray.AddMenuItem("Locked Input: (not set)", "")
	mLocked.Disable()

	systray.AddSeparator()
	mLogin = systray.AddMenuItemCheckbox("Start at Login", "Launch MicLock when you log in", false)

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit MicLock")

	go func() {
		for {
			select {
			case <-mLock.ClickedCh:
				if h := currentHandlers(); h.ToggleLock != nil {
					h.ToggleLock()
				}
			case <-mLogin.ClickedCh:
				want := !mLogin.Checked()
				if h := currentHandlers(); h.SetLogin != nil {
					if err := h.SetLogin(want); err != nil {
						log.Warnf("start at login: %v", err)
						continue
					}
				}
				setChecked(mLogin, want)
			case idx := <-deviceClick:
				if idx < len(deviceUIDs) {
					if h := currentHandlers(); h.SelectDevice != nil {
						h.SelectDevice(deviceUIDs[idx])
					}
				}
			case <-mQuit.ClickedCh:
				Quit()
				return
			case <-redrawCh:
				if s, ok := takePending(); ok {
					apply(s)
				}
			case <-quitCh:
				return
			}
		}
	}()
}

func setChecked(item *systray.MenuItem, on bool) {
	if on {
		item.Check()
	} else {
		item.Uncheck()
	}
}

// apply runs on the tray goroutine only.
func apply(s State) {
	systray.SetTitle(Title(s))
	if s.Enabled && s.LockedMissing {
		systray.SetTemplateIcon(iconMissingHi, iconMissing)
	} else {
		systray.SetTemplateIcon(iconIdleHi, iconIdle)
	}
	setChecked(mLock, s.Enabled)
	setChecked(mLogin, s.StartAtLogin)
	mCurrent.SetTitle(CurrentLabel(s))
	mLocked.SetTitle(LockedLabel(s))

	deviceUIDs = deviceUIDs[:0]
	for i, d := range s.Devices {
		if i == len(deviceItems) {
			item := mDevices.AddSubMenuItemCheckbox(d.Name, d.UID, false)
			deviceItems = append(deviceItems, item)
			go forwardClicks(item, i)
		}
		item := deviceItems[i]
		item.SetTitle(d.Name)
		item.SetTooltip(d.UID)
		setChecked(item, d.UID == s.LockedUID)
		item.Show()
		deviceUIDs = append(deviceUIDs, d.UID)
	}
	for i := len(s.Devices); i < len(deviceItems); i++ {
		deviceItems[i].Uncheck()
		deviceItems[i].Hide()
	}
	if len(s.Devices) == 0 {
		mNoDevices.Show()
	} else {
		mNoDevices.Hide()
	}
}

func forwardClicks(item *systray.MenuItem, idx int) {
	for {
		select {
		case <-item.ClickedCh:
			deviceClick <- idx
		case <-quitCh:
			return
		}
	}
}

func onExit() {
	Quit()
}
