package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"miclock/audio"
	"miclock/chime"
	"miclock/config"
	"miclock/ctl"
	"miclock/doctor"
	"miclock/hotkey"
	"miclock/lock"
	"miclock/log"
	"miclock/shutdown"
	"miclock/tray"
	"miclock/watch"
)

var version = "dev"

func run() {
	tuiFlag := flag.Bool("tui", runtime.GOOS != "darwin", "Run with terminal UI instead of the menu bar")
	setupFlag := flag.Bool("setup", false, "Pick the locked microphone and exit")
	fakeFlag := flag.Bool("fake", false, "Use a simulated audio subsystem")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	configFlag := flag.String("config", "", "config file path (default: $MICLOCK_CONFIG or the user config dir)")
	hotkeyFlag := flag.Bool("hotkey", true, "Toggle the lock with "+hotkey.Label)
	soundFlag := flag.Bool("sound", true, "Play a tone when the hotkey toggles the lock")
	flag.Usage = usage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("miclock %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	cfgPath, err := config.ResolvePath(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve config path: %v\n", err)
		os.Exit(1)
	}
	store, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	cfg := store.Get()

	if args := flag.Args(); len(args) > 0 {
		os.Exit(runCommand(args, *fakeFlag, os.Stdout))
	}

	hal, backend, err := openHAL(*fakeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	dir := audio.NewDirectory(hal)

	if *doctorFlag {
		code := doctor.Run(doctor.Options{HAL: hal, LockedUID: cfg.LockedUID, Hotkey: *hotkeyFlag && cfg.Hotkey})
		hal.Close()
		os.Exit(code)
	}
	if *setupFlag {
		code := runSetup(dir, store)
		hal.Close()
		os.Exit(code)
	}

	// Menu bar mode from a shell: re-exec in the background and return the prompt.
	if !*tuiFlag && os.Getenv("_MICLOCK_BG") == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		hal.Close()
		exe, _ := os.Executable()
		cmd := exec.Command(exe, os.Args[1:]...)
		cmd.Env = append(os.Environ(), "_MICLOCK_BG=1")
		devnull, _ := os.Open(os.DevNull)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = devnull, devnull, devnull
		if err := cmd.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	} else {
		log.SessionStart(version, backend, cfg.LockEnabled, cfg.LockedUID)
	}

	controller := lock.New(dir, cfg.LockEnabled, cfg.LockedUID)
	a := newApp(dir, controller, store)

	n := watch.New(hal)
	if err := n.Start(); err != nil {
		log.Errorf("notifier start: %v", err)
		fmt.Fprintf(os.Stderr, "Error: watching audio devices: %v\n", err)
		hal.Close()
		log.Close()
		os.Exit(1)
	}
	worker := lock.NewWorker(n.Events(), controller, a)
	workerDone := worker.Start()
	lock.InitialPass(controller, a, lock.InitialDelay)

	srv, err := ctl.Listen(ctl.SocketPath(), a)
	if err != nil {
		log.Warnf("control socket: %v", err)
	} else {
		go srv.Serve()
	}

	var presses *hotkey.Presses
	if *hotkeyFlag && cfg.Hotkey {
		hk := hotkey.New()
		if err := hk.Register(); err != nil {
			log.Warnf("hotkey register: %v", err)
		} else {
			defer hk.Unregister()
			if !*soundFlag {
				chime.Disable()
			}
			presses = hotkey.Watch(hk, a.hotkeyToggle)
		}
	}

	stopRefresh := make(chan struct{})
	go a.refreshLoop(stopRefresh)

	var (
		uiQuit  <-chan struct{}
		program *tea.Program
	)
	if *tuiFlag {
		var demo *demoControls
		if fh, ok := hal.(*audio.FakeHAL); ok {
			demo = newDemoControls(fh, a)
		}
		program = NewTUIProgram(a, demo)
		tuiMu.Lock()
		tuiProgram = program
		tuiMu.Unlock()
		a.addSink(func(s tray.State) { tuiSend(stateMsg(s)) })
		quit := make(chan struct{})
		go func() {
			if _, err := program.Run(); err != nil {
				log.Errorf("tui: %v", err)
			}
			close(quit)
		}()
		uiQuit = quit
	} else {
		tray.SetHandlers(a.trayHandlers())
		a.addSink(tray.Refresh)
		uiQuit = tray.Init()
	}
	a.RequestRefresh()

	select {
	case <-shutdown.Requested():
		if program != nil {
			// let the TUI restore the terminal
			program.Quit()
			<-uiQuit
		} else {
			tray.Quit()
		}
	case <-uiQuit:
	}

	if presses != nil {
		presses.Stop()
	}
	if err := n.Stop(); err != nil {
		log.Warnf("notifier stop: %v", err)
	}
	<-workerDone
	close(stopRefresh)
	if srv != nil {
		srv.Close()
	}
	hal.Close()
	log.SessionEnd(worker.Passes())
	log.Close()
}
