// Package log writes miclock's diagnostics log. Every call is a no-op until
// Init succeeds, so packages can log unconditionally.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

const (
	fileName    = "diagnostics_log.txt"
	rotatedName = "diagnostics_log.1.txt"
	maxFileSize = 4 << 20
)

type sink struct {
	mu     sync.Mutex
	dir    string
	file   *os.File
	logger zerolog.Logger
	open   bool
}

var out sink

// ResolveDir picks the log directory: the -logpath flag, then
// MICLOCK_LOG_PATH, then the platform default. Relative paths are taken
// from the working directory.
func ResolveDir(flagPath string) (string, error) {
	for _, p := range []string{flagPath, os.Getenv("MICLOCK_LOG_PATH")} {
		if p != "" {
			return filepath.Abs(p)
		}
	}
	return defaultDir()
}

func SetDir(d string) {
	out.mu.Lock()
	out.dir = d
	out.mu.Unlock()
}

func Dir() string {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.dir
}

func EnsureDir() error {
	if err := os.MkdirAll(Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Init opens the diagnostics log for appending. A log past maxFileSize is
// moved aside first, replacing the previous rotation. MICLOCK_DEBUG=1 also
// records debounce details.
func Init() error {
	if err := EnsureDir(); err != nil {
		return err
	}

	out.mu.Lock()
	defer out.mu.Unlock()

	path := filepath.Join(out.dir, fileName)
	if fi, err := os.Stat(path); err == nil && fi.Size() > maxFileSize {
		os.Rename(path, filepath.Join(out.dir, rotatedName))
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if os.Getenv("MICLOCK_DEBUG") == "1" {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: f, TimeFormat: "2006-01-02 15:04:05.000", NoColor: true}
	out.logger = zerolog.New(w).Level(level).With().Timestamp().Int("pid", os.Getpid()).Logger()
	out.file = f
	out.open = true
	return nil
}

func Close() {
	out.mu.Lock()
	defer out.mu.Unlock()
	if out.file != nil {
		out.file.Close()
		out.file = nil
	}
	out.open = false
}

// event starts a log event at level, or returns nil before Init. zerolog
// treats methods on a nil *Event as no-ops.
func event(level zerolog.Level) *zerolog.Event {
	out.mu.Lock()
	defer out.mu.Unlock()
	if !out.open {
		return nil
	}
	return out.logger.WithLevel(level)
}

func Info(msg string) { event(zerolog.InfoLevel).Msg(msg) }
func Infof(format string, args ...any) { event(zerolog.InfoLevel).Msgf(format, args...) }
func Warn(msg string) { event(zerolog.WarnLevel).Msg(msg) }
func Warnf(format string, args ...any) { event(zerolog.WarnLevel).Msgf(format, args...) }
func Error(msg string) { event(zerolog.ErrorLevel).Msg(msg) }
func Errorf(format string, args ...any) { event(zerolog.ErrorLevel).Msgf(format, args...) }

// EnforceData is one enforcement pass as seen by the log.
type EnforceData struct {
	Trigger       string // "event", "initial", "action"
	Enabled       bool
	LockedUID     string
	Changed       bool
	LockedMissing bool
	DurationMs    float64
	Err           error
}

// Enforce logs a pass at info level, or at error level when it failed.
func Enforce(d EnforceData) {
	level := zerolog.InfoLevel
	if d.Err != nil {
		level = zerolog.ErrorLevel
	}
	event(level).
		Err(d.Err).
		Str("trigger", d.Trigger).
		Bool("enabled", d.Enabled).
		Str("locked_uid", d.LockedUID).
		Bool("changed", d.Changed).
		Bool("locked_missing", d.LockedMissing).
		Float64("duration_ms", d.DurationMs).
		Msg("enforce")
}

// Debounce records how many events one enforcement pass absorbed.
func Debounce(events int, first string) {
	event(zerolog.DebugLevel).
		Int("events", events).
		Str("first", first).
		Msg("debounce")
}

func SessionStart(version, backend string, enabled bool, lockedUID string) {
	event(zerolog.InfoLevel).
		Str("version", version).
		Str("backend", backend).
		Bool("lock_enabled", enabled).
		Str("locked_uid", lockedUID).
		Msg("session_start")
}

func SessionEnd(passes int) {
	event(zerolog.InfoLevel).
		Int("passes", passes).
		Msg("session_end")
}
