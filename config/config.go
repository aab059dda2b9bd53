// Package config persists the user's lock settings as YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"gopkg.in/yaml.v3"
)

const (
	fileName = "config.yaml"

	maxRetries     = 3
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
)

type Config struct {
	LockEnabled  bool   `yaml:"lock_enabled"`
	LockedUID    string `yaml:"locked_uid,omitempty"`
	StartAtLogin bool   `yaml:"start_at_login"`
	Hotkey       bool   `yaml:"hotkey"`
}

func Default() Config {
	return Config{Hotkey: true}
}

// ResolvePath picks the config file: -config flag, then MICLOCK_CONFIG, then
// the per-user config directory.
func ResolvePath(flagPath string) (string, error) {
	if flagPath != "" {
		return filepath.Abs(flagPath)
	}
	if env := os.Getenv("MICLOCK_CONFIG"); env != "" {
		return filepath.Abs(env)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(dir, "miclock", fileName), nil
}

// Store is the loaded settings plus the file they came from. It is the only
// place settings are written back to disk.
type Store struct {
	path string

	mu  sync.Mutex
	cfg Config
}

// Load reads path. A missing file yields defaults. A corrupt file also yields
// defaults, together with the parse error so the caller can log it.
func Load(path string) (*Store, error) {
	s := &Store{path: path, cfg: Default()}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return s, fmt.Errorf("parsing %s: %w", path, err)
	}
	s.cfg = cfg
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Update applies fn to a copy of the settings and saves the result. The
// in-memory settings only change if the save succeeds.
func (s *Store) Update(fn func(*Config)) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	fn(&next)
	if err := retry.Do(func() error {
		return save(s.path, next)
	}, retry.Attempts(maxRetries), retry.Delay(initialBackoff), retry.MaxDelay(maxBackoff)); err != nil {
		return s.cfg, err
	}
	s.cfg = next
	return next, nil
}

// save writes to a temp file in the same directory and renames it over path.
func save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+fileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
