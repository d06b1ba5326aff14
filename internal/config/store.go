package config

import "sync"

// Store guards the live configuration for concurrent access. Handlers read
// through Snapshot and mutate through Update, so a config update racing a
// scan never exposes a half-written struct.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore wraps the loaded configuration. The Store owns cfg from here on;
// callers must not touch it directly afterwards.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

// Update applies fn to a scratch copy of the current configuration, then
// normalizes, saves, and commits it. When fn or the save fails, the live
// configuration is left untouched.
func (s *Store) Update(fn func(*Config) error) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scratch := s.cfg.clone()
	if err := fn(&scratch); err != nil {
		return Config{}, err
	}
	scratch.Normalize()
	if err := scratch.Save(); err != nil {
		return Config{}, err
	}

	*s.cfg = scratch
	return scratch.clone(), nil
}

// clone copies the configuration, including its one slice field.
func (c *Config) clone() Config {
	cp := *c
	if c.Template.ExtraFields != nil {
		cp.Template.ExtraFields = append([]string(nil), c.Template.ExtraFields...)
	}
	return cp
}
