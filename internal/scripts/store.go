// Package scripts stores named command sequences for the automation
// terminal, optionally persisting them to a YAML file that is watched for
// external edits.
package scripts

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScript is returned when a save payload has no name or no
// command sequence.
var ErrInvalidScript = errors.New("invalid script")

// Store holds named command sequences. Names are unique; saving an
// existing name overwrites it. There is no delete operation, and stored
// scripts survive session resets.
type Store struct {
	log  *logrus.Logger
	path string

	mu      sync.RWMutex
	scripts map[string][]string
}

func defaultScripts() map[string][]string {
	return map[string][]string{
		"sweep.sh":     {"scan 127.0.0.1", "patch blue-1", "patch blue-2", "patch blue-3"},
		"overclock.sh": {"rotate ip red-1", "encrypt payload red-2", "breach blue-1"},
	}
}

// New creates a store seeded with the baseline scripts and no persistence.
func New(log *logrus.Logger) *Store {
	return &Store{log: log, scripts: defaultScripts()}
}

// NewWithFile creates a store backed by the YAML file at path. An empty
// path disables persistence. If the file exists its contents replace the
// baseline scripts; otherwise the baseline is written out.
func NewWithFile(path string, log *logrus.Logger) (*Store, error) {
	s := &Store{log: log, path: path, scripts: defaultScripts()}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		loaded := make(map[string][]string)
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, err
		}
		if len(loaded) > 0 {
			s.scripts = loaded
		}
	case os.IsNotExist(err):
		s.persist()
	default:
		return nil, err
	}
	return s, nil
}

// Save validates and stores a script, overwriting any existing script of
// the same name.
func (s *Store) Save(name string, commands []string) error {
	if strings.TrimSpace(name) == "" || commands == nil {
		return ErrInvalidScript
	}
	s.mu.Lock()
	s.scripts[name] = append([]string(nil), commands...)
	s.mu.Unlock()
	s.persist()
	return nil
}

// Get returns the command sequence for name.
func (s *Store) Get(name string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cmds, ok := s.scripts[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), cmds...), true
}

// List returns a copy of all stored scripts.
func (s *Store) List() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.scripts))
	for name, cmds := range s.scripts {
		out[name] = append([]string(nil), cmds...)
	}
	return out
}

func (s *Store) persist() {
	if s.path == "" {
		return
	}
	s.mu.RLock()
	data, err := yaml.Marshal(s.scripts)
	s.mu.RUnlock()
	if err != nil {
		s.log.WithError(err).Error("Failed to encode scripts")
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.log.WithError(err).WithField("path", s.path).Error("Failed to persist scripts")
	}
}

func (s *Store) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("Failed to reload scripts")
		return
	}
	loaded := make(map[string][]string)
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("Ignoring malformed scripts file")
		return
	}
	s.mu.Lock()
	s.scripts = loaded
	s.mu.Unlock()
	s.log.WithField("scripts", len(loaded)).Info("Scripts reloaded from disk")
}
