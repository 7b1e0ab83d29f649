// Package prefs persists per-instance flags the external runtime cannot
// store for pre-existing instances. Currently that is only the keep-awake
// flag. The file is read-modify-written by short-lived commands; the power
// daemon only reads it, so last-write-wins races are low impact.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// fileShape is the on-disk JSON layout.
type fileShape struct {
	KeepAwakeByInternalName map[string]bool `json:"keepAwakeByInternalName"`
}

// Store reads and writes the preference file at a fixed path.
type Store struct {
	path string
}

// NewStore returns a Store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// load parses the preference file. A missing or malformed file is treated
// as empty, never as an error.
func (s *Store) load() fileShape {
	shape := fileShape{KeepAwakeByInternalName: map[string]bool{}}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return shape
	}
	var parsed fileShape
	if err := json.Unmarshal(data, &parsed); err != nil {
		return shape
	}
	if parsed.KeepAwakeByInternalName != nil {
		shape.KeepAwakeByInternalName = parsed.KeepAwakeByInternalName
	}
	return shape
}

// save writes the file atomically via a temp file in the same directory.
func (s *Store) save(shape fileShape) error {
	data, err := json.MarshalIndent(shape, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating preference dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("creating temp preference file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing preference file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing preference file: %w", err)
	}
	return nil
}

// KeepAwake returns the stored keep-awake flag for internalName, if any.
func (s *Store) KeepAwake(internalName string) (value, ok bool) {
	shape := s.load()
	value, ok = shape.KeepAwakeByInternalName[internalName]
	return value, ok
}

// SetKeepAwake records the keep-awake flag for internalName. This touches
// only the preference file, never the instance.
func (s *Store) SetKeepAwake(internalName string, keepAwake bool) error {
	shape := s.load()
	shape.KeepAwakeByInternalName[internalName] = keepAwake
	return s.save(shape)
}

// Purge removes all preferences for internalName. Called on delete; a
// missing entry is a no-op.
func (s *Store) Purge(internalName string) error {
	shape := s.load()
	if _, ok := shape.KeepAwakeByInternalName[internalName]; !ok {
		return nil
	}
	delete(shape.KeepAwakeByInternalName, internalName)
	return s.save(shape)
}

// DefaultPath returns the fixed per-user preference file location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "boxctl", "prefs.json"), nil
}
