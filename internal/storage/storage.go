// Package storage implements the device-id persistence slot: a
// best-effort cache of the last-connected device identity, never
// load-bearing. Every provider swallows failures with a logged warning
// rather than surfacing them to callers.
package storage

import (
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Slot is a single remembered device id.
type Slot interface {
	Get() (id string, ok bool)
	Set(id string)
	Remove()
}

// Memory is an in-process slot, equivalent to the browser contract's
// in-memory provider. Safe for concurrent use.
type Memory struct {
	mu sync.RWMutex
	id string
	ok bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Get() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id, m.ok
}

func (m *Memory) Set(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.ok = id, true
}

func (m *Memory) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.ok = "", false
}

// Session is an alias of Memory's semantics: it remembers a device id
// only for this process's lifetime, mirroring the browser contract's
// session-storage provider.
type Session struct{ *Memory }

func NewSession() Session { return Session{Memory: NewMemory()} }

// noop disables persistence entirely: Get always misses, Set/Remove do
// nothing. Mirrors the browser contract's explicit no-op provider.
type noop struct{}

// NoOp returns a slot that never remembers anything.
func NoOp() Slot { return noop{} }

func (noop) Get() (string, bool) { return "", false }
func (noop) Set(string)          {}
func (noop) Remove()             {}

// fileDoc is the on-disk shape for the File provider.
type fileDoc struct {
	DeviceID string `yaml:"device_id"`
}

// File persists the device id as YAML at Path, mirroring the browser
// contract's local-storage provider. All I/O failures are logged and
// swallowed.
type File struct {
	Path   string
	Logger *slog.Logger

	mu sync.Mutex
}

// NewFile returns a File-backed slot. A nil logger falls back to the
// standard logger.
func NewFile(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{Path: path, Logger: logger}
}

func (f *File) Get() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.Logger.Warn("storage: failed to read remembered device id", slog.String("error", err.Error()))
		}
		return "", false
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		f.Logger.Warn("storage: remembered device id file is corrupt", slog.String("error", err.Error()))
		return "", false
	}
	if doc.DeviceID == "" {
		return "", false
	}
	return doc.DeviceID, true
}

func (f *File) Set(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(fileDoc{DeviceID: id})
	if err != nil {
		f.Logger.Warn("storage: failed to encode remembered device id", slog.String("error", err.Error()))
		return
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		f.Logger.Warn("storage: failed to persist remembered device id", slog.String("error", err.Error()))
	}
}

func (f *File) Remove() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		f.Logger.Warn("storage: failed to remove remembered device id", slog.String("error", err.Error()))
	}
}
