// Package history keeps a small record of past setup runs in the data dir.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record holds what the last successful setup learned.
type Record struct {
	// LastReady is when the engine was last bound.
	LastReady time.Time `json:"last_ready,omitempty"`

	// Backend is "native" or "virtualized".
	Backend string `json:"backend,omitempty"`

	VirtualBoxVersion string `json:"virtualbox_version,omitempty"`
	MachineVersion    string `json:"machine_version,omitempty"`

	// IP is the VM address; empty for the native backend.
	IP string `json:"ip,omitempty"`

	// ReadyCount is the number of successful setups.
	ReadyCount int `json:"ready_count"`

	// LastDuration is how long the last setup took.
	LastDuration time.Duration `json:"last_duration,omitempty"`
}

// File manages history storage.
type File struct {
	path string
}

// NewFile creates a history file manager under dataDir.
func NewFile(dataDir string) *File {
	return &File{
		path: filepath.Join(dataDir, "state.json"),
	}
}

// Load reads the record from disk. A missing file yields an empty record.
func (f *File) Load() (*Record, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return &Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	return &rec, nil
}

// Save writes the record atomically.
func (f *File) Save(rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return os.Rename(tmpPath, f.path)
}

// Ready describes one successful setup.
type Ready struct {
	Backend           string
	VirtualBoxVersion string
	MachineVersion    string
	IP                string
	Duration          time.Duration
}

// RecordReady stores a successful setup. Versions from an earlier
// virtualized run are kept when r does not carry its own.
func (f *File) RecordReady(r Ready) error {
	rec, err := f.Load()
	if err != nil {
		return err
	}

	rec.LastReady = time.Now()
	rec.Backend = r.Backend
	rec.IP = r.IP
	rec.LastDuration = r.Duration
	rec.ReadyCount++
	if r.VirtualBoxVersion != "" {
		rec.VirtualBoxVersion = r.VirtualBoxVersion
	}
	if r.MachineVersion != "" {
		rec.MachineVersion = r.MachineVersion
	}

	return f.Save(rec)
}

// Path returns the history file path.
func (f *File) Path() string {
	return f.path
}
