package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

const statusVersion = 1

// StatusSnapshot is the JSON document behind `powermon status`.
type StatusSnapshot struct {
	Version   int                 `json:"version"`
	SessionID string              `json:"session_id"`
	PID       int                 `json:"pid"`
	StartedAt time.Time           `json:"started_at"`
	PriorMode domain.Mode         `json:"prior_mode"`
	UpdatedAt time.Time           `json:"updated_at"`
	Last      domain.StatusRecord `json:"last"`
}

// StatusFile implements domain.StatusWriter with a JSON file replaced
// atomically on every write.
type StatusFile struct {
	path string
}

// NewStatusFile creates a status file at path.
func NewStatusFile(path string) *StatusFile {
	return &StatusFile{path: path}
}

// Path returns the status file location.
func (f *StatusFile) Path() string {
	return f.path
}

// WriteStatus replaces the file with the latest tick outcome.
func (f *StatusFile) WriteStatus(session domain.Session, rec domain.StatusRecord) error {
	return f.atomicWrite(&StatusSnapshot{
		Version:   statusVersion,
		SessionID: session.ID,
		PID:       session.PID,
		StartedAt: session.StartedAt,
		PriorMode: session.PriorMode,
		UpdatedAt: rec.At,
		Last:      rec,
	})
}

// Read returns the last written snapshot, or nil if none exists.
func (f *StatusFile) Read() (*StatusSnapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snap StatusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("corrupt status file %s: %w", f.path, err)
	}
	return &snap, nil
}

// Clear removes the status file.
func (f *StatusFile) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// atomicWrite writes the snapshot to file atomically (write + rename).
func (f *StatusFile) atomicWrite(snap *StatusSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", f.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return err
	}
	return nil
}

// Ensure StatusFile implements domain.StatusWriter.
var _ domain.StatusWriter = (*StatusFile)(nil)
