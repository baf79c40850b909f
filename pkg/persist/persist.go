// Package persist saves and restores state snapshots as JSON, so a
// store can be rehydrated across process restarts. Snapshots are net
// state only; no change history is kept.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when no snapshot exists under the given key.
var ErrNotFound = errors.New("persist: snapshot not found")

// Snapshots stores state snapshots by key.
type Snapshots interface {
	// Save serializes state and stores it under key, replacing any
	// previous snapshot.
	Save(ctx context.Context, key string, state any) error

	// Load reads the snapshot under key into the value pointed to by
	// into. Returns ErrNotFound if no snapshot exists.
	Load(ctx context.Context, key string, into any) error
}

// FileSnapshots stores snapshots as files under a directory.
type FileSnapshots struct {
	dir string
}

// NewFileSnapshots creates a file-backed snapshot store rooted at dir.
func NewFileSnapshots(dir string) *FileSnapshots {
	return &FileSnapshots{dir: dir}
}

func (f *FileSnapshots) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Save writes the snapshot atomically (temp file plus rename).
func (f *FileSnapshots) Save(_ context.Context, key string, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path(key)); err != nil {
		return fmt.Errorf("finalize snapshot: %w", err)
	}
	return nil
}

func (f *FileSnapshots) Load(_ context.Context, key string, into any) error {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read snapshot: %w", err)
	}

	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return nil
}
