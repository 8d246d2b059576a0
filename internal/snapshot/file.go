package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileRepository stores the snapshot slot as a JSON file on disk. It is
// the fallback for terminals running without Redis; a draft survives
// process restarts but stays local to the machine.
type FileRepository struct {
	path string
}

// NewFileRepository constructs a file-backed snapshot slot at path. The
// parent directory is created if missing.
func NewFileRepository(path string) (*FileRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("snapshot: file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("snapshot: create directory %s: %w", dir, err)
		}
	}
	return &FileRepository{path: path}, nil
}

// Load implements Repository.
func (r *FileRepository) Load(_ context.Context) (Snapshot, bool, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("snapshot: read %s: %w", r.path, err)
	}
	if len(data) == 0 {
		return Snapshot{}, false, nil
	}
	snap, err := Decode(data)
	if err != nil {
		// Same policy as the other slots: a corrupt draft reads as absent.
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Save implements Repository. The write goes through a temp file and
// rename so a crash mid-save cannot corrupt the existing draft.
func (r *FileRepository) Save(_ context.Context, snap Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("snapshot: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("snapshot: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("snapshot: replace %s: %w", r.path, err)
	}
	return nil
}

// Clear implements Repository.
func (r *FileRepository) Clear(_ context.Context) error {
	err := os.Remove(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("snapshot: remove %s: %w", r.path, err)
	}
	return nil
}
