package marker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// fileState is the on-disk layout.
type fileState struct {
	Recorded map[string]time.Time `yaml:"recorded"`
}

// File keeps markers in a YAML file, for a CLI that runs once per command.
type File struct {
	path string
	now  func() time.Time

	mu    sync.Mutex
	state fileState
}

// OpenFile loads markers from path. A missing file is an empty store.
func OpenFile(path string) (*File, error) {
	f := &File{
		path:  path,
		now:   time.Now,
		state: fileState{Recorded: make(map[string]time.Time)},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read markers: %w", err)
	}
	if err := yaml.Unmarshal(data, &f.state); err != nil {
		return nil, fmt.Errorf("parse markers %s: %w", path, err)
	}
	if f.state.Recorded == nil {
		f.state.Recorded = make(map[string]time.Time)
	}
	return f, nil
}

// MarkOnce claims searchID and persists the claim before returning true.
func (f *File) MarkOnce(_ context.Context, searchID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.state.Recorded[searchID]; ok {
		return false, nil
	}
	f.state.Recorded[searchID] = f.now().UTC()
	if err := f.flush(); err != nil {
		delete(f.state.Recorded, searchID)
		return false, err
	}
	return true, nil
}

// Marked reports whether searchID has been claimed.
func (f *File) Marked(_ context.Context, searchID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.state.Recorded[searchID]
	return ok, nil
}

// flush writes to a temp file and renames it over the target.
func (f *File) flush() error {
	data, err := yaml.Marshal(&f.state)
	if err != nil {
		return fmt.Errorf("encode markers: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create marker dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".markers-*")
	if err != nil {
		return fmt.Errorf("create temp marker file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write markers: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close markers: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace markers: %w", err)
	}
	return nil
}
