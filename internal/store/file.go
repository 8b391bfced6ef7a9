package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File stores each key as a JSON file under a directory.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile returns a File store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &File{dir: dir}, nil
}

var keyReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_")

func (f *File) path(key string) string {
	return filepath.Join(f.dir, keyReplacer.Replace(key)+".json")
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put writes to a temporary file and renames it over the old value so
// readers never see a partial document.
func (f *File) Put(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Ping checks that the data directory is still reachable.
func (f *File) Ping(context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}
