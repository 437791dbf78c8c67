package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codeworkspace/internal/atomicfile"
	"codeworkspace/internal/metrics"
)

// File stores each key as <dir>/<key>.json, written atomically.
// A path ending in .json is treated as the file for every key instead.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) fileFor(key string) (string, error) {
	if strings.EqualFold(filepath.Ext(f.path), ".json") {
		return f.path, nil
	}
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(f.path, key+".json"), nil
}

func (f *File) Load(_ context.Context, key string) ([]byte, error) {
	path, err := f.fileFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			metrics.RecordBlobOperation(f.Type(), "load", true)
			return nil, nil
		}
		metrics.RecordBlobOperation(f.Type(), "load", false)
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	metrics.RecordBlobOperation(f.Type(), "load", true)
	return data, nil
}

func (f *File) Save(_ context.Context, key string, data []byte) error {
	path, err := f.fileFor(key)
	if err != nil {
		return err
	}
	if err := atomicfile.Write(path, data, 0o600); err != nil {
		metrics.RecordBlobOperation(f.Type(), "save", false)
		return err
	}
	metrics.RecordBlobOperation(f.Type(), "save", true)
	return nil
}

func (f *File) Type() string { return "file" }

func (f *File) Close() error { return nil }
