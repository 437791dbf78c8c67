// Package blobstore provides the keyed blob backends behind the project store.
//
// Every backend stores whole values under a key. Load returns (nil, nil)
// for a key that was never saved.
package blobstore

import (
	"context"
	"fmt"
	"log/slog"

	"codeworkspace/internal/config"
)

// Backend is a keyed blob store.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	// Type returns the backend identifier ("memory", "file", ...).
	Type() string
	Close() error
}

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	slog.Debug("[DEBUG-STORE] opening blob backend", "backend", cfg.Backend)
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendFile:
		return NewFile(cfg.Path), nil
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case config.BackendS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
