package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"codeworkspace/internal/blobstore"
	"codeworkspace/internal/config"
	"codeworkspace/internal/ident"
	"codeworkspace/internal/project"
	"codeworkspace/internal/template"
	"codeworkspace/internal/vfs"
)

// logOutput is swapped by tests.
var logOutput io.Writer = os.Stderr

// env is everything a subcommand needs, built from one config file.
type env struct {
	cfg      config.Config
	blob     blobstore.Backend
	store    *project.Store
	template template.Provider
}

func loadEnv(ctx context.Context, configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(baseLogHandler(cfg)))

	blob, err := blobstore.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:      cfg,
		blob:     blob,
		store:    project.NewStore(blob, project.Options{Key: cfg.Storage.Key}),
		template: template.New(cfg.Template, ident.UUID),
	}, nil
}

func baseLogHandler(cfg config.Config) slog.Handler {
	return slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})
}

func (e *env) treeOptions() vfs.Options {
	return vfs.Options{AllowDuplicateNames: e.cfg.VFS.AllowDuplicateNames}
}

func (e *env) close() {
	if err := e.blob.Close(); err != nil {
		slog.Warn("[WARN-STORE] failed to close storage backend", "backend", e.blob.Type(), "error", err)
	}
}
