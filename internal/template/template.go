// Package template supplies the seed tree copied into every new project.
package template

import (
	"context"
	"errors"
	"log/slog"

	"codeworkspace/internal/config"
	"codeworkspace/internal/ident"
	"codeworkspace/internal/vfs"
)

// ErrNotFound is returned when the template source does not exist.
var ErrNotFound = errors.New("template directory not found")

// Provider returns the seed nodes for a new project.
type Provider interface {
	Fetch(ctx context.Context) ([]*vfs.Node, error)
}

// ProviderFunc adapts a function into Provider.
type ProviderFunc func(ctx context.Context) ([]*vfs.Node, error)

func (f ProviderFunc) Fetch(ctx context.Context) ([]*vfs.Node, error) {
	return f(ctx)
}

// New selects the provider configured by cfg: a directory when Dir is set,
// otherwise a remote endpoint when URL is set. It returns nil when neither is.
func New(cfg config.TemplateConfig, ids ident.Generator) Provider {
	switch {
	case cfg.Dir != "":
		return NewDirProvider(cfg.Dir, DirOptions{Skip: cfg.Skip, IDs: ids})
	case cfg.URL != "":
		return NewHTTPProvider(cfg.URL, nil)
	default:
		return nil
	}
}

// SeedOrEmpty fetches the seed and degrades every failure to an empty seed,
// so project creation never blocks on the template source.
func SeedOrEmpty(ctx context.Context, p Provider) []*vfs.Node {
	if p == nil {
		return []*vfs.Node{}
	}
	nodes, err := p.Fetch(ctx)
	if err != nil {
		slog.Warn("[WARN-TEMPLATE] template fetch failed, starting with an empty project", "error", err)
		return []*vfs.Node{}
	}
	if nodes == nil {
		return []*vfs.Node{}
	}
	return nodes
}
