package template

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"codeworkspace/internal/config"
	"codeworkspace/internal/ident"
	"codeworkspace/internal/vfs"
)

// DirOptions configures a DirProvider. Zero values use defaults.
type DirOptions struct {
	// Skip lists entry names (files or folders) left out at any depth.
	Skip []string
	IDs  ident.Generator
}

// DirProvider reads a template directory into nodes. The result is cached
// until Invalidate is called; every Fetch returns a fresh deep copy.
type DirProvider struct {
	dir  string
	skip map[string]bool
	ids  ident.Generator

	mu     sync.Mutex
	cached []*vfs.Node
}

func NewDirProvider(dir string, opts DirOptions) *DirProvider {
	skipNames := opts.Skip
	if skipNames == nil {
		skipNames = config.DefaultSkip()
	}
	skip := make(map[string]bool, len(skipNames))
	for _, name := range skipNames {
		skip[name] = true
	}
	return &DirProvider{dir: dir, skip: skip, ids: ident.OrDefault(opts.IDs)}
}

// Dir returns the template directory.
func (p *DirProvider) Dir() string {
	return p.dir
}

// Invalidate drops the cached tree so the next Fetch rereads the directory.
func (p *DirProvider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
	slog.Debug("[DEBUG-TEMPLATE] template cache invalidated", "dir", p.dir)
}

func (p *DirProvider) Fetch(ctx context.Context) ([]*vfs.Node, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil {
		return vfs.CloneAll(p.cached), nil
	}
	nodes, err := p.read(ctx)
	if err != nil {
		return nil, err
	}
	p.cached = nodes
	return vfs.CloneAll(nodes), nil
}

type dirEntry struct {
	rel     string
	isDir   bool
	content string
}

func (p *DirProvider) read(ctx context.Context) ([]*vfs.Node, error) {
	info, err := os.Stat(p.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p.dir, ErrNotFound)
		}
		return nil, fmt.Errorf("stat template dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", p.dir, ErrNotFound)
	}

	var (
		mu      sync.Mutex
		entries []dirEntry
	)
	root := filepath.Clean(p.dir)
	conf := &fastwalk.Config{Follow: true}
	err = fastwalk.Walk(conf, root, func(fullPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if fullPath == root {
			return nil
		}
		if p.skip[d.Name()] {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, fullPath)
		if err != nil {
			return err
		}
		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			return err
		}
		entry := dirEntry{rel: filepath.ToSlash(rel), isDir: info.IsDir()}
		if !entry.isDir {
			if !info.Mode().IsRegular() {
				return nil
			}
			data, err := os.ReadFile(fullPath)
			if err != nil {
				return err
			}
			entry.content = string(data)
		}
		mu.Lock()
		entries = append(entries, entry)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read template dir %s: %w", p.dir, err)
	}
	nodes := p.build(entries)
	slog.Debug("[DEBUG-TEMPLATE] template directory read", "dir", p.dir, "entries", len(entries))
	return nodes, nil
}

// build assembles the walk output into a tree with children sorted by name.
// fastwalk visits directories concurrently, so order is restored here.
func (p *DirProvider) build(entries []dirEntry) []*vfs.Node {
	byParent := make(map[string][]dirEntry)
	for _, e := range entries {
		parent := ""
		if i := strings.LastIndex(e.rel, "/"); i >= 0 {
			parent = e.rel[:i]
		}
		byParent[parent] = append(byParent[parent], e)
	}
	var assemble func(parent string) []*vfs.Node
	assemble = func(parent string) []*vfs.Node {
		children := byParent[parent]
		slices.SortFunc(children, func(a, b dirEntry) int {
			return strings.Compare(a.rel, b.rel)
		})
		nodes := make([]*vfs.Node, 0, len(children))
		for _, e := range children {
			name := e.rel[strings.LastIndex(e.rel, "/")+1:]
			if e.isDir {
				nodes = append(nodes, vfs.NewFolder(p.ids.NewID(), name, assemble(e.rel)...))
				continue
			}
			nodes = append(nodes, vfs.NewFile(p.ids.NewID(), name, e.content))
		}
		return nodes
	}
	return assemble("")
}
