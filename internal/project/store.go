package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"codeworkspace/internal/ident"
	"codeworkspace/internal/metrics"
	"codeworkspace/internal/vfs"
)

// DefaultKey is the single key the project collection is stored under.
const DefaultKey = "codeworkspace-projects"

var (
	// ErrNotFound is returned when no project has the requested id.
	ErrNotFound = errors.New("project not found")

	// ErrPersistence wraps every backend read/write/decode failure.
	ErrPersistence = errors.New("project persistence failure")
)

// Blob is the opaque keyed storage behind the store. Load returns (nil, nil)
// for a key that was never written.
type Blob interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Options configures a Store. Zero values use defaults.
type Options struct {
	Key string
	IDs ident.Generator
	Now func() time.Time
}

// Store reads and writes the whole project collection on every call.
// Calls are serialized so a read-modify-write never interleaves with another
// from the same process. Other processes sharing the blob win by last write.
type Store struct {
	blob Blob
	key  string
	ids  ident.Generator
	now  func() time.Time

	mu sync.Mutex
}

// NewStore creates a Store over blob.
func NewStore(blob Blob, opts Options) *Store {
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		blob: blob,
		key:  key,
		ids:  ident.OrDefault(opts.IDs),
		now:  now,
	}
}

func (s *Store) load(ctx context.Context) ([]*Project, error) {
	raw, err := s.blob.Load(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrPersistence, s.key, err)
	}
	if len(raw) == 0 {
		return []*Project{}, nil
	}
	var projects []*Project
	if err := json.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrPersistence, s.key, err)
	}
	if projects == nil {
		projects = []*Project{}
	}
	return projects, nil
}

func (s *Store) save(ctx context.Context, projects []*Project) error {
	raw, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrPersistence, s.key, err)
	}
	if err := s.blob.Save(ctx, s.key, raw); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrPersistence, s.key, err)
	}
	return nil
}

func (s *Store) observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(op, time.Since(start), err == nil)
	if err != nil {
		slog.Warn("[WARN-STORE] store operation failed", "op", op, "error", err)
	}
}

// List returns every project in collection order.
func (s *Store) List(ctx context.Context) (_ []*Project, err error) {
	start := time.Now()
	defer func() { s.observe("list", start, err) }()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns the project with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (_ *Project, err error) {
	start := time.Now()
	defer func() { s.observe("get", start, err) }()
	s.mu.Lock()
	defer s.mu.Unlock()
	projects, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
}

// Create wraps seed as the children of a new root folder named after the
// project and appends the project to the collection. The seed is deep-copied
// with fresh ids.
func (s *Store) Create(ctx context.Context, name string, seed []*vfs.Node) (_ *Project, err error) {
	start := time.Now()
	defer func() { s.observe("create", start, err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	stamp := millis(s.now())
	p := &Project{
		ID:           s.ids.NewID(),
		Name:         name,
		CreatedAt:    stamp,
		LastModified: stamp,
		Root:         vfs.NewFolder(s.ids.NewID(), name, vfs.Reassign(s.ids, seed)...),
	}
	projects = append(projects, p)
	if err := s.save(ctx, projects); err != nil {
		return nil, err
	}
	slog.Debug("[DEBUG-STORE] project created", "id", p.ID, "name", name, "seedNodes", len(seed))
	return Clone(p), nil
}

// Put replaces the stored project with the same id and refreshes
// p.LastModified. It returns ErrNotFound when the id was never created (or was
// deleted meanwhile).
func (s *Store) Put(ctx context.Context, p *Project) (err error) {
	start := time.Now()
	defer func() { s.observe("put", start, err) }()
	if p == nil {
		return fmt.Errorf("put: %w", ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load(ctx)
	if err != nil {
		return err
	}
	index := -1
	for i, existing := range projects {
		if existing.ID == p.ID {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("put %s: %w", p.ID, ErrNotFound)
	}
	previous := p.LastModified
	p.LastModified = millis(s.now())
	projects[index] = p
	if err := s.save(ctx, projects); err != nil {
		p.LastModified = previous
		return err
	}
	slog.Debug("[DEBUG-STORE] project saved", "id", p.ID)
	return nil
}

// Delete removes the project with id. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete", start, err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := make([]*Project, 0, len(projects))
	for _, p := range projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(projects) {
		slog.Debug("[DEBUG-STORE] delete of unknown project ignored", "id", id)
		return nil
	}
	return s.save(ctx, kept)
}
