package project

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"codeworkspace/internal/blobstore"
	"codeworkspace/internal/ident"
	"codeworkspace/internal/vfs"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *blobstore.Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)}
	blob := blobstore.NewMemory()
	store := NewStore(blob, Options{IDs: ident.NewSequence("id"), Now: clock.Now})
	return store, blob, clock
}

type failingBlob struct {
	loadErr error
	saveErr error
	data    []byte
}

func (f *failingBlob) Load(context.Context, string) ([]byte, error) {
	return f.data, f.loadErr
}

func (f *failingBlob) Save(_ context.Context, _ string, data []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.data = data
	return nil
}

func TestListEmpty(t *testing.T) {
	store, _, _ := newTestStore(t)
	projects, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if projects == nil || len(projects) != 0 {
		t.Fatalf("List() = %v, want empty non-nil", projects)
	}
}

func TestCreateWrapsSeed(t *testing.T) {
	store, _, clock := newTestStore(t)
	seed := []*vfs.Node{
		vfs.NewFile("seed-1", "README.md", "# hi"),
		vfs.NewFolder("seed-2", "src", vfs.NewFile("seed-3", "main.go", "package main")),
	}
	p, err := store.Create(context.Background(), "demo", seed)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Name != "demo" || p.Root.Name != "demo" || !p.Root.IsFolder() {
		t.Fatalf("Create() root = %+v", p.Root)
	}
	if len(p.Root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(p.Root.Children))
	}
	want := time.UnixMilli(clock.t.UnixMilli()).UTC()
	if !p.CreatedAt.Equal(want) || !p.LastModified.Equal(want) {
		t.Fatalf("timestamps = %v / %v, want %v", p.CreatedAt, p.LastModified, want)
	}
	seedIDs := map[string]bool{"seed-1": true, "seed-2": true, "seed-3": true}
	vfs.Walk(p.Root, func(n *vfs.Node) bool {
		if seedIDs[n.ID] {
			t.Errorf("node %q kept seed id %q", n.Name, n.ID)
		}
		return true
	})
	if err := vfs.Validate(p.Root); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// Mutating the returned copy does not touch the store.
	p.Root.Children = nil
	got, err := store.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Root.Children) != 2 {
		t.Fatalf("stored children = %d, want 2", len(got.Root.Children))
	}
}

func TestCreateEmptySeed(t *testing.T) {
	store, _, _ := newTestStore(t)
	p, err := store.Create(context.Background(), "empty", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Root.Children == nil || len(p.Root.Children) != 0 {
		t.Fatalf("root children = %v, want empty", p.Root.Children)
	}
}

func TestListOrderAndGet(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	a, _ := store.Create(ctx, "a", nil)
	b, _ := store.Create(ctx, "b", nil)

	projects, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(projects) != 2 || projects[0].ID != a.ID || projects[1].ID != b.ID {
		t.Fatalf("List() order wrong: %v", projects)
	}
	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(nope) error = %v, want ErrNotFound", err)
	}
}

func TestPutRefreshesLastModified(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()
	p, _ := store.Create(ctx, "demo", nil)
	created := p.CreatedAt

	clock.Advance(5 * time.Second)
	p.Root.Children = append(p.Root.Children, vfs.NewFile("f1", "a.txt", "x"))
	if err := store.Put(ctx, p); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !p.LastModified.After(created) {
		t.Fatalf("LastModified = %v, want after %v", p.LastModified, created)
	}
	got, _ := store.Get(ctx, p.ID)
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt changed: %v", got.CreatedAt)
	}
	if !got.LastModified.Equal(p.LastModified) {
		t.Fatalf("stored LastModified = %v, want %v", got.LastModified, p.LastModified)
	}
	if len(got.Root.Children) != 1 || got.Root.Children[0].Content != "x" {
		t.Fatalf("stored tree = %+v", got.Root.Children)
	}
}

func TestPutUnknown(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	p := &Project{ID: "ghost", Name: "ghost", Root: vfs.NewFolder("r", "ghost")}
	if err := store.Put(ctx, p); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Put() error = %v, want ErrNotFound", err)
	}
	if err := store.Put(ctx, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Put(nil) error = %v, want ErrNotFound", err)
	}
	projects, _ := store.List(ctx)
	if len(projects) != 0 {
		t.Fatalf("Put() of unknown project inserted it: %v", projects)
	}
}

func TestDelete(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	a, _ := store.Create(ctx, "a", nil)
	b, _ := store.Create(ctx, "b", nil)

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "unknown"); err != nil {
		t.Fatalf("Delete(unknown) error = %v", err)
	}
	projects, _ := store.List(ctx)
	if len(projects) != 1 || projects[0].ID != b.ID {
		t.Fatalf("List() after delete = %v", projects)
	}
}

func TestPersistedFormat(t *testing.T) {
	store, blob, clock := newTestStore(t)
	ctx := context.Background()
	p, _ := store.Create(ctx, "demo", []*vfs.Node{vfs.NewFile("x", "a.js", "1")})

	raw, err := blob.Load(ctx, DefaultKey)
	if err != nil || raw == nil {
		t.Fatalf("Load(%s) = %q, %v", DefaultKey, raw, err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("decoded = %v", decoded)
	}
	entry := decoded[0]
	if entry["id"] != p.ID || entry["name"] != "demo" {
		t.Fatalf("entry = %v", entry)
	}
	if entry["createdAt"] != float64(clock.t.UnixMilli()) {
		t.Fatalf("createdAt = %v, want %d", entry["createdAt"], clock.t.UnixMilli())
	}
	root, ok := entry["rootFolder"].(map[string]any)
	if !ok || root["type"] != "folder" {
		t.Fatalf("rootFolder = %v", entry["rootFolder"])
	}
}

func TestCustomKey(t *testing.T) {
	blob := blobstore.NewMemory()
	store := NewStore(blob, Options{Key: "other"})
	if _, err := store.Create(context.Background(), "x", nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if raw, _ := blob.Load(context.Background(), "other"); raw == nil {
		t.Fatal("collection not stored under custom key")
	}
	if raw, _ := blob.Load(context.Background(), DefaultKey); raw != nil {
		t.Fatal("collection unexpectedly stored under default key")
	}
}

func TestPersistenceFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk gone")

	t.Run("load error", func(t *testing.T) {
		store := NewStore(&failingBlob{loadErr: boom}, Options{})
		if _, err := store.List(ctx); !errors.Is(err, ErrPersistence) {
			t.Fatalf("List() error = %v, want ErrPersistence", err)
		}
	})
	t.Run("corrupt data", func(t *testing.T) {
		store := NewStore(&failingBlob{data: []byte("{not json")}, Options{})
		if _, err := store.List(ctx); !errors.Is(err, ErrPersistence) {
			t.Fatalf("List() error = %v, want ErrPersistence", err)
		}
	})
	t.Run("save error", func(t *testing.T) {
		store := NewStore(&failingBlob{saveErr: boom}, Options{})
		if _, err := store.Create(ctx, "x", nil); !errors.Is(err, ErrPersistence) {
			t.Fatalf("Create() error = %v, want ErrPersistence", err)
		}
	})
	t.Run("put keeps previous stamp on failure", func(t *testing.T) {
		blob := &failingBlob{}
		clock := &fakeClock{t: time.UnixMilli(1000).UTC()}
		store := NewStore(blob, Options{Now: clock.Now})
		p, err := store.Create(ctx, "x", nil)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		before := p.LastModified
		clock.Advance(time.Minute)
		blob.saveErr = boom
		if err := store.Put(ctx, p); !errors.Is(err, ErrPersistence) {
			t.Fatalf("Put() error = %v, want ErrPersistence", err)
		}
		if !p.LastModified.Equal(before) {
			t.Fatalf("LastModified = %v, want %v", p.LastModified, before)
		}
	})
}

func TestProjectJSONRoundTrip(t *testing.T) {
	in := &Project{
		ID:           "p1",
		Name:         "demo",
		CreatedAt:    time.UnixMilli(1700000000000).UTC(),
		LastModified: time.UnixMilli(1700000005000).UTC(),
		Root:         vfs.NewFolder("r", "demo", vfs.NewFile("f", "a.txt", "")),
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out Project
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || !out.LastModified.Equal(in.LastModified) {
		t.Fatalf("timestamps = %v / %v", out.CreatedAt, out.LastModified)
	}
	if out.Root == nil || len(out.Root.Children) != 1 || out.Root.Children[0].Name != "a.txt" {
		t.Fatalf("root = %+v", out.Root)
	}
}
