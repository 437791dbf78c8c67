package template

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeworkspace/internal/config"
	"codeworkspace/internal/ident"
	"codeworkspace/internal/testutil"
	"codeworkspace/internal/vfs"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func makeTemplateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "README.md"), "# Template")
	writeFile(t, filepath.Join(dir, "src", "index.js"), "console.log(1)")
	writeFile(t, filepath.Join(dir, "src", "app.js"), "export {}")
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref")
	writeFile(t, filepath.Join(dir, "node_modules", "x", "index.js"), "")
	writeFile(t, filepath.Join(dir, "build", "out.js"), "")
	writeFile(t, filepath.Join(dir, ".github", "ci.yml"), "")
	return dir
}

func names(nodes []*vfs.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestDirProviderFetch(t *testing.T) {
	dir := makeTemplateDir(t)
	p := NewDirProvider(dir, DirOptions{IDs: ident.NewSequence("t")})
	nodes, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := strings.Join(names(nodes), ","); got != "README.md,src" {
		t.Fatalf("top-level = %s, want README.md,src", got)
	}
	if nodes[0].Content != "# Template" || !nodes[0].IsFile() {
		t.Fatalf("README = %+v", nodes[0])
	}
	src := nodes[1]
	if !src.IsFolder() || strings.Join(names(src.Children), ",") != "app.js,index.js" {
		t.Fatalf("src = %+v", src)
	}
	if err := vfs.Validate(vfs.NewFolder("root", "root", nodes...)); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestDirProviderCaching(t *testing.T) {
	dir := makeTemplateDir(t)
	p := NewDirProvider(dir, DirOptions{})
	first, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	first[0].Name = "mutated"

	writeFile(t, filepath.Join(dir, "new.txt"), "fresh")
	second, _ := p.Fetch(context.Background())
	if second[0].Name != "README.md" {
		t.Fatalf("cached tree aliased caller copy: %s", second[0].Name)
	}
	if len(second) != 2 {
		t.Fatalf("cache should hide new.txt until invalidated, got %v", names(second))
	}

	p.Invalidate()
	third, _ := p.Fetch(context.Background())
	if got := strings.Join(names(third), ","); got != "README.md,new.txt,src" {
		t.Fatalf("after Invalidate() = %s", got)
	}
}

func TestDirProviderCustomSkip(t *testing.T) {
	dir := makeTemplateDir(t)
	p := NewDirProvider(dir, DirOptions{Skip: []string{"src"}})
	nodes, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	got := strings.Join(names(nodes), ",")
	if strings.Contains(got, "src") || !strings.Contains(got, ".git") {
		t.Fatalf("custom skip list not applied: %s", got)
	}
}

func TestDirProviderMissing(t *testing.T) {
	p := NewDirProvider(filepath.Join(t.TempDir(), "nope"), DirOptions{})
	if _, err := p.Fetch(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fetch() error = %v, want ErrNotFound", err)
	}
}

func TestWatcherInvalidates(t *testing.T) {
	dir := makeTemplateDir(t)
	p := NewDirProvider(dir, DirOptions{})
	if _, err := p.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	changed := make(chan struct{}, 1)
	w, err := NewWatcher(p, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.debounce = 20 * time.Millisecond
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, filepath.Join(dir, "src", "added.js"), "x")
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}
	nodes, _ := p.Fetch(context.Background())
	if got := strings.Join(names(nodes[1].Children), ","); got != "added.js,app.js,index.js" {
		t.Fatalf("src after change = %s", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop on cancel")
	}
}

func TestHandlerAndHTTPProvider(t *testing.T) {
	dir := makeTemplateDir(t)
	srv := httptest.NewServer(Handler(NewDirProvider(dir, DirOptions{})))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("status=%d body=%v", resp.StatusCode, body)
	}

	nodes, err := NewHTTPProvider(srv.URL, srv.Client()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("HTTPProvider.Fetch() error = %v", err)
	}
	if got := strings.Join(names(nodes), ","); got != "README.md,src" {
		t.Fatalf("HTTPProvider.Fetch() = %s", got)
	}
}

func TestHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		provider   Provider
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing dir",
			provider:   NewDirProvider(filepath.Join(t.TempDir(), "nope"), DirOptions{}),
			wantStatus: http.StatusNotFound,
			wantError:  "Template directory not found",
		},
		{
			name:       "nil provider",
			wantStatus: http.StatusNotFound,
			wantError:  "Template directory not found",
		},
		{
			name: "read failure",
			provider: ProviderFunc(func(context.Context) ([]*vfs.Node, error) {
				return nil, errors.New("permission denied")
			}),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to read template directory",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler(tt.provider).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/template", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if body["error"] != tt.wantError {
				t.Fatalf("error = %q, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestHTTPProviderNotFound(t *testing.T) {
	srv := httptest.NewServer(Handler(nil))
	defer srv.Close()
	_, err := NewHTTPProvider(srv.URL, srv.Client()).Fetch(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fetch() error = %v, want ErrNotFound", err)
	}
}

func TestSeedOrEmpty(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelInfo)
	failing := ProviderFunc(func(context.Context) ([]*vfs.Node, error) {
		return nil, errors.New("offline")
	})
	if got := SeedOrEmpty(context.Background(), failing); got == nil || len(got) != 0 {
		t.Fatalf("SeedOrEmpty(failing) = %v, want empty", got)
	}
	if !strings.Contains(logBuf.String(), "offline") {
		t.Fatalf("expected warning in log, got %q", logBuf.String())
	}
	if got := SeedOrEmpty(context.Background(), nil); got == nil || len(got) != 0 {
		t.Fatalf("SeedOrEmpty(nil) = %v, want empty", got)
	}
	ok := ProviderFunc(func(context.Context) ([]*vfs.Node, error) {
		return []*vfs.Node{vfs.NewFile("a", "a.txt", "")}, nil
	})
	if got := SeedOrEmpty(context.Background(), ok); len(got) != 1 {
		t.Fatalf("SeedOrEmpty(ok) = %v", got)
	}
}

func TestNew(t *testing.T) {
	if p := New(config.TemplateConfig{}, nil); p != nil {
		t.Fatalf("New(empty) = %T, want nil", p)
	}
	if _, ok := New(config.TemplateConfig{Dir: t.TempDir(), URL: "http://x"}, nil).(*DirProvider); !ok {
		t.Fatal("New() should prefer Dir over URL")
	}
	if _, ok := New(config.TemplateConfig{URL: "http://x"}, nil).(*HTTPProvider); !ok {
		t.Fatal("New(URL) should return an HTTPProvider")
	}
}
