// Package project persists whole project records, each wrapping one file tree.
package project

import (
	"encoding/json"
	"time"

	"codeworkspace/internal/vfs"
)

// Project is one persisted workspace.
type Project struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	LastModified time.Time
	Root         *vfs.Node
}

// projectWire matches the browser-side collection format: millisecond
// timestamps and the tree under "rootFolder".
type projectWire struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    int64     `json:"createdAt"`
	LastModified int64     `json:"lastModified"`
	Root         *vfs.Node `json:"rootFolder"`
}

func (p *Project) MarshalJSON() ([]byte, error) {
	return json.Marshal(projectWire{
		ID:           p.ID,
		Name:         p.Name,
		CreatedAt:    p.CreatedAt.UnixMilli(),
		LastModified: p.LastModified.UnixMilli(),
		Root:         p.Root,
	})
}

func (p *Project) UnmarshalJSON(data []byte) error {
	var w projectWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Project{
		ID:           w.ID,
		Name:         w.Name,
		CreatedAt:    time.UnixMilli(w.CreatedAt).UTC(),
		LastModified: time.UnixMilli(w.LastModified).UTC(),
		Root:         w.Root,
	}
	return nil
}

// Clone returns a deep copy, tree included.
func Clone(p *Project) *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Root = vfs.Clone(p.Root)
	return &out
}

// millis drops sub-millisecond precision so in-memory stamps equal persisted ones.
func millis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
