// Package archive exports a project tree as a zip file.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"codeworkspace/internal/project"
	"codeworkspace/internal/vfs"
)

// Entry is one file in an export, addressed by its path below the root.
type Entry struct {
	Path    string
	Content string
}

// Entries lists every file under root in DFS pre-order. The root's own name
// is not part of any path. The tree is only read.
func Entries(root *vfs.Node) []Entry {
	entries := []Entry{}
	if root == nil {
		return entries
	}
	if root.IsFile() {
		return append(entries, Entry{Path: root.Name, Content: root.Content})
	}
	var walk func(n *vfs.Node, prefix string)
	walk = func(n *vfs.Node, prefix string) {
		for _, child := range n.Children {
			path := child.Name
			if prefix != "" {
				path = prefix + "/" + child.Name
			}
			if child.IsFile() {
				entries = append(entries, Entry{Path: path, Content: child.Content})
				continue
			}
			walk(child, path)
		}
	}
	walk(root, "")
	return entries
}

// WriteZip writes p's files to w as a zip archive.
func WriteZip(w io.Writer, p *project.Project) error {
	if p == nil {
		return fmt.Errorf("write zip: nil project")
	}
	zw := zip.NewWriter(w)
	entries := Entries(p.Root)
	written := 0
	for _, e := range entries {
		name := entryName(e.Path)
		if name == "" {
			slog.Warn("[WARN-ARCHIVE] skipping file with unusable path", "project", p.ID, "path", e.Path)
			continue
		}
		f, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return fmt.Errorf("write zip entry %s: %w", e.Path, err)
		}
		if _, err := io.WriteString(f, e.Content); err != nil {
			zw.Close()
			return fmt.Errorf("write zip entry %s: %w", e.Path, err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	slog.Debug("[DEBUG-ARCHIVE] project exported", "project", p.ID, "files", written)
	return nil
}

// entryName turns a tree path into a relative zip name that cannot escape the
// extraction directory. It returns "" when nothing usable is left.
func entryName(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// FileName is the download name for p's archive.
func FileName(p *project.Project) string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "project"
	}
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	return name + ".zip"
}
