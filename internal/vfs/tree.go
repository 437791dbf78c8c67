package vfs

import (
	"log/slog"
	"strings"

	"codeworkspace/internal/ident"
)

// Options tunes namespace rules.
type Options struct {
	// AllowDuplicateNames permits several siblings with the same name. This is
	// the default; turning it off makes create and rename reject collisions.
	AllowDuplicateNames bool
}

// DefaultOptions keeps the permissive namespace.
func DefaultOptions() Options {
	return Options{AllowDuplicateNames: true}
}

// Tree performs mutations that need fresh ids or namespace rules.
// It holds no tree state itself; every call receives the root to operate on.
type Tree struct {
	ids  ident.Generator
	opts Options
}

// New creates a Tree. A nil generator falls back to random UUIDs.
func New(ids ident.Generator, opts Options) *Tree {
	return &Tree{ids: ident.OrDefault(ids), opts: opts}
}

// Options returns the namespace rules this Tree enforces.
func (t *Tree) Options() Options {
	return t.opts
}

// FindByID returns the first node with id in DFS pre-order, or nil.
func FindByID(root *Node, id string) *Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for _, child := range root.Children {
		if found := FindByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// FindParent returns the folder whose direct children contain childID, or nil.
// The root has no parent.
func FindParent(root *Node, childID string) *Node {
	if root == nil {
		return nil
	}
	for _, child := range root.Children {
		if child.ID == childID {
			return root
		}
		if found := FindParent(child, childID); found != nil {
			return found
		}
	}
	return nil
}

// CreateFile appends a new file to the folder parentID.
func (t *Tree) CreateFile(root *Node, parentID, name, content string) (*Node, error) {
	parent, err := t.parentFor(OpCreateFile, root, parentID, name)
	if err != nil {
		return nil, err
	}
	node := NewFile(t.ids.NewID(), name, content)
	parent.Children = append(parent.Children, node)
	slog.Debug("[DEBUG-VFS] file created", "id", node.ID, "parent", parentID, "name", name)
	return node, nil
}

// CreateFolder appends a new empty folder to the folder parentID.
func (t *Tree) CreateFolder(root *Node, parentID, name string) (*Node, error) {
	parent, err := t.parentFor(OpCreateFolder, root, parentID, name)
	if err != nil {
		return nil, err
	}
	node := NewFolder(t.ids.NewID(), name)
	parent.Children = append(parent.Children, node)
	slog.Debug("[DEBUG-VFS] folder created", "id", node.ID, "parent", parentID, "name", name)
	return node, nil
}

func (t *Tree) parentFor(op string, root *Node, parentID, name string) (*Node, error) {
	parent := FindByID(root, parentID)
	if !parent.IsFolder() {
		return nil, &Error{Op: op, ID: parentID, Err: ErrParentNotFound}
	}
	if !t.opts.AllowDuplicateNames && hasChildNamed(parent, name, "") {
		return nil, &Error{Op: op, ID: parentID, Err: ErrDuplicateName}
	}
	return parent, nil
}

func hasChildNamed(folder *Node, name, exceptID string) bool {
	for _, child := range folder.Children {
		if child.Name == name && child.ID != exceptID {
			return true
		}
	}
	return false
}

// Rename sets the node's name. A missing node is ignored. The only error is
// ErrDuplicateName when duplicates are disabled.
func (t *Tree) Rename(root *Node, nodeID, newName string) error {
	node := FindByID(root, nodeID)
	if node == nil {
		slog.Debug("[DEBUG-VFS] rename target missing, ignoring", "id", nodeID)
		return nil
	}
	if !t.opts.AllowDuplicateNames {
		if parent := FindParent(root, nodeID); parent != nil && hasChildNamed(parent, newName, nodeID) {
			return &Error{Op: OpRename, ID: nodeID, Err: ErrDuplicateName}
		}
	}
	node.Name = newName
	return nil
}

// Delete removes the node and its whole subtree from its parent. Nodes
// without a parent (missing, or the root itself) are ignored.
func Delete(root *Node, nodeID string) {
	parent := FindParent(root, nodeID)
	if parent == nil {
		slog.Debug("[DEBUG-VFS] delete target has no parent, ignoring", "id", nodeID)
		return
	}
	kept := parent.Children[:0:0]
	for _, child := range parent.Children {
		if child.ID != nodeID {
			kept = append(kept, child)
		}
	}
	parent.Children = kept
}

// SetFileContent replaces a file's content. Missing ids and folders are ignored.
func SetFileContent(root *Node, fileID, content string) {
	node := FindByID(root, fileID)
	if !node.IsFile() {
		return
	}
	node.Content = content
}

// Walk visits every node in DFS pre-order until fn returns false.
func Walk(root *Node, fn func(n *Node) bool) {
	walk(root, fn)
}

func walk(n *Node, fn func(n *Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}

// ListFiles flattens the tree into its files, DFS pre-order.
func ListFiles(root *Node) []*Node {
	var files []*Node
	Walk(root, func(n *Node) bool {
		if n.IsFile() {
			files = append(files, n)
		}
		return true
	})
	return files
}

// PathOf joins the names from the root (exclusive) down to the node.
// It returns "" for a missing node and for the root itself.
func PathOf(root *Node, nodeID string) string {
	if root == nil {
		return ""
	}
	var segments []string
	var build func(n *Node) bool
	build = func(n *Node) bool {
		if n.ID == nodeID {
			segments = append(segments, n.Name)
			return true
		}
		for _, child := range n.Children {
			if build(child) {
				segments = append(segments, n.Name)
				return true
			}
		}
		return false
	}
	if !build(root) {
		return ""
	}
	// segments is leaf-first and ends with the root's name.
	segments = segments[:len(segments)-1]
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, "/")
}

// Reassign deep-copies nodes giving every copy a fresh id. Used to seed new
// projects so a reused template can never introduce duplicate ids.
func Reassign(ids ident.Generator, nodes []*Node) []*Node {
	ids = ident.OrDefault(ids)
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if c := reassign(ids, n); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func reassign(ids ident.Generator, n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == KindFolder {
		folder := NewFolder(ids.NewID(), n.Name)
		for _, child := range n.Children {
			if c := reassign(ids, child); c != nil {
				folder.Children = append(folder.Children, c)
			}
		}
		return folder
	}
	return NewFile(ids.NewID(), n.Name, n.Content)
}
