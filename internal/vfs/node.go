// Package vfs implements the in-memory file/folder tree owned by a project.
//
// All lookups walk the tree depth-first in pre-order (node, then children
// left to right). Identifiers are unique within a tree, so the traversal
// order only matters for determinism.
package vfs

import (
	"encoding/json"
	"fmt"
)

// Kind is the node category. It never changes after creation.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Node is one file or folder entry.
//
// Content is meaningful only for files; Children only for folders (non-nil,
// possibly empty). Use NewFile/NewFolder or the Tree create operations so the
// shape stays consistent.
type Node struct {
	ID       string
	Name     string
	Kind     Kind
	Content  string
	Children []*Node
}

// NewFile builds a detached file node.
func NewFile(id, name, content string) *Node {
	return &Node{ID: id, Name: name, Kind: KindFile, Content: content}
}

// NewFolder builds a detached folder node with the given children.
func NewFolder(id, name string, children ...*Node) *Node {
	if children == nil {
		children = []*Node{}
	}
	return &Node{ID: id, Name: name, Kind: KindFolder, Children: children}
}

// IsFile reports whether n is a file. A nil node is neither kind.
func (n *Node) IsFile() bool {
	return n != nil && n.Kind == KindFile
}

// IsFolder reports whether n is a folder.
func (n *Node) IsFolder() bool {
	return n != nil && n.Kind == KindFolder
}

// fileWire and folderWire keep "content iff file, children iff folder" on the wire.
type fileWire struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    Kind   `json:"type"`
	Content string `json:"content"`
}

type folderWire struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     Kind    `json:"type"`
	Children []*Node `json:"children"`
}

type anyWire struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     Kind    `json:"type"`
	Content  *string `json:"content,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// MarshalJSON writes content for files and children (never null) for folders.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindFile:
		return json.Marshal(fileWire{ID: n.ID, Name: n.Name, Type: n.Kind, Content: n.Content})
	case KindFolder:
		children := n.Children
		if children == nil {
			children = []*Node{}
		}
		return json.Marshal(folderWire{ID: n.ID, Name: n.Name, Type: n.Kind, Children: children})
	default:
		return nil, fmt.Errorf("marshal node %q: unknown kind %q", n.ID, n.Kind)
	}
}

// UnmarshalJSON reads the wire form and rejects unknown node types.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w anyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Node{ID: w.ID, Name: w.Name, Kind: w.Type}
	switch w.Type {
	case KindFile:
		if w.Content != nil {
			out.Content = *w.Content
		}
	case KindFolder:
		out.Children = w.Children
		if out.Children == nil {
			out.Children = []*Node{}
		}
	default:
		return fmt.Errorf("unmarshal node %q: unknown type %q", w.ID, w.Type)
	}
	*n = out
	return nil
}

// Clone returns a deep copy of n.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := &Node{ID: n.ID, Name: n.Name, Kind: n.Kind, Content: n.Content}
	if n.Kind == KindFolder {
		out.Children = make([]*Node, 0, len(n.Children))
		for _, child := range n.Children {
			out.Children = append(out.Children, Clone(child))
		}
	}
	return out
}

// CloneAll deep-copies a node sequence.
func CloneAll(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Clone(n))
	}
	return out
}
