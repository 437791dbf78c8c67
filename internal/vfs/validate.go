package vfs

import "fmt"

// Validate checks the tree invariants: the root is a folder, ids are unique,
// and every node's shape matches its kind. Pointer-level sharing (a node
// listed under two parents) shows up as a duplicate id.
func Validate(root *Node) error {
	if !root.IsFolder() {
		return &Error{Op: OpValidate, Err: fmt.Errorf("%w: root must be a folder", ErrMalformedNode)}
	}
	seen := make(map[string]struct{})
	var firstErr error
	Walk(root, func(n *Node) bool {
		if n.ID == "" {
			firstErr = &Error{Op: OpValidate, Err: fmt.Errorf("%w: empty id (name %q)", ErrMalformedNode, n.Name)}
			return false
		}
		if _, dup := seen[n.ID]; dup {
			firstErr = &Error{Op: OpValidate, ID: n.ID, Err: ErrDuplicateID}
			return false
		}
		seen[n.ID] = struct{}{}
		switch n.Kind {
		case KindFile:
			if n.Children != nil {
				firstErr = &Error{Op: OpValidate, ID: n.ID, Err: fmt.Errorf("%w: file has children", ErrMalformedNode)}
				return false
			}
		case KindFolder:
			if n.Children == nil {
				firstErr = &Error{Op: OpValidate, ID: n.ID, Err: fmt.Errorf("%w: folder without children list", ErrMalformedNode)}
				return false
			}
			if n.Content != "" {
				firstErr = &Error{Op: OpValidate, ID: n.ID, Err: fmt.Errorf("%w: folder has content", ErrMalformedNode)}
				return false
			}
		default:
			firstErr = &Error{Op: OpValidate, ID: n.ID, Err: fmt.Errorf("%w: unknown kind %q", ErrMalformedNode, n.Kind)}
			return false
		}
		return true
	})
	return firstErr
}
