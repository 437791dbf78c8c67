package vfs

import (
	"errors"
	"fmt"
)

var (
	// ErrParentNotFound is returned by create operations when the parent id is
	// missing or names a file.
	ErrParentNotFound = errors.New("parent folder not found")

	// ErrDuplicateName is returned when duplicate sibling names are disabled and
	// a create or rename would collide.
	ErrDuplicateName = errors.New("name already exists in folder")

	// ErrDuplicateID indicates a tree holding the same id twice.
	ErrDuplicateID = errors.New("duplicate node id")

	// ErrMalformedNode indicates kind/content/children disagreeing.
	ErrMalformedNode = errors.New("malformed node")
)

// Error carries the failed operation and the node id it concerned.
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("vfs %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("vfs %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	OpCreateFile   = "create-file"
	OpCreateFolder = "create-folder"
	OpRename       = "rename"
	OpValidate     = "validate"
)
