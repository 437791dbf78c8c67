package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"codeworkspace/internal/metrics"
	"codeworkspace/internal/project"
	"codeworkspace/internal/vfs"
)

// SetCurrentProject opens a deep copy of p; nil closes the project. Opening a
// different project than the current one also resets the panes, since their
// tabs point into the old tree.
func (s *Session) SetCurrentProject(p *project.Project) {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := ""
	if s.project != nil {
		previous = s.project.ID
	}
	s.project = project.Clone(p)
	if p == nil || p.ID != previous {
		s.resetPanesLocked()
		metrics.SetOpenTabs(0)
		ev.add(EventPanesChanged, s.panesStateLocked())
	}
	slog.Debug("[DEBUG-SESSION] current project set", "previous", previous, "project", s.projectIDLocked())
	ev.add(EventProjectChanged, s.projectPayloadLocked())
}

// Project returns a deep copy of the open project, or nil.
func (s *Session) Project() *project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return project.Clone(s.project)
}

func (s *Session) projectIDLocked() string {
	if s.project == nil {
		return ""
	}
	return s.project.ID
}

func (s *Session) projectPayloadLocked() *project.Project {
	return project.Clone(s.project)
}

func (s *Session) persistLocked(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Put(ctx, s.project); err != nil {
		return fmt.Errorf("persist project %s: %w", s.project.ID, err)
	}
	return nil
}

// UpdateProjectFiles replaces the open project's tree with a copy of root and
// persists it. Without an open project it does nothing. An invalid tree is
// rejected before anything changes; a persistence failure leaves the new tree
// in memory and is returned.
func (s *Session) UpdateProjectFiles(ctx context.Context, root *vfs.Node) error {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}
	if err := vfs.Validate(root); err != nil {
		return err
	}
	return s.replaceRootLocked(ctx, ev, vfs.Clone(root))
}

func (s *Session) replaceRootLocked(ctx context.Context, ev *outbox, root *vfs.Node) error {
	s.project.Root = root
	err := s.persistLocked(ctx)
	ev.add(EventProjectChanged, s.projectPayloadLocked())
	return err
}

// editTree runs edit on a copy of the owned tree and installs the copy
// only when edit succeeds.
func (s *Session) editTree(ctx context.Context, edit func(root *vfs.Node) error) error {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return ErrNoProject
	}
	root := vfs.Clone(s.project.Root)
	if err := edit(root); err != nil {
		return err
	}
	return s.replaceRootLocked(ctx, ev, root)
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

// CreateFile adds a file under parentID and persists the tree.
func (s *Session) CreateFile(ctx context.Context, parentID, name, content string) (*vfs.Node, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	var created *vfs.Node
	err = s.editTree(ctx, func(root *vfs.Node) error {
		n, err := s.tree.CreateFile(root, parentID, name, content)
		created = n
		return err
	})
	if created == nil {
		return nil, err
	}
	return vfs.Clone(created), err
}

// CreateFolder adds an empty folder under parentID and persists the tree.
func (s *Session) CreateFolder(ctx context.Context, parentID, name string) (*vfs.Node, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	var created *vfs.Node
	err = s.editTree(ctx, func(root *vfs.Node) error {
		n, err := s.tree.CreateFolder(root, parentID, name)
		created = n
		return err
	})
	if created == nil {
		return nil, err
	}
	return vfs.Clone(created), err
}

// RenameNode renames nodeID and persists the tree. Open tabs keep the name
// and path they were opened with.
func (s *Session) RenameNode(ctx context.Context, nodeID, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	return s.editTree(ctx, func(root *vfs.Node) error {
		return s.tree.Rename(root, nodeID, name)
	})
}

// DeleteNode removes nodeID with its subtree and persists the tree. Tabs of
// deleted files stay open; saving them later only persists the project.
func (s *Session) DeleteNode(ctx context.Context, nodeID string) error {
	return s.editTree(ctx, func(root *vfs.Node) error {
		vfs.Delete(root, nodeID)
		return nil
	})
}
