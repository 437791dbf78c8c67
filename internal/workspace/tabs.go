package workspace

import (
	"context"
	"log/slog"

	"codeworkspace/internal/metrics"
	"codeworkspace/internal/vfs"
)

// OpenFile opens fileID in paneID ("" for the active pane) and returns the
// tab. An already open tab for the file is focused as-is, dirty content
// included. It reports false when there is no project, the pane is unknown,
// or fileID is not a file.
func (s *Session) OpenFile(fileID, paneID string) (Tab, bool) {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.project == nil {
		return Tab{}, false
	}
	pane := s.resolvePaneLocked(paneID)
	if pane == nil {
		return Tab{}, false
	}
	node := vfs.FindByID(s.project.Root, fileID)
	if !node.IsFile() {
		return Tab{}, false
	}
	if existing := pane.tabForFile(fileID); existing != nil {
		pane.ActiveTabID = existing.ID
		ev.add(EventPanesChanged, s.panesStateLocked())
		return *existing, true
	}
	tab := Tab{
		ID:       s.ids.NewID(),
		FileID:   node.ID,
		FileName: node.Name,
		FilePath: vfs.PathOf(s.project.Root, node.ID),
		Content:  node.Content,
		Language: LanguageFor(node.Name),
	}
	pane.Tabs = append(pane.Tabs, tab)
	pane.ActiveTabID = tab.ID
	metrics.SetOpenTabs(s.openTabCountLocked())
	slog.Debug("[DEBUG-SESSION] tab opened", "pane", pane.ID, "file", node.ID, "tab", tab.ID)
	ev.add(EventPanesChanged, s.panesStateLocked())
	return tab, true
}

// EditTab replaces a tab's working copy and marks it dirty. The tree is not
// touched. Unknown tabs are ignored.
func (s *Session) EditTab(tabID, content, paneID string) {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()

	tab := s.tabLocked(paneID, tabID)
	if tab == nil {
		return
	}
	tab.Content = content
	tab.Dirty = true
	ev.add(EventPanesChanged, s.panesStateLocked())
}

// SaveTab writes the tab's content into the tree, persists the project and
// clears dirty. Unknown tabs (or no project) are ignored. When persisting
// fails the tree keeps the new content, the tab stays dirty and the error is
// returned.
func (s *Session) SaveTab(ctx context.Context, tabID, paneID string) error {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTabLocked(ctx, ev, tabID, paneID)
}

func (s *Session) saveTabLocked(ctx context.Context, ev *outbox, tabID, paneID string) error {
	if s.project == nil {
		return nil
	}
	tab := s.tabLocked(paneID, tabID)
	if tab == nil {
		return nil
	}
	vfs.SetFileContent(s.project.Root, tab.FileID, tab.Content)
	err := s.persistLocked(ctx)
	metrics.RecordTabSave(err == nil)
	ev.add(EventProjectChanged, s.projectPayloadLocked())
	if err != nil {
		slog.Warn("[WARN-SESSION] save failed, tab left dirty", "tab", tabID, "error", err)
		return err
	}
	tab.Dirty = false
	ev.add(EventPanesChanged, s.panesStateLocked())
	return nil
}

// SaveAll saves every dirty tab, pane order then tab order. It stops at the
// first failure.
func (s *Session) SaveAll(ctx context.Context) error {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()

	type target struct{ pane, tab string }
	var dirty []target
	for _, p := range s.panes {
		for _, t := range p.Tabs {
			if t.Dirty {
				dirty = append(dirty, target{pane: p.ID, tab: t.ID})
			}
		}
	}
	for _, d := range dirty {
		if err := s.saveTabLocked(ctx, ev, d.tab, d.pane); err != nil {
			return err
		}
	}
	slog.Debug("[DEBUG-SESSION] save all", "saved", len(dirty))
	return nil
}

// CloseTab removes a tab without saving. Closing the active tab focuses the
// tab that slides into its position, or the new last tab.
func (s *Session) CloseTab(tabID, paneID string) {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()

	pane := s.resolvePaneLocked(paneID)
	if pane == nil {
		return
	}
	index := pane.tabIndex(tabID)
	if index < 0 {
		return
	}
	remaining := make([]Tab, 0, len(pane.Tabs)-1)
	remaining = append(remaining, pane.Tabs[:index]...)
	remaining = append(remaining, pane.Tabs[index+1:]...)
	pane.Tabs = remaining
	if pane.ActiveTabID == tabID {
		pane.ActiveTabID = ""
		if len(remaining) > 0 {
			pane.ActiveTabID = remaining[min(index, len(remaining)-1)].ID
		}
	}
	metrics.SetOpenTabs(s.openTabCountLocked())
	ev.add(EventPanesChanged, s.panesStateLocked())
}

// SetActiveTab focuses tabID and makes its pane the active pane.
func (s *Session) SetActiveTab(tabID, paneID string) {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()

	pane := s.resolvePaneLocked(paneID)
	if pane == nil || pane.tabIndex(tabID) < 0 {
		return
	}
	pane.ActiveTabID = tabID
	s.activePane = pane.ID
	ev.add(EventPanesChanged, s.panesStateLocked())
}

// SetActivePane focuses paneID. Unknown panes are ignored.
func (s *Session) SetActivePane(paneID string) {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paneLocked(paneID) == nil || s.activePane == paneID {
		return
	}
	s.activePane = paneID
	ev.add(EventPanesChanged, s.panesStateLocked())
}

// ActiveTab returns the active tab of paneID ("" for the active pane).
func (s *Session) ActiveTab(paneID string) (Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pane := s.resolvePaneLocked(paneID)
	if pane == nil || pane.ActiveTabID == "" {
		return Tab{}, false
	}
	if i := pane.tabIndex(pane.ActiveTabID); i >= 0 {
		return pane.Tabs[i], true
	}
	return Tab{}, false
}

// ActivePane returns the id of the focused pane.
func (s *Session) ActivePane() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePane
}
