package workspace

import (
	"fmt"
	"strings"

	"codeworkspace/internal/search"
	"codeworkspace/internal/vfs"
)

type SidebarPanel string

const (
	PanelExplorer SidebarPanel = "explorer"
	PanelSearch   SidebarPanel = "search"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// CursorPosition is 1-based.
type CursorPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// UIState holds the presentation flags the session tracks for its client.
type UIState struct {
	SidebarOpen      bool            `json:"sidebarOpen"`
	SidebarPanel     SidebarPanel    `json:"activeSidebarPanel"`
	Theme            Theme           `json:"theme"`
	Cursor           CursorPosition  `json:"cursorPosition"`
	QuickOpenVisible bool            `json:"quickOpenVisible"`
	SearchQuery      string          `json:"searchQuery"`
	SearchResults    []search.Result `json:"searchResults"`
}

func defaultUIState() UIState {
	return UIState{
		SidebarOpen:   true,
		SidebarPanel:  PanelExplorer,
		Theme:         ThemeDark,
		Cursor:        CursorPosition{Line: 1, Column: 1},
		SearchResults: []search.Result{},
	}
}

func (u UIState) clone() UIState {
	u.SearchResults = append([]search.Result{}, u.SearchResults...)
	return u
}

// UI returns a copy of the UI flags.
func (s *Session) UI() UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui.clone()
}

func (s *Session) updateUI(fn func(ui *UIState)) {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.ui)
	ev.add(EventUIChanged, s.ui.clone())
}

// ToggleSidebar shows or hides the sidebar.
func (s *Session) ToggleSidebar() {
	s.updateUI(func(ui *UIState) { ui.SidebarOpen = !ui.SidebarOpen })
}

// SetSidebarPanel switches the sidebar between the explorer and search panels.
func (s *Session) SetSidebarPanel(panel SidebarPanel) error {
	if panel != PanelExplorer && panel != PanelSearch {
		return fmt.Errorf("%w: %q", ErrInvalidPanel, panel)
	}
	s.updateUI(func(ui *UIState) { ui.SidebarPanel = panel })
	return nil
}

// ToggleTheme flips between the dark and light themes.
func (s *Session) ToggleTheme() {
	s.updateUI(func(ui *UIState) {
		if ui.Theme == ThemeDark {
			ui.Theme = ThemeLight
		} else {
			ui.Theme = ThemeDark
		}
	})
}

// SetCursor records the editor cursor for the status bar.
func (s *Session) SetCursor(pos CursorPosition) {
	s.updateUI(func(ui *UIState) { ui.Cursor = pos })
}

// SetQuickOpenVisible opens or closes the quick-open dialog.
func (s *Session) SetQuickOpenVisible(visible bool) {
	s.updateUI(func(ui *UIState) { ui.QuickOpenVisible = visible })
}

// QuickOpenItem is one quick-open candidate.
type QuickOpenItem struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	Path     string `json:"path"`
}

// QuickOpen lists the files whose name contains query, ignoring case, in
// DFS order. An empty query lists every file.
func (s *Session) QuickOpen(query string) []QuickOpenItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []QuickOpenItem{}
	if s.project == nil {
		return items
	}
	needle := strings.ToLower(query)
	for _, f := range vfs.ListFiles(s.project.Root) {
		if !strings.Contains(strings.ToLower(f.Name), needle) {
			continue
		}
		items = append(items, QuickOpenItem{
			FileID:   f.ID,
			FileName: f.Name,
			Path:     vfs.PathOf(s.project.Root, f.ID),
		})
	}
	return items
}

// Search scans the open project for query, records query and results in the
// UI state and returns the results.
func (s *Session) Search(query string) []search.Result {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()

	results := []search.Result{}
	if s.project != nil {
		results = search.Search(s.project.Root, query)
	}
	s.ui.SearchQuery = query
	s.ui.SearchResults = results
	out := append([]search.Result{}, results...)
	ev.add(EventSearchResults, SearchState{Query: query, Results: out})
	return append([]search.Result{}, results...)
}
