// Package workspace implements the editor session: open tabs with their
// unsaved working copies, up to two split panes, and the save path back into
// the project tree and the project store.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"codeworkspace/internal/ident"
	"codeworkspace/internal/project"
	"codeworkspace/internal/search"
	"codeworkspace/internal/vfs"
)

// Event names emitted after state changes.
const (
	EventPanesChanged   = "workspace:panes-changed"
	EventProjectChanged = "workspace:project-changed"
	EventSearchResults  = "workspace:search-results"
	EventUIChanged      = "workspace:ui-changed"
)

var (
	// ErrNoProject is returned by tree edits while no project is open.
	ErrNoProject = errors.New("no project open")
	// ErrEmptyName is returned when a create or rename name is blank.
	ErrEmptyName = errors.New("name must not be empty")
	// ErrInvalidDirection is returned for an unknown split direction.
	ErrInvalidDirection = errors.New("invalid split direction")
	// ErrInvalidPanel is returned for an unknown sidebar panel.
	ErrInvalidPanel = errors.New("invalid sidebar panel")
)

// EventEmitter receives session events (websocket hub, logger, tests).
type EventEmitter interface {
	Emit(name string, payload any)
}

// EventEmitterFunc adapts a function into EventEmitter.
type EventEmitterFunc func(name string, payload any)

func (f EventEmitterFunc) Emit(name string, payload any) {
	f(name, payload)
}

type noopEmitter struct{}

func (noopEmitter) Emit(string, any) {}

// ProjectStore persists the open project. Put refreshes p.LastModified.
type ProjectStore interface {
	Put(ctx context.Context, p *project.Project) error
}

// SplitDirection is the pane layout.
type SplitDirection string

const (
	SplitNone       SplitDirection = "none"
	SplitVertical   SplitDirection = "vertical"
	SplitHorizontal SplitDirection = "horizontal"
)

// ParseSplitDirection validates s.
func ParseSplitDirection(s string) (SplitDirection, error) {
	switch d := SplitDirection(s); d {
	case SplitNone, SplitVertical, SplitHorizontal:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Tab is an open working copy of one file. FilePath and Language are fixed
// when the tab opens.
type Tab struct {
	ID       string `json:"id"`
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
	Dirty    bool   `json:"isDirty"`
	Language string `json:"language"`
}

// Pane is an ordered set of tabs. ActiveTabID is "" when the pane is empty.
type Pane struct {
	ID          string `json:"id"`
	ActiveTabID string `json:"activeTabId"`
	Tabs        []Tab  `json:"tabs"`
}

func (p *Pane) tabIndex(tabID string) int {
	for i := range p.Tabs {
		if p.Tabs[i].ID == tabID {
			return i
		}
	}
	return -1
}

func (p *Pane) tabForFile(fileID string) *Tab {
	for i := range p.Tabs {
		if p.Tabs[i].FileID == fileID {
			return &p.Tabs[i]
		}
	}
	return nil
}

func clonePane(p *Pane) Pane {
	out := *p
	out.Tabs = append([]Tab{}, p.Tabs...)
	return out
}

// Options configures a Session. Zero values use defaults.
type Options struct {
	// IDs generates tab and node ids.
	IDs     ident.Generator
	Store   ProjectStore
	Emitter EventEmitter
	Tree    vfs.Options
}

// Session is one editor session over at most one open project.
// All methods are safe for concurrent use; transitions are serialized.
type Session struct {
	mu sync.Mutex

	ids     ident.Generator
	tree    *vfs.Tree
	store   ProjectStore
	emitter EventEmitter

	project    *project.Project
	panes      []*Pane
	activePane string
	split      SplitDirection
	paneSeq    int
	ui         UIState

	handlers map[string]func(context.Context, CommandArgs) error
}

// NewSession returns a session with one empty pane and no project.
func NewSession(opts Options) *Session {
	ids := ident.OrDefault(opts.IDs)
	emitter := opts.Emitter
	if emitter == nil {
		emitter = noopEmitter{}
	}
	s := &Session{
		ids:     ids,
		tree:    vfs.New(ids, opts.Tree),
		store:   opts.Store,
		emitter: emitter,
		split:   SplitNone,
		ui:      defaultUIState(),
	}
	s.resetPanesLocked()
	s.handlers = s.commandHandlers()
	return s
}

func (s *Session) newPaneLocked() *Pane {
	s.paneSeq++
	return &Pane{ID: fmt.Sprintf("pane-%d", s.paneSeq), Tabs: []Tab{}}
}

// resetPanesLocked drops every pane, so numbering restarts at pane-1.
func (s *Session) resetPanesLocked() {
	s.paneSeq = 0
	first := s.newPaneLocked()
	s.panes = []*Pane{first}
	s.activePane = first.ID
	s.split = SplitNone
}

func (s *Session) paneLocked(paneID string) *Pane {
	for _, p := range s.panes {
		if p.ID == paneID {
			return p
		}
	}
	return nil
}

// resolvePaneLocked maps "" to the active pane.
func (s *Session) resolvePaneLocked(paneID string) *Pane {
	if paneID == "" {
		paneID = s.activePane
	}
	return s.paneLocked(paneID)
}

func (s *Session) tabLocked(paneID, tabID string) *Tab {
	pane := s.resolvePaneLocked(paneID)
	if pane == nil {
		return nil
	}
	if i := pane.tabIndex(tabID); i >= 0 {
		return &pane.Tabs[i]
	}
	return nil
}

func (s *Session) openTabCountLocked() int {
	n := 0
	for _, p := range s.panes {
		n += len(p.Tabs)
	}
	return n
}

// outbox collects events during a transition; flush runs after the session
// lock is released so emitters may call back into the session.
type outbox struct {
	names    []string
	payloads map[string]any
}

func (o *outbox) add(name string, payload any) {
	if o.payloads == nil {
		o.payloads = map[string]any{}
	}
	if _, seen := o.payloads[name]; !seen {
		o.names = append(o.names, name)
	}
	o.payloads[name] = payload
}

func (o *outbox) flush(emitter EventEmitter) {
	for _, name := range o.names {
		emitter.Emit(name, o.payloads[name])
	}
}

// PanesState is the payload of EventPanesChanged.
type PanesState struct {
	ActivePane string         `json:"activePane"`
	Split      SplitDirection `json:"splitDirection"`
	Panes      []Pane         `json:"panes"`
}

func (s *Session) panesStateLocked() PanesState {
	panes := make([]Pane, 0, len(s.panes))
	for _, p := range s.panes {
		panes = append(panes, clonePane(p))
	}
	return PanesState{ActivePane: s.activePane, Split: s.split, Panes: panes}
}

// SearchState is the payload of EventSearchResults.
type SearchState struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

// Snapshot is a deep copy of the whole session state.
type Snapshot struct {
	Project *project.Project `json:"project"`
	PanesState
	UI UIState `json:"ui"`
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Project:    project.Clone(s.project),
		PanesState: s.panesStateLocked(),
		UI:         s.ui.clone(),
	}
}
