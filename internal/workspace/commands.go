package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnknownCommand is returned by Dispatch for an unregistered name.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one UI action, typically a keyboard shortcut or a websocket frame.
type Command struct {
	Name string      `json:"name"`
	Args CommandArgs `json:"args"`
}

// CommandArgs carries the optional arguments of every command. Empty PaneID
// means the active pane; empty TabID means that pane's active tab.
type CommandArgs struct {
	PaneID    string `json:"paneId,omitempty"`
	TabID     string `json:"tabId,omitempty"`
	FileID    string `json:"fileId,omitempty"`
	NodeID    string `json:"nodeId,omitempty"`
	ParentID  string `json:"parentId,omitempty"`
	NodeName  string `json:"nodeName,omitempty"`
	Content   string `json:"content,omitempty"`
	Direction string `json:"direction,omitempty"`
	Panel     string `json:"panel,omitempty"`
	Query     string `json:"query,omitempty"`
	Visible   *bool  `json:"visible,omitempty"`
	Line      int    `json:"line,omitempty"`
	Column    int    `json:"column,omitempty"`
}

// Command names accepted by Dispatch.
const (
	CmdSave          = "save"
	CmdSaveAll       = "save-all"
	CmdCloseTab      = "close-tab"
	CmdQuickOpen     = "quick-open"
	CmdToggleSidebar = "toggle-sidebar"
	CmdSidebarPanel  = "sidebar-panel"
	CmdOpenFile      = "open-file"
	CmdEdit          = "edit"
	CmdSplit         = "split"
	CmdToggleSplit   = "toggle-split"
	CmdClosePane     = "close-pane"
	CmdFocusPane     = "focus-pane"
	CmdFocusTab      = "focus-tab"
	CmdSearch        = "search"
	CmdToggleTheme   = "toggle-theme"
	CmdCursor        = "cursor"
	CmdCreateFile    = "create-file"
	CmdCreateFolder  = "create-folder"
	CmdRename        = "rename"
	CmdDelete        = "delete"
)

func (s *Session) commandHandlers() map[string]func(context.Context, CommandArgs) error {
	return map[string]func(context.Context, CommandArgs) error{
		CmdSave: func(ctx context.Context, a CommandArgs) error {
			tabID, paneID, ok := s.targetTab(a)
			if !ok {
				return nil
			}
			return s.SaveTab(ctx, tabID, paneID)
		},
		CmdSaveAll: func(ctx context.Context, _ CommandArgs) error {
			return s.SaveAll(ctx)
		},
		CmdCloseTab: func(_ context.Context, a CommandArgs) error {
			if tabID, paneID, ok := s.targetTab(a); ok {
				s.CloseTab(tabID, paneID)
			}
			return nil
		},
		CmdQuickOpen: func(_ context.Context, a CommandArgs) error {
			visible := true
			if a.Visible != nil {
				visible = *a.Visible
			}
			s.SetQuickOpenVisible(visible)
			return nil
		},
		CmdToggleSidebar: func(context.Context, CommandArgs) error {
			s.ToggleSidebar()
			return nil
		},
		CmdSidebarPanel: func(_ context.Context, a CommandArgs) error {
			return s.SetSidebarPanel(SidebarPanel(a.Panel))
		},
		CmdOpenFile: func(_ context.Context, a CommandArgs) error {
			s.OpenFile(a.FileID, a.PaneID)
			return nil
		},
		CmdEdit: func(_ context.Context, a CommandArgs) error {
			if tabID, paneID, ok := s.targetTab(a); ok {
				s.EditTab(tabID, a.Content, paneID)
			}
			return nil
		},
		CmdSplit: func(_ context.Context, a CommandArgs) error {
			direction, err := ParseSplitDirection(a.Direction)
			if err != nil {
				return err
			}
			return s.Split(direction)
		},
		CmdToggleSplit: func(context.Context, CommandArgs) error {
			s.ToggleSplit()
			return nil
		},
		CmdClosePane: func(_ context.Context, a CommandArgs) error {
			s.ClosePane(s.targetPane(a))
			return nil
		},
		CmdFocusPane: func(_ context.Context, a CommandArgs) error {
			s.SetActivePane(a.PaneID)
			return nil
		},
		CmdFocusTab: func(_ context.Context, a CommandArgs) error {
			s.SetActiveTab(a.TabID, a.PaneID)
			return nil
		},
		CmdSearch: func(_ context.Context, a CommandArgs) error {
			s.Search(a.Query)
			return nil
		},
		CmdToggleTheme: func(context.Context, CommandArgs) error {
			s.ToggleTheme()
			return nil
		},
		CmdCursor: func(_ context.Context, a CommandArgs) error {
			s.SetCursor(CursorPosition{Line: a.Line, Column: a.Column})
			return nil
		},
		CmdCreateFile: func(ctx context.Context, a CommandArgs) error {
			_, err := s.CreateFile(ctx, a.ParentID, a.NodeName, a.Content)
			return err
		},
		CmdCreateFolder: func(ctx context.Context, a CommandArgs) error {
			_, err := s.CreateFolder(ctx, a.ParentID, a.NodeName)
			return err
		},
		CmdRename: func(ctx context.Context, a CommandArgs) error {
			return s.RenameNode(ctx, a.NodeID, a.NodeName)
		},
		CmdDelete: func(ctx context.Context, a CommandArgs) error {
			return s.DeleteNode(ctx, a.NodeID)
		},
	}
}

// Dispatch runs cmd. Commands whose target is missing (no active tab, stale
// ids) do nothing and return nil.
func (s *Session) Dispatch(ctx context.Context, cmd Command) error {
	handler, ok := s.handlers[cmd.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
	slog.Debug("[DEBUG-COMMAND] dispatch", "command", cmd.Name, "pane", cmd.Args.PaneID, "tab", cmd.Args.TabID)
	if err := handler(ctx, cmd.Args); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return nil
}

func (s *Session) targetPane(a CommandArgs) string {
	if a.PaneID != "" {
		return a.PaneID
	}
	return s.ActivePane()
}

// targetTab resolves the explicit tab or the target pane's active tab.
func (s *Session) targetTab(a CommandArgs) (tabID, paneID string, ok bool) {
	paneID = s.targetPane(a)
	if a.TabID != "" {
		return a.TabID, paneID, true
	}
	tab, found := s.ActiveTab(paneID)
	if !found {
		return "", "", false
	}
	return tab.ID, paneID, true
}
