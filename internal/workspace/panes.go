package workspace

import (
	"log/slog"

	"codeworkspace/internal/metrics"
)

// Split changes the layout. SplitNone keeps only the first pane, dropping the
// other pane's tabs unsaved. Splitting a single pane adds an empty second
// pane; with two panes only the direction changes.
func (s *Session) Split(direction SplitDirection) error {
	if _, err := ParseSplitDirection(string(direction)); err != nil {
		return err
	}
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.splitLocked(ev, direction)
	return nil
}

func (s *Session) splitLocked(ev *outbox, direction SplitDirection) {
	switch {
	case direction == SplitNone:
		s.panes = []*Pane{s.panes[0]}
		s.activePane = s.panes[0].ID
	case len(s.panes) == 1:
		s.panes = append(s.panes, s.newPaneLocked())
	}
	s.split = direction
	metrics.SetOpenTabs(s.openTabCountLocked())
	slog.Debug("[DEBUG-SESSION] split changed", "direction", direction, "panes", len(s.panes))
	ev.add(EventPanesChanged, s.panesStateLocked())
}

// ToggleSplit switches between a vertical split and a single pane.
func (s *Session) ToggleSplit() {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.split == SplitVertical {
		s.splitLocked(ev, SplitNone)
		return
	}
	s.splitLocked(ev, SplitVertical)
}

// ClosePane removes paneID and its tabs when two panes exist, moving focus to
// the remaining pane if needed, and resets the layout to SplitNone. With one
// pane, or an unknown id, it does nothing.
func (s *Session) ClosePane(paneID string) {
	ev := &outbox{}
	defer ev.flush(s.emitter)
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.panes) == 1 || s.paneLocked(paneID) == nil {
		return
	}
	kept := make([]*Pane, 0, len(s.panes)-1)
	for _, p := range s.panes {
		if p.ID != paneID {
			kept = append(kept, p)
		}
	}
	s.panes = kept
	if s.activePane == paneID {
		s.activePane = kept[0].ID
	}
	s.split = SplitNone
	metrics.SetOpenTabs(s.openTabCountLocked())
	slog.Debug("[DEBUG-SESSION] pane closed", "pane", paneID)
	ev.add(EventPanesChanged, s.panesStateLocked())
}
