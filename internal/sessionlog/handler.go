// Package sessionlog forwards warning and error log records to the connected
// editor client while still writing them to the normal log output.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

// Entry is the client-facing form of one log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Source  string         `json:"source,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// EntryCallback receives every record at or above the tee threshold.
type EntryCallback func(Entry)

// TeeHandler passes every record to base and also hands records at or above
// minLevel to a callback. Attributes added with WithAttrs are included in the
// entry; group names become Source joined with ".".
type TeeHandler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Level
	group    string
	attrs    []slog.Attr
}

// NewTeeHandler wraps base. A nil callback makes it a plain pass-through.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryCallback) *TeeHandler {
	return &TeeHandler{base: base, callback: callback, minLevel: minLevel}
}

// Enabled defers to base; minLevel only gates the callback.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if h.callback == nil || record.Level < h.minLevel {
		return err
	}
	entry := Entry{
		Time:    record.Time,
		Level:   record.Level.String(),
		Message: record.Message,
		Source:  h.group,
	}
	if n := len(h.attrs) + record.NumAttrs(); n > 0 {
		entry.Attrs = make(map[string]any, n)
		for _, a := range h.attrs {
			entry.Attrs[a.Key] = attrValue(a.Value)
		}
		record.Attrs(func(a slog.Attr) bool {
			entry.Attrs[a.Key] = attrValue(a.Value)
			return true
		})
	}
	h.deliver(entry)
	return err
}

// attrValue keeps errors readable once the entry is JSON encoded.
func attrValue(v slog.Value) any {
	v = v.Resolve()
	if err, ok := v.Any().(error); ok && err != nil {
		return err.Error()
	}
	return v.Any()
}

// deliver isolates callback panics. They go to stderr, not slog, so a broken
// callback cannot recurse through this handler.
func (h *TeeHandler) deliver(entry Entry) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[sessionlog] callback panicked: %v\n%s\n", r, debug.Stack())
		}
	}()
	h.callback(entry)
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.base = h.base.WithAttrs(attrs)
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.base = h.base.WithGroup(name)
	next.group = name
	if h.group != "" {
		next.group = h.group + "." + name
	}
	return &next
}
