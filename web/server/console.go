package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "warning", "error"
}

// ConsoleHandler is a slog.Handler that forwards a render's Info and
// higher records to a console channel, and every record to the server's
// own handler. Sends never block: messages are dropped when the channel is full.
type ConsoleHandler struct {
	consoleChan chan<- ConsoleMessage
	next        slog.Handler
	attrs       []slog.Attr
}

// NewConsoleHandler creates a handler for one render. next may be nil.
func NewConsoleHandler(renderID string, consoleChan chan<- ConsoleMessage, next slog.Handler) *ConsoleHandler {
	h := &ConsoleHandler{consoleChan: consoleChan, next: next}
	if next != nil {
		h.next = next.WithAttrs([]slog.Attr{slog.String("render", renderID)})
	}
	return h
}

func (h *ConsoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo || (h.next != nil && h.next.Enabled(ctx, level))
}

func (h *ConsoleHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		if err := h.next.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	if r.Level < slog.LevelInfo || h.consoleChan == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString(r.Message)
	appendAttr := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(appendAttr)

	select {
	case h.consoleChan <- ConsoleMessage{Message: b.String(), Timestamp: r.Time, Level: consoleLevel(r.Level)}:
	default:
		// Channel full, skip (don't block)
	}
	return nil
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

// WithGroup only groups the server's records; console lines stay flat
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	c := *h
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}

func consoleLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warning"
	default:
		return "info"
	}
}
