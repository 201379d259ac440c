package log

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// RingCapacity is how many recent records the debug endpoint can show.
const RingCapacity = 100

// Entry is one captured log record.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Attrs   string    `json:"attrs,omitempty"`
}

type ringState struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// RingHandler is a slog.Handler that keeps the last RingCapacity
// records in memory. It is meant to be paired with a real output
// handler via Tee. Derived handlers from WithAttrs share the same ring.
type RingHandler struct {
	state *ringState
	attrs []slog.Attr
}

func NewRingHandler() *RingHandler {
	return &RingHandler{state: &ringState{entries: make([]Entry, RingCapacity)}}
}

func (h *RingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *RingHandler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{Time: r.Time, Level: r.Level.String(), Message: r.Message}
	var parts []string
	for _, a := range h.attrs {
		parts = append(parts, a.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.String())
		return true
	})
	e.Attrs = strings.Join(parts, " ")

	s := h.state
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.next] = e
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &RingHandler{state: h.state, attrs: merged}
}

func (h *RingHandler) WithGroup(string) slog.Handler { return h }

// Recent returns the captured records, oldest first.
func (h *RingHandler) Recent() []Entry {
	s := h.state
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	if s.full {
		out = append(out, s.entries[s.next:]...)
	}
	out = append(out, s.entries[:s.next]...)
	return out
}

// Tee fans every record out to all handlers.
type Tee struct {
	handlers []slog.Handler
}

func NewTee(handlers ...slog.Handler) *Tee { return &Tee{handlers: handlers} }

func (t *Tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *Tee) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &Tee{handlers: hs}
}

func (t *Tee) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &Tee{handlers: hs}
}
