// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a custom slog handler that integrates with the Event Log system.
// It forwards logs at WARN level and above to the database-backed Event Log for auditing.
package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/olegiv/oblog/internal/model"
)

// EventWriter persists event log entries. *store.Queries satisfies it.
type EventWriter interface {
	CreateEvent(ctx context.Context, e model.Event) (int64, error)
}

// DefaultQueueSize bounds the number of events waiting to be written.
const DefaultQueueSize = 256

const writeTimeout = 5 * time.Second

// sink owns the background writer shared by every derived handler.
type sink struct {
	w       EventWriter
	queue   chan model.Event
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func (s *sink) run() {
	defer close(s.done)
	for e := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		_, _ = s.w.CreateEvent(ctx, e)
		cancel()
	}
}

func (s *sink) enqueue(e model.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- e:
	default:
		// Never block the logging caller on a slow database.
		s.dropped.Add(1)
	}
}

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// WARN and ERROR level logs to the Event Log database.
type EventLogHandler struct {
	inner  slog.Handler
	sink   *sink
	level  slog.Level // Minimum level to forward to Event Log (default: WARN)
	attrs  []slog.Attr
	groups []string
}

// NewEventLogHandler creates a new EventLogHandler that wraps the given handler.
// Logs at WARN level and above will be written to both the wrapped handler and the Event Log.
func NewEventLogHandler(inner slog.Handler, w EventWriter) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, w, slog.LevelWarn, DefaultQueueSize)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level
// and queue size.
func NewEventLogHandlerWithLevel(inner slog.Handler, w EventWriter, level slog.Level, queueSize int) *EventLogHandler {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	s := &sink{
		w:     w,
		queue: make(chan model.Event, queueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return &EventLogHandler{inner: inner, sink: s, level: level}
}

// Close stops accepting events and waits until queued ones are written.
func (h *EventLogHandler) Close() {
	h.sink.once.Do(func() {
		h.sink.mu.Lock()
		h.sink.closed = true
		close(h.sink.queue)
		h.sink.mu.Unlock()
	})
	<-h.sink.done
}

// Dropped reports how many events were discarded because the queue was full.
func (h *EventLogHandler) Dropped() int64 {
	return h.sink.dropped.Load()
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level {
		h.sink.enqueue(h.event(r))
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.inner = h.inner.WithAttrs(attrs)
	for _, a := range attrs {
		c.attrs = append(c.attrs, h.qualify(a))
	}
	return c
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	c := h.clone()
	c.inner = h.inner.WithGroup(name)
	if name != "" {
		c.groups = append(c.groups, name)
	}
	return c
}

func (h *EventLogHandler) clone() *EventLogHandler {
	return &EventLogHandler{
		inner:  h.inner,
		sink:   h.sink,
		level:  h.level,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func (h *EventLogHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	return slog.Attr{Key: strings.Join(h.groups, ".") + "." + a.Key, Value: a.Value}
}

func (h *EventLogHandler) event(r slog.Record) model.Event {
	all := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	all = append(all, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, h.qualify(a))
		return true
	})

	created := r.Time
	if created.IsZero() {
		created = time.Now()
	}
	return model.Event{
		Level:     slogLevelToEventLevel(r.Level),
		Category:  extractCategory(r.Message, all),
		Message:   r.Message,
		Metadata:  extractMetadata(all),
		CreatedAt: created.UTC(),
	}
}

func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// extractCategory prefers an explicit "category" attribute and otherwise
// infers one from the message.
func extractCategory(msg string, attrs []slog.Attr) string {
	for _, a := range attrs {
		if a.Key == "category" {
			return a.Value.String()
		}
	}

	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") || strings.Contains(msg, "logout"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "post") || strings.Contains(msg, "tag") ||
		strings.Contains(msg, "comment") || strings.Contains(msg, "reload"):
		return model.EventCategoryContent
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}

// extractMetadata collects attributes other than category into a JSON object.
func extractMetadata(attrs []slog.Attr) string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Key == "category" {
			continue
		}
		m[a.Key] = a.Value.Resolve().String()
	}
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
