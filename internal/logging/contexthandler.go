package logging

import (
	"context"
	"log/slog"
)

// ContextProvider is a function that returns dynamic context attributes,
// typically the active session id and the current tick.
type ContextProvider func() []slog.Attr

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

// SessionContext builds a provider reporting session and tick when a session
// is active. active, session and tick are read on every record.
func SessionContext(active func() bool, session func() uint, tick func() uint) ContextProvider {
	return func() []slog.Attr {
		if !active() {
			return nil
		}
		return []slog.Attr{
			slog.Uint64("session", uint64(session())),
			slog.Uint64("tick", uint64(tick())),
		}
	}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds dynamic context attributes and delegates to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}
