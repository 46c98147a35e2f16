package log

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/ErlanBelekov/warranty-register/internal/requestid"
)

// ContextHandler wraps an slog.Handler and copies request-scoped values
// (request_id, resolved principal) from the context onto each record.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if p, ok := domain.PrincipalFromContext(ctx); ok {
		r.AddAttrs(slog.String("principal", string(p.Kind)))
		if p.User != nil {
			r.AddAttrs(slog.String("user_id", p.User.ID))
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
