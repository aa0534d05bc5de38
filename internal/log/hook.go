package log

import (
	"context"
	"log/slog"
)

// hookHandler forwards records to fn after the wrapped handler.
type hookHandler struct {
	slog.Handler
	fn func(r slog.Record)
}

func (h *hookHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.Handler.Handle(ctx, r)
	h.fn(r.Clone())
	return err
}

func (h *hookHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &hookHandler{Handler: h.Handler.WithAttrs(attrs), fn: h.withAttrs(attrs)}
}

func (h *hookHandler) WithGroup(name string) slog.Handler {
	return &hookHandler{Handler: h.Handler.WithGroup(name), fn: h.fn}
}

// withAttrs keeps logger-level attributes (such as component) visible to fn.
func (h *hookHandler) withAttrs(attrs []slog.Attr) func(slog.Record) {
	fn := h.fn
	return func(r slog.Record) {
		r.AddAttrs(attrs...)
		fn(r)
	}
}
