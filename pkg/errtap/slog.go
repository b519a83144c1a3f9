// slog.go lets log/slog records take the same classification path as console calls.

package errtap

import (
	"context"
	"log/slog"
)

// slogHandler decorates another handler; the inner handler always sees every record.
type slogHandler struct {
	next    slog.Handler
	monitor *Monitor
	attrs   []slog.Attr
	groups  []string
}

// NewSlogHandler returns a handler that passes every record to next and
// classifies it like a console call: records at slog.LevelError and above
// go through the error-level rules, lower levels through the log-level rules
// (client variant only, like the console's log entry point).
//
// Usage:
//
//	logger := slog.New(errtap.NewSlogHandler(slog.Default().Handler(), errtap.Default()))
func NewSlogHandler(next slog.Handler, m *Monitor) slog.Handler {
	return &slogHandler{next: next, monitor: m}
}

func (h *slogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *slogHandler) Handle(ctx context.Context, r slog.Record) error {
	safeObserve(h.observe, h.args(r))
	return h.next.Handle(ctx, r)
}

func (h *slogHandler) observe(args []any) {
	st := h.monitor.State()
	if !st.Active() {
		return
	}
	if level, _ := args[len(args)-1].(slog.Level); level >= slog.LevelError {
		h.monitor.observeError(args[:len(args)-1])
		return
	}
	if st.Environment() == VariantClient {
		h.monitor.observeLog(args[:len(args)-1])
	}
}

// args renders r as console arguments: the message, then the attributes as
// one map when there are any. The record level rides along as the last element.
func (h *slogHandler) args(r slog.Record) []any {
	fields := make(map[string]any)
	for _, a := range h.attrs {
		addAttr(fields, nil, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(fields, h.groups, a)
		return true
	})

	args := []any{r.Message}
	if len(fields) > 0 {
		args = append(args, fields)
	}
	return append(args, r.Level)
}

func addAttr(fields map[string]any, groups []string, a slog.Attr) {
	fields[qualify(groups, a.Key)] = a.Value.Resolve().Any()
}

func qualify(groups []string, key string) string {
	for i := len(groups) - 1; i >= 0; i-- {
		key = groups[i] + "." + key
	}
	return key
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		// qualified now; later groups do not apply to these
		a.Key = qualify(h.groups, a.Key)
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}
