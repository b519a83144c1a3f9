// sink.go defines the Sink interface for telemetry destinations.

package errtap

import (
	"context"
	"runtime/debug"
	"slices"
	"sync"
)

// Sink is the external telemetry backend the monitor forwards to.
// Implementations must be safe for concurrent use. Delivery, batching and
// retry are the sink's concern; capture methods never report failures.
type Sink interface {
	// Init configures the sink. Called at most once, before any capture.
	Init(cfg SinkConfig) error

	// CaptureMessage records a plain message at the given level.
	CaptureMessage(message string, level Severity)

	// CaptureException records a structured error.
	CaptureException(err error)

	// Flush ensures any buffered events are delivered.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	Close() error
}

// SinkConfig is what the monitor hands to Sink.Init.
type SinkConfig struct {
	Endpoint    string
	Release     string
	Environment Variant
	IgnoreRules []IgnoreRule
	Debug       bool

	// Client variant only.
	SampleRate float64
	BeforeSend PreSendFunc

	// Extensions are sink-specific plugins; sinks skip the ones they do not understand.
	Extensions []Extension
}

// Extension is an opaque sink plugin.
type Extension interface {
	Name() string
}

// ConsoleCapture asks the sink to additionally capture console output at Levels.
type ConsoleCapture struct {
	Levels []Severity
}

// Name implements Extension.
func (ConsoleCapture) Name() string { return "ConsoleCapture" }

// Captures reports whether level is one of the captured levels.
func (c ConsoleCapture) Captures(level Severity) bool {
	return slices.Contains(c.Levels, level)
}

// EventWriter persists built events. It is the shape of the simple sinks in
// the sinks/ directory; wrap one with NewEventSink to use it as a Sink.
type EventWriter interface {
	// Write persists an event.
	Write(ctx context.Context, event Event) error

	// Flush ensures any buffered events are persisted.
	Flush(ctx context.Context) error

	// Close releases resources held by the writer.
	Close() error
}

// EventSinkOption configures an event sink.
type EventSinkOption func(*eventSink)

// WithWriteErrorHandler sets a callback for writer failures (default: ignored).
func WithWriteErrorHandler(fn func(error)) EventSinkOption {
	return func(s *eventSink) {
		s.onError = fn
	}
}

// eventSink adapts an EventWriter into a Sink.
type eventSink struct {
	w       EventWriter
	onError func(error)

	mu  sync.RWMutex
	cfg SinkConfig
}

// NewEventSink builds events for w and applies the configured BeforeSend hook
// with a synthetic stack taken at capture time.
func NewEventSink(w EventWriter, opts ...EventSinkOption) Sink {
	s := &eventSink{w: w}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *eventSink) Init(cfg SinkConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

func (s *eventSink) CaptureMessage(message string, level Severity) {
	s.send(NewMessageEvent(message, level))
}

func (s *eventSink) CaptureException(err error) {
	s.send(NewExceptionEvent(err))
}

func (s *eventSink) send(event Event) {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	event.Environment = cfg.Environment
	event.Release = cfg.Release
	for _, ext := range cfg.Extensions {
		if cc, ok := ext.(ConsoleCapture); ok && event.Exception == nil && cc.Captures(event.Level) {
			event.Logger = "console"
		}
	}
	event.Fingerprint = Fingerprint(event)

	if cfg.BeforeSend != nil {
		hint := &Hint{Stack: event.Stack}
		if hint.Stack == "" {
			hint.Stack = string(debug.Stack())
		}
		ev := cfg.BeforeSend(&event, hint)
		if ev == nil {
			return
		}
		event = *ev
	}

	if err := s.w.Write(context.Background(), event); err != nil && s.onError != nil {
		s.onError(err)
	}
}

func (s *eventSink) Flush(ctx context.Context) error {
	return s.w.Flush(ctx)
}

func (s *eventSink) Close() error {
	return s.w.Close()
}

// noopSinkInternal discards everything; used when no sink is configured.
type noopSinkInternal struct{}

func (noopSinkInternal) Init(SinkConfig) error { return nil }
func (noopSinkInternal) CaptureMessage(string, Severity) {}
func (noopSinkInternal) CaptureException(error) {}
func (noopSinkInternal) Flush(ctx context.Context) error { return nil }
func (noopSinkInternal) Close() error { return nil }
