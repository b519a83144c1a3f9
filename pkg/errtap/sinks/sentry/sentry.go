// Package sentry provides the production sink, backed by the Sentry Go SDK.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sentrysdk "github.com/getsentry/sentry-go"
	"github.com/strongdm/errtap/pkg/errtap"
)

// ErrNotInitialized is returned by Flush and Close before a successful Init.
var ErrNotInitialized = errors.New("sentry sink not initialized")

// SentrySinkOption configures the sentry sink.
type SentrySinkOption func(*sentrySinkConfig)

type sentrySinkConfig struct {
	flushTimeout time.Duration
	configure    []func(*sentrysdk.ClientOptions)
}

// WithFlushTimeout bounds Flush and Close when the context carries no deadline (default: 2s).
func WithFlushTimeout(d time.Duration) SentrySinkOption {
	return func(c *sentrySinkConfig) {
		if d > 0 {
			c.flushTimeout = d
		}
	}
}

// WithClientOptions adjusts the SDK options after they are derived from the
// sink configuration. Transport and tuning knobs go here.
func WithClientOptions(fn func(*sentrysdk.ClientOptions)) SentrySinkOption {
	return func(c *sentrySinkConfig) {
		c.configure = append(c.configure, fn)
	}
}

// sentrySink forwards captures to a dedicated hub.
type sentrySink struct {
	flushTimeout time.Duration
	configure    []func(*sentrysdk.ClientOptions)

	mu  sync.RWMutex
	hub *sentrysdk.Hub
}

// NewSink creates a sink backed by its own Sentry client and hub.
// The global Sentry hub is left alone.
func NewSink(opts ...SentrySinkOption) errtap.Sink {
	cfg := &sentrySinkConfig{flushTimeout: 2 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	return &sentrySink{
		flushTimeout: cfg.flushTimeout,
		configure:    cfg.configure,
	}
}

// Init creates the Sentry client from cfg.
func (s *sentrySink) Init(cfg errtap.SinkConfig) error {
	clientOpts := ClientOptions(cfg)
	for _, fn := range s.configure {
		fn(&clientOpts)
	}

	client, err := sentrysdk.NewClient(clientOpts)
	if err != nil {
		return fmt.Errorf("create sentry client: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hub = sentrysdk.NewHub(client, sentrysdk.NewScope())
	return nil
}

// ClientOptions maps a sink configuration to Sentry client options.
func ClientOptions(cfg errtap.SinkConfig) sentrysdk.ClientOptions {
	opts := sentrysdk.ClientOptions{
		Dsn:         cfg.Endpoint,
		Release:     cfg.Release,
		Environment: string(cfg.Environment),
		Debug:       cfg.Debug,
		SampleRate:  1.0,
	}
	if cfg.SampleRate > 0 {
		opts.SampleRate = cfg.SampleRate
	}

	for _, rule := range cfg.IgnoreRules {
		opts.IgnoreErrors = append(opts.IgnoreErrors, rule.Expr())
	}

	if cfg.BeforeSend != nil {
		// message events need a stack for the pre-send filter to look at
		opts.AttachStacktrace = true
		opts.BeforeSend = beforeSend(cfg.BeforeSend)
	}

	extra := integrations(cfg.Extensions)
	if len(extra) > 0 {
		opts.Integrations = func(defaults []sentrysdk.Integration) []sentrysdk.Integration {
			return append(defaults, extra...)
		}
	}
	return opts
}

// integrations maps extensions to SDK integrations. Extensions that are
// neither a known errtap extension nor a sentry.Integration are skipped.
func integrations(exts []errtap.Extension) []sentrysdk.Integration {
	var out []sentrysdk.Integration
	for _, ext := range exts {
		switch e := ext.(type) {
		case errtap.ConsoleCapture:
			out = append(out, consoleIntegration{capture: e})
		case sentrysdk.Integration:
			out = append(out, e)
		}
	}
	return out
}

// consoleIntegration tags message events at the captured levels with the "console" logger.
type consoleIntegration struct {
	capture errtap.ConsoleCapture
}

func (consoleIntegration) Name() string { return "ConsoleCapture" }

func (i consoleIntegration) SetupOnce(client *sentrysdk.Client) {
	client.AddEventProcessor(func(event *sentrysdk.Event, hint *sentrysdk.EventHint) *sentrysdk.Event {
		if len(event.Exception) == 0 && i.capture.Captures(errtap.Severity(event.Level)) {
			event.Logger = "console"
		}
		return event
	})
}

// beforeSend runs an errtap pre-send function on Sentry events.
func beforeSend(fn errtap.PreSendFunc) func(*sentrysdk.Event, *sentrysdk.EventHint) *sentrysdk.Event {
	return func(event *sentrysdk.Event, hint *sentrysdk.EventHint) *sentrysdk.Event {
		ev := toEvent(event, hint)
		out := fn(&ev, &errtap.Hint{Stack: ev.Stack})
		if out == nil {
			return nil
		}
		event.Logger = out.Logger
		if len(event.Exception) == 0 {
			event.Message = out.Message
		}
		return event
	}
}

func toEvent(event *sentrysdk.Event, hint *sentrysdk.EventHint) errtap.Event {
	ev := errtap.Event{
		ID:          string(event.EventID),
		Timestamp:   event.Timestamp,
		Level:       errtap.Severity(event.Level),
		Message:     event.Message,
		Environment: errtap.Variant(event.Environment),
		Release:     event.Release,
		Logger:      event.Logger,
	}
	if hint != nil && hint.OriginalException != nil {
		ev.Exception = hint.OriginalException
		if st, ok := hint.OriginalException.(interface{ StackTrace() string }); ok {
			ev.Stack = st.StackTrace()
		}
	}
	if ev.Message == "" && len(event.Exception) > 0 {
		ev.Message = event.Exception[len(event.Exception)-1].Value
	}
	if ev.Stack == "" {
		ev.Stack = formatStack(event)
	}
	return ev
}

// formatStack renders the frames Sentry collected, innermost first.
func formatStack(event *sentrysdk.Event) string {
	var traces []*sentrysdk.Stacktrace
	for _, ex := range event.Exception {
		traces = append(traces, ex.Stacktrace)
	}
	for _, th := range event.Threads {
		traces = append(traces, th.Stacktrace)
	}

	var b strings.Builder
	for _, st := range traces {
		if st == nil {
			continue
		}
		for i := len(st.Frames) - 1; i >= 0; i-- {
			f := st.Frames[i]
			path := f.AbsPath
			if path == "" {
				path = f.Filename
			}
			fmt.Fprintf(&b, "%s (%s:%d)\n", f.Function, path, f.Lineno)
		}
	}
	return b.String()
}

func (s *sentrySink) currentHub() *sentrysdk.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

// CaptureMessage sends message at level.
func (s *sentrySink) CaptureMessage(message string, level errtap.Severity) {
	hub := s.currentHub()
	if hub == nil {
		return
	}
	// the shared hub's scope stack is not safe to push from several goroutines
	local := hub.Clone()
	local.Scope().SetLevel(sentrysdk.Level(level))
	local.CaptureMessage(message)
}

// CaptureException sends err as an exception.
func (s *sentrySink) CaptureException(err error) {
	hub := s.currentHub()
	if hub == nil || err == nil {
		return
	}
	hub.CaptureException(err)
}

// Flush waits for buffered events until ctx is done or the flush timeout passes.
func (s *sentrySink) Flush(ctx context.Context) error {
	hub := s.currentHub()
	if hub == nil {
		return ErrNotInitialized
	}

	timeout := s.flushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !hub.Flush(timeout) {
		return fmt.Errorf("sentry flush: %w", context.DeadlineExceeded)
	}
	return nil
}

// Close flushes buffered events. The client has no other resources to release.
func (s *sentrySink) Close() error {
	if s.currentHub() == nil {
		return nil
	}
	return s.Flush(context.Background())
}
