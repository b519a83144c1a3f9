// Package stderr provides a sink that prints captured events in human-readable form.
// Useful for development and for running without a telemetry backend.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/strongdm/errtap/pkg/errtap"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
	out     io.Writer
}

// WithVerbose enables full event details including stack traces.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// WithOutput redirects output away from os.Stderr.
func WithOutput(w io.Writer) StderrSinkOption {
	return func(c *stderrSinkConfig) {
		if w != nil {
			c.out = w
		}
	}
}

// stderrWriter prints events in human-readable format.
type stderrWriter struct {
	verbose bool

	mu  sync.Mutex
	out io.Writer
}

// NewStderrWriter creates an event writer printing to stderr.
func NewStderrWriter(opts ...StderrSinkOption) errtap.EventWriter {
	cfg := &stderrSinkConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrWriter{
		verbose: cfg.verbose,
		out:     cfg.out,
	}
}

// NewStderrSink creates a sink printing to stderr.
func NewStderrSink(opts ...StderrSinkOption) errtap.Sink {
	return errtap.NewEventSink(NewStderrWriter(opts...))
}

// Write formats and outputs the event.
func (s *stderrWriter) Write(ctx context.Context, event errtap.Event) error {
	level := strings.ToUpper(string(event.Level))

	// Format: [ERRTAP] <timestamp> <LEVEL> <kind> (<environment> <release>) via <logger>
	timestamp := event.Timestamp.Format("2006-01-02T15:04:05Z07:00")

	kind := "message"
	if event.Exception != nil {
		kind = fmt.Sprintf("exception %T", event.Exception)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("[ERRTAP] %s %s %s", timestamp, level, kind))
	if event.Environment != "" || event.Release != "" {
		parts = append(parts, fmt.Sprintf("(%s %s)", event.Environment, event.Release))
	}
	if event.Logger != "" {
		parts = append(parts, "via "+event.Logger)
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, " "))
	b.WriteString("\n")

	if event.Message != "" {
		fmt.Fprintf(&b, "        Message: %s\n", event.Message)
	}
	if event.Fingerprint != "" {
		fmt.Fprintf(&b, "        Fingerprint: %s\n", event.Fingerprint)
	}

	// Stack trace (only in verbose mode)
	if s.verbose && event.Stack != "" {
		b.WriteString("        Stack trace:\n")
		for _, line := range strings.Split(event.Stack, "\n") {
			fmt.Fprintf(&b, "          %s\n", line)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, b.String())
	return err
}

// Flush is a no-op for the stderr writer.
func (s *stderrWriter) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the stderr writer.
func (s *stderrWriter) Close() error {
	return nil
}
