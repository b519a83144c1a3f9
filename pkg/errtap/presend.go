// presend.go implements the last-chance filter a sink runs before transmission.

package errtap

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultSuppressedMarkers are stack substrings of third-party injected scripts.
var DefaultSuppressedMarkers = []string{"twk-chunk"}

// Hint carries what the sink knows about an event beyond the event itself.
type Hint struct {
	// Stack is the synthetically captured stack trace, empty when unavailable.
	Stack string
}

// PreSendFunc inspects an event before transmission. Returning nil drops it.
type PreSendFunc func(event *Event, hint *Hint) *Event

// PreSendOption configures a pre-send filter.
type PreSendOption func(*preSendFilter)

// WithMarkers replaces the suppressed stack markers.
func WithMarkers(markers ...string) PreSendOption {
	return func(f *preSendFilter) {
		f.markers = markers
	}
}

// WithDevelopmentEcho logs, for every event, whether the stack comes from the app bundle.
func WithDevelopmentEcho(logger *zap.Logger) PreSendOption {
	return func(f *preSendFilter) {
		f.devLogger = logger
	}
}

type preSendFilter struct {
	markers   []string
	devLogger *zap.Logger
}

// NewPreSendFilter returns a PreSendFunc dropping events whose hint stack
// contains one of the suppressed markers.
func NewPreSendFilter(opts ...PreSendOption) PreSendFunc {
	f := &preSendFilter{markers: DefaultSuppressedMarkers}
	for _, opt := range opts {
		opt(f)
	}
	return f.filter
}

func (f *preSendFilter) filter(event *Event, hint *Hint) *Event {
	var stack string
	if hint != nil {
		stack = hint.Stack
	}

	if f.devLogger != nil {
		f.devLogger.Debug("beforeSend", zap.Bool("app_stack", strings.Contains(stack, "app.js")))
	}

	if stack == "" {
		return event
	}
	for _, marker := range f.markers {
		if marker != "" && strings.Contains(stack, marker) {
			return nil
		}
	}
	return event
}
