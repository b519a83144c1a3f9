// event.go defines the captured event handed to sinks.

package errtap

import (
	"time"

	"github.com/google/uuid"
)

// Severity is the level a message is captured with.
type Severity string

const (
	// SeverityWarning indicates a non-fatal issue that may need attention.
	SeverityWarning Severity = "warning"

	// SeverityError is the level used for everything the shim forwards.
	SeverityError Severity = "error"

	// SeverityFatal indicates an unrecoverable failure such as a panic.
	SeverityFatal Severity = "fatal"
)

// Event is a single captured message or exception.
// Events are built once per forwarded call and discarded after the sink has seen them.
type Event struct {
	// ID is a unique identifier for this event (UUID).
	ID string

	// Timestamp is when the event was captured.
	Timestamp time.Time

	// Level is the severity the event was captured with.
	Level Severity

	// Message is the fully formatted message, argument serialization already applied.
	Message string

	// Exception is the structured error for exception captures, nil for messages.
	Exception error

	// Stack is the optional stack trace attached to the exception.
	Stack string

	// Fingerprint is a hash for grouping similar events.
	Fingerprint string

	// Environment and Release are copied from the sink configuration.
	Environment Variant
	Release     string

	// Logger names the channel the event came through, e.g. "console".
	Logger string
}

// NewMessageEvent builds an event for a captured message.
func NewMessageEvent(message string, level Severity) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
}

// NewExceptionEvent builds an event for a captured exception.
// The stack is taken from the error when it exposes one.
func NewExceptionEvent(err error) Event {
	event := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Level:     SeverityError,
		Exception: err,
	}
	if err != nil {
		event.Message = err.Error()
		if st, ok := err.(interface{ StackTrace() string }); ok {
			event.Stack = st.StackTrace()
		}
	}
	return event
}
