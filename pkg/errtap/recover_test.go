package errtap

import (
	"errors"
	"strings"
	"testing"
)

func TestRecover_CapturesPanic(t *testing.T) {
	m, sink, _, _ := newActiveMonitor(t, VariantServer)

	func() {
		defer Recover(m)
		panic("test panic")
	}()

	exceptions := sink.getExceptions()
	if len(exceptions) != 1 {
		t.Fatalf("Expected 1 exception, got %d", len(exceptions))
	}

	var pe *PanicError
	if !errors.As(exceptions[0], &pe) {
		t.Fatalf("exception type = %T, want *PanicError", exceptions[0])
	}
	if pe.Error() != "panic: test panic" {
		t.Errorf("Error() = %q, want %q", pe.Error(), "panic: test panic")
	}
}

func TestRecover_IncludesStackTrace(t *testing.T) {
	m, sink, _, _ := newActiveMonitor(t, VariantServer)

	func() {
		defer Recover(m)
		panic("stack trace test")
	}()

	exceptions := sink.getExceptions()
	if len(exceptions) != 1 {
		t.Fatalf("Expected 1 exception, got %d", len(exceptions))
	}

	event := NewExceptionEvent(exceptions[0])
	if !strings.Contains(event.Stack, "goroutine") {
		t.Error("Stack should contain goroutine info")
	}
}

func TestRecover_NoPanic_NothingReported(t *testing.T) {
	m, sink, _, _ := newActiveMonitor(t, VariantServer)

	func() {
		defer Recover(m)
		// No panic
	}()

	if n := len(sink.getExceptions()); n != 0 {
		t.Errorf("Expected 0 exceptions, got %d", n)
	}
}

func TestRecover_InactiveMonitor_DoesNotRePanic(t *testing.T) {
	console, _, _ := newTestConsole()
	m := NewMonitor(console)

	// This should NOT panic after Recover
	func() {
		defer Recover(m)
		panic("should be caught")
	}()

	func() {
		defer Recover(nil)
		panic("nil monitor")
	}()
}

func TestRecover_HandlesErrorPanic(t *testing.T) {
	m, sink, _, _ := newActiveMonitor(t, VariantServer)

	testErr := &testError{msg: "error panic"}
	func() {
		defer Recover(m)
		panic(testErr)
	}()

	exceptions := sink.getExceptions()
	if len(exceptions) != 1 {
		t.Fatalf("Expected 1 exception, got %d", len(exceptions))
	}
	if !errors.Is(exceptions[0], testErr) {
		t.Error("PanicError should unwrap to the panic value")
	}
	if exceptions[0].Error() != "panic: error panic" {
		t.Errorf("Error() = %q, want %q", exceptions[0].Error(), "panic: error panic")
	}
}

func TestFormatRecovered(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "<nil>"},
		{"text", "text"},
		{42, "42"},
		{&testError{msg: "as error"}, "as error"},
	}
	for _, tt := range tests {
		if got := formatRecovered(tt.in); got != tt.want {
			t.Errorf("formatRecovered(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// testError is a custom error type for testing.
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
