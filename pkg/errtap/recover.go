// recover.go provides the Recover helper for panic capture.
// Use it in goroutines, handlers and other code the console never sees.

package errtap

import (
	"fmt"
	"runtime/debug"
)

// PanicError is the exception reported for a recovered panic.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return "panic: " + formatRecovered(e.Value)
}

// StackTrace returns the goroutine stack at recovery time.
func (e *PanicError) StackTrace() string {
	return e.Stack
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Recover captures a panic, reports it as an exception and returns the
// recovered value. It does NOT re-panic. Nothing is reported while the
// monitor is inactive.
//
// Use in defer:
//
//	go func() {
//	    defer errtap.Recover(monitor)
//	    // code that might panic
//	}()
func Recover(m *Monitor) any {
	r := recover()
	if r == nil {
		return nil
	}
	ReportPanic(m, r)
	return r
}

// ReportPanic reports an already recovered panic value.
func ReportPanic(m *Monitor, recovered any) {
	if m == nil {
		return
	}
	if reporter := m.Reporter(); reporter != nil {
		reporter.ReportException(&PanicError{Value: recovered, Stack: string(debug.Stack())})
	}
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
