// console.go holds the ambient error and log entry points as replaceable decorator chains.

package errtap

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sync/atomic"
)

// LogFunc is a console entry point.
type LogFunc func(args ...any)

// Console is the application's ambient output surface: an error-level and a
// log-level entry point. Either may be replaced at any time; replacements
// are expected to wrap the current implementation rather than discard it.
type Console struct {
	errorFn atomic.Pointer[LogFunc]
	logFn   atomic.Pointer[LogFunc]
}

// NewConsole returns a console printing errors to errOut and logs to logOut,
// one line per call with arguments separated by spaces.
func NewConsole(errOut, logOut io.Writer) *Console {
	c := &Console{}
	c.SetErrorFunc(printer(errOut))
	c.SetLogFunc(printer(logOut))
	return c
}

// DefaultConsole is the process console, writing to stderr and stdout.
var DefaultConsole = NewConsole(os.Stderr, os.Stdout)

func printer(w io.Writer) LogFunc {
	return func(args ...any) {
		fmt.Fprintln(w, args...)
	}
}

// Error calls the current error-level entry point.
func (c *Console) Error(args ...any) {
	c.ErrorFunc()(args...)
}

// Log calls the current log-level entry point.
func (c *Console) Log(args ...any) {
	c.LogFunc()(args...)
}

// ErrorFunc returns the current error-level entry point.
func (c *Console) ErrorFunc() LogFunc {
	return deref(c.errorFn.Load())
}

// SetErrorFunc replaces the error-level entry point.
func (c *Console) SetErrorFunc(fn LogFunc) {
	c.errorFn.Store(&fn)
}

// LogFunc returns the current log-level entry point.
func (c *Console) LogFunc() LogFunc {
	return deref(c.logFn.Load())
}

// SetLogFunc replaces the log-level entry point.
func (c *Console) SetLogFunc(fn LogFunc) {
	c.logFn.Store(&fn)
}

// WrapError layers wrap over the current error-level entry point.
func (c *Console) WrapError(wrap func(next LogFunc) LogFunc) {
	for {
		cur := c.errorFn.Load()
		fn := wrap(deref(cur))
		if c.errorFn.CompareAndSwap(cur, &fn) {
			return
		}
	}
}

// WrapLog layers wrap over the current log-level entry point.
func (c *Console) WrapLog(wrap func(next LogFunc) LogFunc) {
	for {
		cur := c.logFn.Load()
		fn := wrap(deref(cur))
		if c.logFn.CompareAndSwap(cur, &fn) {
			return
		}
	}
}

// deref treats an unset entry point as one that discards its arguments.
func deref(fn *LogFunc) LogFunc {
	if fn == nil || *fn == nil {
		return func(...any) {}
	}
	return *fn
}

// Tap returns an entry point that shows every call to observe and then calls
// next with the original arguments. A panic in observe is recovered; next runs
// regardless.
func Tap(next LogFunc, observe func(args []any)) LogFunc {
	return func(args ...any) {
		safeObserve(observe, slices.Clone(args))
		next(args...)
	}
}

// TapWith returns a wrapper for Console.WrapError and Console.WrapLog.
func TapWith(observe func(args []any)) func(LogFunc) LogFunc {
	return func(next LogFunc) LogFunc {
		return Tap(next, observe)
	}
}

func safeObserve(observe func(args []any), args []any) {
	defer func() {
		_ = recover()
	}()
	observe(args)
}
