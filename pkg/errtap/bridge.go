// bridge.go forwards a host framework's internal error reports as exceptions.

package errtap

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// DebugFunc is a framework's internal debug/error entry point.
type DebugFunc func(message, misc, stack string)

// ErrorHook is the capability to read and replace a framework's DebugFunc.
type ErrorHook interface {
	Get() DebugFunc
	Set(fn DebugFunc)
}

// FuncHook is an ErrorHook holding the entry point itself. Frameworks expose
// it and call Report; the monitor swaps the function underneath.
type FuncHook struct {
	fn atomic.Pointer[DebugFunc]
}

// NewFuncHook returns a hook whose initial entry point is fn.
func NewFuncHook(fn DebugFunc) *FuncHook {
	h := &FuncHook{}
	h.Set(fn)
	return h
}

// Get implements ErrorHook.
func (h *FuncHook) Get() DebugFunc {
	if fn := h.fn.Load(); fn != nil {
		return *fn
	}
	return func(string, string, string) {}
}

// Set implements ErrorHook.
func (h *FuncHook) Set(fn DebugFunc) {
	if fn == nil {
		fn = func(string, string, string) {}
	}
	h.fn.Store(&fn)
}

// Report calls the current entry point.
func (h *FuncHook) Report(message, misc, stack string) {
	h.Get()(message, misc, stack)
}

// InstallBridge replaces hook's entry point with one that reports every call
// through reporter and then calls the original with the original message.
func InstallBridge(hook ErrorHook, host Host, reporter *Reporter, logger *zap.Logger) {
	original := hook.Get()
	hook.Set(func(message, misc, stack string) {
		bridgeReport(host, reporter, logger, message, misc, stack)
		original(message, "", "")
	})
}

func bridgeReport(host Host, reporter *Reporter, logger *zap.Logger, message, misc, stack string) {
	defer func() {
		_ = recover()
	}()

	combined := message
	if misc != "" {
		combined += " " + misc
	}

	err := host.NewError(combined)
	if he, ok := err.(*HostError); ok && he.Stack == "" {
		he.Stack = stack
	}

	if reporter.state.Debug() && logger != nil {
		logger.Info("(internal exception reported to sink)")
	}
	reporter.ReportException(err)
}
