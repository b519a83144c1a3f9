// Package otelhook exposes OpenTelemetry's global error handler as an errtap.ErrorHook.
//
// Exporter and SDK failures that OpenTelemetry reports through otel.Handle
// are then forwarded as exceptions, and still reach the handler that was
// installed before.
//
// Usage:
//
//	err := errtap.Init(opts, errtap.WithErrorHook(otelhook.New()))
package otelhook

import (
	"errors"
	"os"

	"github.com/strongdm/errtap/pkg/errtap"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option configures the hook.
type Option func(*Hook)

// WithLogger sets where errors go when they come back around to the hook.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Hook) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Hook adapts otel.GetErrorHandler / otel.SetErrorHandler.
type Hook struct {
	logger *zap.Logger
}

// New returns a hook over the OpenTelemetry global error handler.
func New(opts ...Option) *Hook {
	h := &Hook{logger: defaultLogger()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// forwardedError marks errors the hook passes on to the previous handler.
// The default otel handler delegates to whatever is installed later, so a
// forwarded error can come straight back.
type forwardedError struct {
	msg string
}

func (e *forwardedError) Error() string { return e.msg }

// Get implements errtap.ErrorHook.
func (h *Hook) Get() errtap.DebugFunc {
	prev := otel.GetErrorHandler()
	return func(message, misc, stack string) {
		if misc != "" {
			message += " " + misc
		}
		prev.Handle(&forwardedError{msg: message})
	}
}

// Set implements errtap.ErrorHook.
func (h *Hook) Set(fn errtap.DebugFunc) {
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		if err == nil {
			return
		}
		var fe *forwardedError
		if errors.As(err, &fe) {
			h.logger.Error("opentelemetry error", zap.String("error", fe.msg))
			return
		}
		fn(err.Error(), "", "")
	}))
}

func defaultLogger() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	)
	return zap.New(core).Named("otel")
}
