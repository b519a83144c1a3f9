// Package errtap forwards exceptions hidden in an application's console
// output and in its host framework's internal error hook to a telemetry sink,
// without changing what the application itself prints.
//
// # Core Components
//
//   - Console: the error-level and log-level entry points, each a chain of wrappers
//   - Monitor: taps the console at creation and is activated once by Init
//   - IgnoreRule / ShouldDrop: ordered ignore list, first match drops
//   - Reporter: the single funnel to the Sink
//   - ErrorHook / InstallBridge: forwards framework-reported errors as exceptions
//   - PreSendFunc: last-chance filter run by the sink (client variant)
//
// # Quick Start
//
//	err := errtap.Init(errtap.Options{
//	    Endpoint:    os.Getenv("SENTRY_DSN"),
//	    Environment: errtap.VariantServer,
//	}, errtap.WithSink(sentry.NewSink()), errtap.WithHost(host))
//
//	errtap.Error("failed to sync", map[string]any{"user": id})
//
// The process-wide monitor taps DefaultConsole when the package is
// initialized, so code that wraps the console later keeps working: the
// original entry point always runs, with the original arguments.
//
// # Design Principles
//
//   - Interception never changes observable output: failures while classifying are swallowed
//   - Activation is decided once; the resolved State never changes afterwards
//   - Delivery is the sink's job: no retries or queues in the core
package errtap
