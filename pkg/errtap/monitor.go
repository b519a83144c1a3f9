// monitor.go provides the Monitor that wires the console, the framework hook and the sink together.

package errtap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrAlreadyInitialized is returned by a second successful Init.
var ErrAlreadyInitialized = errors.New("errtap: already initialized")

// InitOption configures the collaborators used by Init.
type InitOption func(*initConfig)

type initConfig struct {
	host     Host
	sink     Sink
	hook     ErrorHook
	logger   *zap.Logger
	scrubber *Scrubber
}

// WithHost sets the host framework (default: a non-production StaticHost).
func WithHost(host Host) InitOption {
	return func(c *initConfig) {
		c.host = host
	}
}

// WithSink sets the telemetry sink (default: discard).
func WithSink(sink Sink) InitOption {
	return func(c *initConfig) {
		c.sink = sink
	}
}

// WithErrorHook sets the framework error hook to bridge.
func WithErrorHook(hook ErrorHook) InitOption {
	return func(c *initConfig) {
		c.hook = hook
	}
}

// WithLogger sets the logger for warnings and debug echo.
func WithLogger(logger *zap.Logger) InitOption {
	return func(c *initConfig) {
		c.logger = logger
	}
}

// WithScrubber redacts forwarded messages with the given configuration.
func WithScrubber(cfg ScrubberConfig) InitOption {
	return func(c *initConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing redacts forwarded messages with production-safe defaults.
func WithDefaultScrubbing() InitOption {
	return func(c *initConfig) {
		c.scrubber = NewScrubber(DefaultScrubberConfig())
	}
}

// Monitor intercepts a Console and a framework error hook and forwards what
// looks like an exception to a Sink.
type Monitor struct {
	console *Console

	mu     sync.Mutex
	logger *zap.Logger
	sink   Sink

	state    atomic.Pointer[State]
	reporter atomic.Pointer[Reporter]
}

// NewMonitor creates a Monitor and immediately taps console's error-level
// entry point. Until Init activates the monitor, the tap passes calls through.
func NewMonitor(console *Console) *Monitor {
	m := &Monitor{
		console: console,
		logger:  defaultLogger(),
		sink:    noopSinkInternal{},
	}
	console.WrapError(TapWith(m.observeError))
	return m
}

// Init resolves opts into the monitor's State and, when active, initializes
// the sink and installs the remaining interceptors. Call it once.
//
// Without an endpoint Init only logs a warning and the monitor stays inert.
func (m *Monitor) Init(opts Options, with ...InitOption) error {
	cfg := &initConfig{
		host: StaticHost{},
		sink: noopSinkInternal{},
	}
	for _, opt := range with {
		opt(cfg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Load() != nil {
		return ErrAlreadyInitialized
	}

	logger := cfg.logger
	if logger == nil {
		logger = m.logger
	}

	if opts.Endpoint == "" {
		logger.Warn("errtap not initialized, no DSN provided")
		return nil
	}
	if opts.Release == "" && cfg.host.Version() == "" {
		logger.Warn("release version not provided, using default", zap.String("release", DefaultRelease))
	}

	st := resolveState(opts, cfg.host)
	m.logger = logger

	if !st.active {
		m.state.Store(st)
		return nil
	}

	if opts.ForceEnable {
		logger.Warn("errtap forcefully enabled", zap.String("environment", string(st.environment)))
	}

	sinkCfg := SinkConfig{
		Endpoint:    opts.Endpoint,
		Release:     st.release,
		Environment: st.environment,
		IgnoreRules: st.IgnoreRules(),
		Debug:       st.debug,
		Extensions:  opts.Extensions,
	}
	if st.environment == VariantClient {
		var preSend []PreSendOption
		if cfg.host.IsDevelopment() {
			preSend = append(preSend, WithDevelopmentEcho(logger))
		}
		sinkCfg.SampleRate = st.sampleRate
		sinkCfg.BeforeSend = NewPreSendFilter(preSend...)
		sinkCfg.Extensions = append([]Extension{ConsoleCapture{Levels: []Severity{SeverityError}}}, opts.Extensions...)
	}

	if err := cfg.sink.Init(sinkCfg); err != nil {
		logger.Warn("errtap sink initialization failed", zap.Error(err))
		inactive := *st
		inactive.active = false
		m.state.Store(&inactive)
		return fmt.Errorf("init sink: %w", err)
	}
	m.sink = cfg.sink

	reporter := NewReporter(st, cfg.sink, logger, cfg.scrubber)
	m.reporter.Store(reporter)

	if cfg.hook != nil {
		InstallBridge(cfg.hook, cfg.host, reporter, logger)
	}
	if st.environment == VariantClient {
		m.console.WrapLog(TapWith(m.observeLog))
	}

	m.state.Store(st)
	return nil
}

// State returns the resolved state, nil before a successful Init.
func (m *Monitor) State() *State {
	return m.state.Load()
}

// Reporter returns the reporter, nil while the monitor is inactive.
func (m *Monitor) Reporter() *Reporter {
	if !m.state.Load().Active() {
		return nil
	}
	return m.reporter.Load()
}

// Console returns the console the monitor intercepts.
func (m *Monitor) Console() *Console {
	return m.console
}

// Flush delegates to the sink.
func (m *Monitor) Flush(ctx context.Context) error {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	return sink.Flush(ctx)
}

// Close delegates to the sink.
func (m *Monitor) Close() error {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	return sink.Close()
}

func (m *Monitor) observeError(args []any) {
	st := m.state.Load()
	if !st.Active() {
		return
	}
	call, ok := NewErrorCall(args)
	if !ok {
		return
	}
	if cls, _ := Classify(errorRules, call); cls.Forward {
		m.reporter.Load().ReportMessage(cls.Message, cls.Err)
	}
}

func (m *Monitor) observeLog(args []any) {
	st := m.state.Load()
	if !st.Active() {
		return
	}
	call, ok := NewLogCall(args)
	if !ok {
		return
	}

	rules := LogRules(func(err error) {
		if st.Debug() {
			m.logger.Warn("log classification", zap.Error(err))
		}
	})
	cls, rule := Classify(rules, call)
	if !cls.Forward {
		return
	}
	if rule == "error-or-route" && st.Debug() {
		m.logger.Debug("log line classified as error", zap.String("message", call.Message), zap.Int("args", len(args)))
	}
	m.reporter.Load().ReportMessage(cls.Message, cls.Err)
}

var errorRules = ErrorRules()

func defaultLogger() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.DebugLevel,
	)
	return zap.New(core).Named("errtap")
}

// std taps DefaultConsole at package initialization so that it sits beneath
// any wrapper installed later.
var std = NewMonitor(DefaultConsole)

// Default returns the process-wide monitor bound to DefaultConsole.
func Default() *Monitor {
	return std
}

// Init initializes the process-wide monitor.
func Init(opts Options, with ...InitOption) error {
	return std.Init(opts, with...)
}

// Error writes to DefaultConsole's error-level entry point.
func Error(args ...any) {
	DefaultConsole.Error(args...)
}

// Log writes to DefaultConsole's log-level entry point.
func Log(args ...any) {
	DefaultConsole.Log(args...)
}
