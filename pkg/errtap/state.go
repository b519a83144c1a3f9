// state.go defines the monitoring options and the state resolved from them at init.

package errtap

// DefaultRelease is used when neither the options nor the host provide a release.
const DefaultRelease = "0.0.1"

// Variant selects the client or server flavour of the pipeline.
type Variant string

const (
	VariantClient Variant = "client"
	VariantServer Variant = "server"
)

// Options configures a Monitor. They are copied at init and never read again.
type Options struct {
	// Endpoint is the sink DSN. Monitoring stays disabled without it.
	Endpoint string

	// Release falls back to the host version, then to DefaultRelease.
	Release string

	// Environment is the variant label, VariantServer when empty.
	Environment Variant

	// IgnoreRules are appended after the built-in rules.
	IgnoreRules []IgnoreRule

	// ForceEnable bypasses the production-only gate.
	ForceEnable bool

	// Debug enables a local echo of everything forwarded.
	Debug bool

	// SampleRate is passed to the sink on the client variant (default: 1.0).
	SampleRate float64

	// Extensions are handed to the sink untouched.
	Extensions []Extension
}

// State is the configuration resolved by Init. It is immutable.
type State struct {
	active      bool
	release     string
	environment Variant
	ignoreRules []IgnoreRule
	debug       bool
	sampleRate  float64
}

// Active reports whether forwarding happens at all.
func (s *State) Active() bool { return s != nil && s.active }

// Release returns the resolved release.
func (s *State) Release() string { return s.release }

// Environment returns the variant label.
func (s *State) Environment() Variant { return s.environment }

// Debug reports whether debug echo is enabled.
func (s *State) Debug() bool { return s != nil && s.debug }

// SampleRate returns the resolved sample rate, zero on the server variant.
func (s *State) SampleRate() float64 { return s.sampleRate }

// IgnoreRules returns a copy of the merged rules, defaults first.
func (s *State) IgnoreRules() []IgnoreRule {
	out := make([]IgnoreRule, len(s.ignoreRules))
	copy(out, s.ignoreRules)
	return out
}

// resolveState derives the state from opts and host.
// Release and the active flag are resolved here; rules are merged only for active states.
func resolveState(opts Options, host Host) *State {
	env := opts.Environment
	if env == "" {
		env = VariantServer
	}

	release := opts.Release
	if release == "" {
		release = host.Version()
	}
	if release == "" {
		release = DefaultRelease
	}

	st := &State{
		active:      opts.ForceEnable || host.IsProduction(),
		release:     release,
		environment: env,
		debug:       opts.Debug,
	}

	if env == VariantClient {
		st.sampleRate = opts.SampleRate
		if st.sampleRate <= 0 {
			st.sampleRate = 1.0
		}
	}

	if st.active {
		rules := DefaultIgnoreRules(env)
		st.ignoreRules = append(rules, opts.IgnoreRules...)
	}
	return st
}
