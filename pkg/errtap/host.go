// host.go defines the host framework capabilities the monitor depends on.

package errtap

// Host is the host framework's settings and error surface.
type Host interface {
	// IsProduction reports whether the process runs in production mode.
	IsProduction() bool

	// IsDevelopment reports whether the process runs in development mode.
	IsDevelopment() bool

	// Version returns the host-provided application version, empty if unknown.
	Version() string

	// NewError constructs the host's native error value for message.
	NewError(message string) error
}

// StaticHost is a Host with fixed answers.
type StaticHost struct {
	Production  bool
	Development bool
	AppVersion  string
}

// IsProduction implements Host.
func (h StaticHost) IsProduction() bool { return h.Production }

// IsDevelopment implements Host.
func (h StaticHost) IsDevelopment() bool { return h.Development }

// Version implements Host.
func (h StaticHost) Version() string { return h.AppVersion }

// NewError implements Host.
func (h StaticHost) NewError(message string) error {
	return &HostError{Message: message}
}

// HostError is the error value built for framework-reported failures.
type HostError struct {
	Message string
	Stack   string
}

func (e *HostError) Error() string {
	return e.Message
}

// StackTrace returns the stack reported alongside the error, if any.
func (e *HostError) StackTrace() string {
	return e.Stack
}
