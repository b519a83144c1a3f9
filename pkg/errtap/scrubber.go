// scrubber.go redacts secrets and PII from messages before they leave the process.

package errtap

import (
	"regexp"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// MaxMessageSize is the maximum length for forwarded messages (default: 8192).
	MaxMessageSize int

	// ExtraPatterns are additional regular expressions whose matches are redacted.
	ExtraPatterns []string

	// ScrubMessages enables pattern redaction; truncation applies regardless.
	ScrubMessages bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize: 8192,
		ScrubMessages:  true,
	}
}

// Compiled once at package init.
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)gh[po]_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), // JWT

	// Credentials, including JSON-serialized console arguments
	regexp.MustCompile(`(?i)"?(password|passwd|secret|credential)"?[=:\s]+['"]?[^\s'",}]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
}

// Scrubber redacts sensitive data from forwarded messages.
type Scrubber struct {
	cfg   ScrubberConfig
	extra []*regexp.Regexp
}

// NewScrubber creates a scrubber. Invalid extra patterns are skipped.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	s := &Scrubber{cfg: cfg}
	for _, expr := range cfg.ExtraPatterns {
		if re, err := regexp.Compile(expr); err == nil {
			s.extra = append(s.extra, re)
		}
	}
	return s
}

// ScrubMessage truncates msg and redacts sensitive patterns from it.
func (s *Scrubber) ScrubMessage(msg string) string {
	if s.cfg.MaxMessageSize > 0 && len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}
	if !s.cfg.ScrubMessages {
		return msg
	}

	for _, pattern := range messageScrubPatterns {
		msg = pattern.ReplaceAllString(msg, "[REDACTED]")
	}
	for _, pattern := range s.extra {
		msg = pattern.ReplaceAllString(msg, "[REDACTED]")
	}
	return msg
}

// truncateWithMarker truncates a string and adds a truncation marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}
