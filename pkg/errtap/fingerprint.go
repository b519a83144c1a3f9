// fingerprint.go generates stable hashes for grouping similar events.

package errtap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Fingerprint generates a hash for grouping similar events.
// The fingerprint is based on:
//   - the environment and the exception's Go type
//   - the message with numbers, quoted values and addresses masked
//   - the first 3 stack frames (function names only)
func Fingerprint(event Event) string {
	var parts []string
	parts = append(parts, string(event.Environment))
	if event.Exception != nil {
		parts = append(parts, fmt.Sprintf("%T", event.Exception))
	}
	parts = append(parts, normalizeMessage(event.Message))
	parts = append(parts, normalizeStackTrace(event.Stack)...)

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}

var (
	// Match function names like "main.doSomething" or "pkg/subpkg.Function"
	funcNamePattern = regexp.MustCompile(`^([a-zA-Z0-9_./]+\.[a-zA-Z0-9_]+)`)

	memAddrPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	offsetPattern  = regexp.MustCompile(`\+0x[0-9a-fA-F]+`)
	numberPattern  = regexp.MustCompile(`\d+`)
	quotedPattern  = regexp.MustCompile(`"[^"]*"|'[^']*'`)
)

// normalizeMessage masks the variable parts of a message.
// Only the first line takes part; serialized arguments follow it.
func normalizeMessage(msg string) string {
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	msg = memAddrPattern.ReplaceAllString(msg, "<addr>")
	msg = quotedPattern.ReplaceAllString(msg, "<str>")
	msg = numberPattern.ReplaceAllString(msg, "<n>")
	return strings.TrimSpace(msg)
}

// normalizeStackTrace extracts the first 3 function names from a Go stack
// trace or from "at fn (file:line:col)" frames attached to host errors.
func normalizeStackTrace(trace string) []string {
	if trace == "" {
		return nil
	}

	var frames []string
	for _, line := range strings.Split(trace, "\n") {
		// file:line lines are tab-indented
		if strings.HasPrefix(line, "\t") {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "goroutine ") || strings.HasPrefix(line, "/") {
			continue
		}

		if rest, ok := strings.CutPrefix(line, "at "); ok {
			if fn, _, _ := strings.Cut(rest, " "); fn != "" && strings.HasSuffix(rest, ")") {
				frames = append(frames, fn)
			}
			if len(frames) >= 3 {
				break
			}
			continue
		}

		line = offsetPattern.ReplaceAllString(line, "")
		line = memAddrPattern.ReplaceAllString(line, "")
		if idx := strings.Index(line, "("); idx > 0 {
			line = line[:idx]
		}

		if match := funcNamePattern.FindString(strings.TrimSpace(line)); match != "" {
			frames = append(frames, match)
			if len(frames) >= 3 {
				break
			}
		}
	}
	return frames
}
