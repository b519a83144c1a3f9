// ignore.go implements the ordered ignore-rule filter applied before forwarding.

package errtap

import (
	"regexp"
	"strings"
)

type ruleKind int

const (
	ruleSubstring ruleKind = iota
	rulePrefix
	rulePattern
)

// IgnoreRule suppresses forwarding of messages it matches.
// Substring and prefix rules are case-sensitive.
type IgnoreRule struct {
	kind    ruleKind
	text    string
	pattern *regexp.Regexp
}

// Substring returns a rule matching messages that contain s.
func Substring(s string) IgnoreRule {
	return IgnoreRule{kind: ruleSubstring, text: s}
}

// Prefix returns a rule matching messages that start with s.
func Prefix(s string) IgnoreRule {
	return IgnoreRule{kind: rulePrefix, text: s}
}

// Pattern returns a rule matching messages with re.
func Pattern(re *regexp.Regexp) IgnoreRule {
	return IgnoreRule{kind: rulePattern, pattern: re}
}

// MustPattern compiles expr and returns a pattern rule. It panics on an invalid expression.
func MustPattern(expr string) IgnoreRule {
	return Pattern(regexp.MustCompile(expr))
}

// Match reports whether the rule matches message.
func (r IgnoreRule) Match(message string) bool {
	switch r.kind {
	case ruleSubstring:
		return strings.Contains(message, r.text)
	case rulePrefix:
		return strings.HasPrefix(message, r.text)
	case rulePattern:
		return r.pattern != nil && r.pattern.MatchString(message)
	}
	return false
}

// Expr returns the rule as a regular expression, the form telemetry SDKs accept.
func (r IgnoreRule) Expr() string {
	switch r.kind {
	case rulePrefix:
		return "^" + regexp.QuoteMeta(r.text)
	case rulePattern:
		if r.pattern == nil {
			return ""
		}
		return r.pattern.String()
	}
	return regexp.QuoteMeta(r.text)
}

// String returns a readable form of the rule.
func (r IgnoreRule) String() string {
	switch r.kind {
	case rulePrefix:
		return "prefix:" + r.text
	case rulePattern:
		return "pattern:" + r.Expr()
	}
	return "substring:" + r.text
}

// ShouldDrop reports whether message matches any of rules.
// Rules are tried in order and the first match wins.
func ShouldDrop(message string, rules []IgnoreRule) bool {
	for _, rule := range rules {
		if rule.Match(message) {
			return true
		}
	}
	return false
}

var serverDefaultRules = []IgnoreRule{
	MustPattern(`Skipping downloading new version because the Cordova`),
}

var clientDefaultRules = []IgnoreRule{
	MustPattern(`Skipping downloading new version because the Cordova`),
	MustPattern(`No callback invoker`),
	MustPattern(`Error in Success callbackId: WebAppLocalServer`),
	MustPattern(`Can't select in removed DomRange`),
	// source maps are not shipped with mobile builds
	MustPattern(`Non-success status code 404 for asset.*map`),
	MustPattern(`Cannot read properties of undefined \(reading 'connected'\)`),
	MustPattern(`instantSearchSDKJSBridgeClearHighlight`),
	MustPattern(`AbortError`),
	MustPattern(`(?i)script error\.`),
	MustPattern(`@webkit-masked-url`),
	// emitted on every server restart
	MustPattern(`Error syncing to server time`),
}

// DefaultIgnoreRules returns the built-in rules for the given variant.
// The returned slice is a copy.
func DefaultIgnoreRules(v Variant) []IgnoreRule {
	src := serverDefaultRules
	if v == VariantClient {
		src = clientDefaultRules
	}
	out := make([]IgnoreRule, len(src))
	copy(out, src)
	return out
}
