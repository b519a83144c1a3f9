// classify.go decides which console calls carry an exception worth forwarding.

package errtap

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Call is a console call prepared for classification.
type Call struct {
	// Args are the original arguments.
	Args []any

	// Message is the string form of the first argument. For error-level calls
	// the serialized extra arguments are already appended.
	Message string
}

// Classification is the outcome of classifying a call.
type Classification struct {
	Forward bool
	Message string
	Err     error
}

// ClassifyRule maps a matching call to a classification.
type ClassifyRule struct {
	Name  string
	Match func(c Call) bool
	Apply func(c Call) Classification
}

// Classify applies the first rule matching c. No match means no forwarding.
func Classify(rules []ClassifyRule, c Call) (Classification, string) {
	for _, rule := range rules {
		if rule.Match(c) {
			return rule.Apply(c), rule.Name
		}
	}
	return Classification{}, ""
}

// leadingTypeName matches messages like "TypeError: x is undefined". The sink's
// own instrumentation already reports those.
var leadingTypeName = regexp.MustCompile(`^[A-Z][A-Za-z]+:`)

// ErrorRules returns the classification rules for the error-level entry point.
func ErrorRules() []ClassifyRule {
	return []ClassifyRule{
		{
			Name:  "typed-error",
			Match: func(c Call) bool { return leadingTypeName.MatchString(c.Message) },
			Apply: func(c Call) Classification { return Classification{} },
		},
		{
			Name:  "error",
			Match: func(c Call) bool { return true },
			Apply: func(c Call) Classification {
				return Classification{Forward: true, Message: c.Message}
			},
		},
	}
}

// LogRules returns the classification rules for the log-level entry point.
// onProblem, when non-nil, is told about values that could not be stringified.
//
// The "Error" or "route" match is a loose heuristic and knowingly lets
// through unrelated lines that happen to contain either word.
func LogRules(onProblem func(error)) []ClassifyRule {
	return []ClassifyRule{
		{
			Name:  "exception",
			Match: func(c Call) bool { return strings.Contains(c.Message, "Exception") },
			Apply: func(c Call) Classification {
				// the second argument is the actual error; the first is just a label
				return Classification{
					Forward: true,
					Message: exceptionString(c.Args, onProblem) + " (" + c.Message + ")",
				}
			},
		},
		{
			Name: "error-or-route",
			Match: func(c Call) bool {
				return strings.Contains(c.Message, "Error") || strings.Contains(c.Message, "route")
			},
			Apply: func(c Call) Classification {
				return Classification{Forward: true, Message: c.Message, Err: secondAsError(c.Args)}
			},
		},
	}
}

// NewErrorCall prepares an error-level call. It returns false when there is
// nothing to classify.
func NewErrorCall(args []any) (Call, bool) {
	if len(args) == 0 || args[0] == nil {
		return Call{}, false
	}
	msg, ok := stringify(args[0])
	if !ok {
		return Call{}, false
	}
	return Call{Args: args, Message: msg + serializeExtra(args[1:])}, true
}

// NewLogCall prepares a log-level call. It returns false when there is
// nothing to classify.
func NewLogCall(args []any) (Call, bool) {
	if len(args) == 0 || args[0] == nil {
		return Call{}, false
	}
	msg, ok := stringify(args[0])
	if !ok {
		return Call{}, false
	}
	return Call{Args: args, Message: msg}, true
}

// serializeExtra renders each extra argument as JSON on its own paragraph.
// On the first failure the error is noted and the remaining arguments skipped.
func serializeExtra(extra []any) string {
	var b strings.Builder
	for _, arg := range extra {
		data, err := marshalArg(arg)
		if err != nil {
			b.WriteString(" (error adding args: " + err.Error() + ")")
			break
		}
		b.WriteString("\n\n")
		b.Write(data)
	}
	return b.String()
}

func marshalArg(arg any) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("marshal panicked: %v", r)
		}
	}()
	return json.Marshal(arg)
}

// exceptionString renders the error value that accompanies an "Exception" log line.
func exceptionString(args []any, onProblem func(error)) string {
	if len(args) < 2 {
		return "undefined"
	}
	if args[1] == nil {
		return "null"
	}
	s, ok := stringify(args[1])
	if !ok {
		if onProblem != nil {
			onProblem(errors.New("problem converting exception value to string"))
		}
		return "---"
	}
	return s
}

func secondAsError(args []any) error {
	if len(args) < 2 || args[1] == nil {
		return nil
	}
	if err, ok := args[1].(error); ok {
		return err
	}
	s, ok := stringify(args[1])
	if !ok {
		return nil
	}
	return errors.New(s)
}

// stringify returns the string form of v. It reports false if formatting panicked.
func stringify(v any) (s string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s, ok = "", false
		}
	}()
	switch x := v.(type) {
	case string:
		return x, true
	case error:
		return x.Error(), true
	case fmt.Stringer:
		return x.String(), true
	}
	return fmt.Sprint(v), true
}
