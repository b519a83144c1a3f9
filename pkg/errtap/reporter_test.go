package errtap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func activeState(debug bool, rules ...IgnoreRule) *State {
	return &State{
		active:      true,
		release:     "1.0.0",
		environment: VariantServer,
		ignoreRules: rules,
		debug:       debug,
	}
}

func TestReporter_ReportMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		err     error
		rules   []IgnoreRule
		want    []string
	}{
		{"plain", "sync failed", nil, nil, []string{"sync failed"}},
		{"error appended", "sync failed", errors.New("timeout"), nil, []string{"sync failed timeout"}},
		{"flood prefix", "No callback invoker for id 3", nil, nil, nil},
		{"flood prefix only at start", "got No callback invoker", nil, nil, []string{"got No callback invoker"}},
		{"ignored", "sync failed", nil, []IgnoreRule{Substring("sync")}, nil},
		{"ignore applies to appended error", "sync failed", errors.New("ECONNRESET"), []IgnoreRule{Substring("ECONNRESET")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			r := NewReporter(activeState(false, tt.rules...), sink, nil, nil)

			r.ReportMessage(tt.message, tt.err)

			if tt.want == nil {
				assert.Empty(t, sink.getMessages())
				return
			}
			assert.Equal(t, tt.want, sink.getMessages())
			assert.Equal(t, SeverityError, sink.messages[0].level)
		})
	}
}

func TestReporter_ReportException_BypassesIgnoreRules(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(activeState(false, Substring("boom")), sink, nil, nil)

	r.ReportException(errors.New("boom"))
	r.ReportException(nil)

	require.Len(t, sink.getExceptions(), 1)
	assert.EqualError(t, sink.getExceptions()[0], "boom")
}

func TestReporter_DebugEchoGoesToLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := &recordingSink{}
	r := NewReporter(activeState(true, Substring("noise")), sink, zap.New(core), nil)

	r.ReportMessage("real problem", nil)
	r.ReportMessage("just noise", nil)

	sent := logs.FilterMessage("Sending to sink").All()
	require.Len(t, sent, 1)
	assert.Equal(t, "real problem", sent[0].ContextMap()["message"])
	assert.Equal(t, 1, logs.FilterMessage("message matched an ignore rule").Len())
}

func TestReporter_NoEchoWithoutDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewReporter(activeState(false), &recordingSink{}, zap.New(core), nil)

	r.ReportMessage("real problem", nil)

	assert.Equal(t, 0, logs.Len())
}

func TestReporter_SinkPanicIsContained(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewReporter(activeState(true), &recordingSink{panics: true}, zap.New(core), nil)

	require.NotPanics(t, func() {
		r.ReportMessage("x", nil)
		r.ReportException(errors.New("y"))
	})
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestReporter_Scrubs(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(activeState(false), sink, nil, NewScrubber(DefaultScrubberConfig()))

	r.ReportMessage("login failed for alice@example.com", nil)

	require.Len(t, sink.getMessages(), 1)
	assert.NotContains(t, sink.getMessages()[0], "alice@example.com")
}
