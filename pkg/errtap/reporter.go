// reporter.go is the single funnel from interceptors to the sink.

package errtap

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// floodPrefix marks a known-noisy message that is never forwarded.
const floodPrefix = "No callback invoker"

// Reporter formats, filters and forwards captured messages and exceptions.
// Its echo channel is the zap logger, never the intercepted console.
type Reporter struct {
	state    *State
	sink     Sink
	logger   *zap.Logger
	scrubber *Scrubber
}

// NewReporter creates a Reporter over state and sink.
// logger and scrubber may be nil.
func NewReporter(state *State, sink Sink, logger *zap.Logger, scrubber *Scrubber) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		state:    state,
		sink:     sink,
		logger:   logger,
		scrubber: scrubber,
	}
}

// ReportMessage forwards message, with err appended when non-nil, as an error-level message.
func (r *Reporter) ReportMessage(message string, err error) {
	defer r.recoverReport("message")

	final := message
	if err != nil {
		final += " " + err.Error()
	}

	if strings.HasPrefix(message, floodPrefix) {
		return
	}
	if ShouldDrop(final, r.state.ignoreRules) {
		if r.state.Debug() {
			r.logger.Debug("message matched an ignore rule", zap.String("message", final))
		}
		return
	}
	if r.scrubber != nil {
		final = r.scrubber.ScrubMessage(final)
	}

	if r.state.Debug() {
		r.logger.Info("Sending to sink", zap.String("message", final))
	}
	r.sink.CaptureMessage(final, SeverityError)
}

// ReportException forwards err as an exception. Ignore rules do not apply.
func (r *Reporter) ReportException(err error) {
	if err == nil {
		return
	}
	defer r.recoverReport("exception")
	r.sink.CaptureException(err)
}

func (r *Reporter) recoverReport(kind string) {
	if rec := recover(); rec != nil && r.state.Debug() {
		r.logger.Warn("failed to report "+kind, zap.String("panic", fmt.Sprint(rec)))
	}
}
