// Package multi provides a sink that fans out to several sinks.
//
// Every sink sees every capture. A failing or panicking sink never keeps
// the others from running; Init, Flush and Close errors are joined.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/errtap/pkg/errtap"
)

type multiSink struct {
	sinks []errtap.Sink
}

// NewMultiSink returns a sink forwarding to each of sinks in order.
// Nil entries are skipped.
func NewMultiSink(sinks ...errtap.Sink) errtap.Sink {
	m := &multiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// joinAll runs fn on every sink and joins the errors.
func (m *multiSink) joinAll(fn func(errtap.Sink) error) error {
	var errs []error
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// each runs fn on every sink, containing panics per sink.
func (m *multiSink) each(fn func(errtap.Sink)) {
	for _, s := range m.sinks {
		func() {
			defer func() { _ = recover() }()
			fn(s)
		}()
	}
}

func (m *multiSink) Init(cfg errtap.SinkConfig) error {
	return m.joinAll(func(s errtap.Sink) error { return s.Init(cfg) })
}

func (m *multiSink) CaptureMessage(message string, level errtap.Severity) {
	m.each(func(s errtap.Sink) { s.CaptureMessage(message, level) })
}

func (m *multiSink) CaptureException(err error) {
	m.each(func(s errtap.Sink) { s.CaptureException(err) })
}

func (m *multiSink) Flush(ctx context.Context) error {
	return m.joinAll(func(s errtap.Sink) error { return s.Flush(ctx) })
}

func (m *multiSink) Close() error {
	return m.joinAll(func(s errtap.Sink) error { return s.Close() })
}
