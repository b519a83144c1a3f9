// Package noop provides a sink that accepts every capture and keeps nothing.
//
// Pairing it with a monitor keeps interception and classification running
// (debug echo included) while nothing leaves the process.
package noop

import (
	"context"

	"github.com/strongdm/errtap/pkg/errtap"
)

type noopSink struct{}

// NewNoopSink returns a sink that discards everything.
func NewNoopSink() errtap.Sink { return noopSink{} }

func (noopSink) Init(errtap.SinkConfig) error { return nil }
func (noopSink) CaptureMessage(string, errtap.Severity) {}
func (noopSink) CaptureException(error) {}
func (noopSink) Flush(context.Context) error { return nil }
func (noopSink) Close() error { return nil }
