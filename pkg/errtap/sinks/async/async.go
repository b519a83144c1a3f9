// Package async provides an event writer wrapper with a bounded queue.
// Events are queued and written in the background; oldest events are dropped when full.
package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strongdm/errtap/pkg/errtap"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async writer is closed")

// AsyncSinkOption configures the async writer.
type AsyncSinkOption func(*asyncSinkConfig)

type asyncSinkConfig struct {
	queueSize    int
	pollInterval time.Duration
	onDropped    func(count int)
	onError      func(err error)
}

// WithQueueSize sets the maximum number of queued events (default: 1000).
func WithQueueSize(size int) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithFlushInterval sets how often Flush checks for a drained queue (default: 10ms).
func WithFlushInterval(d time.Duration) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithOnDropped sets a callback invoked when events are dropped due to queue overflow.
func WithOnDropped(fn func(count int)) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.onDropped = fn
	}
}

// WithOnError sets a callback for errors returned by the inner writer.
func WithOnError(fn func(err error)) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.onError = fn
	}
}

// asyncWriter wraps an event writer with a bounded queue.
type asyncWriter struct {
	inner        errtap.EventWriter
	queue        chan errtap.Event
	done         chan struct{}
	pollInterval time.Duration
	onDropped    func(count int)
	onError      func(err error)

	// pending counts events accepted but not yet written or dropped.
	pending atomic.Int64

	closeOnce sync.Once
	closeMu   sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
}

// NewAsyncWriter wraps inner with a bounded queue.
// Write returns immediately; events are written in the background.
// When the queue is full, the oldest event is dropped to make room.
func NewAsyncWriter(inner errtap.EventWriter, opts ...AsyncSinkOption) errtap.EventWriter {
	cfg := &asyncSinkConfig{
		queueSize:    1000,
		pollInterval: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	w := &asyncWriter{
		inner:        inner,
		queue:        make(chan errtap.Event, cfg.queueSize),
		done:         make(chan struct{}),
		pollInterval: cfg.pollInterval,
		onDropped:    cfg.onDropped,
		onError:      cfg.onError,
	}

	w.wg.Add(1)
	go w.processLoop()

	return w
}

// NewAsyncSink is NewAsyncWriter adapted into a Sink.
func NewAsyncSink(inner errtap.EventWriter, opts ...AsyncSinkOption) errtap.Sink {
	return errtap.NewEventSink(NewAsyncWriter(inner, opts...))
}

// processLoop drains the queue and writes to the inner writer.
func (w *asyncWriter) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case event := <-w.queue:
			w.write(event)
		case <-w.done:
			// Drain remaining events
			for {
				select {
				case event := <-w.queue:
					w.write(event)
				default:
					return
				}
			}
		}
	}
}

func (w *asyncWriter) write(event errtap.Event) {
	defer w.pending.Add(-1)
	if err := w.inner.Write(context.Background(), event); err != nil && w.onError != nil {
		w.onError(err)
	}
}

// Write enqueues an event. If the queue is full, the oldest event is dropped.
func (w *asyncWriter) Write(ctx context.Context, event errtap.Event) error {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return ErrClosed
	}

	w.pending.Add(1)
	select {
	case w.queue <- event:
	default:
		w.dropOldestAndEnqueue(event)
	}
	return nil
}

// dropOldestAndEnqueue drops the oldest event and enqueues the new one.
func (w *asyncWriter) dropOldestAndEnqueue(event errtap.Event) {
	select {
	case <-w.queue:
		w.dropped()
	default:
		// emptied by the processor meanwhile
	}

	select {
	case w.queue <- event:
	default:
		// still full, drop the new event
		w.dropped()
	}
}

func (w *asyncWriter) dropped() {
	w.pending.Add(-1)
	if w.onDropped != nil {
		w.onDropped(1)
	}
}

// Flush blocks until every accepted event has been written, then flushes the inner writer.
func (w *asyncWriter) Flush(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for w.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return w.inner.Flush(ctx)
}

// Close stops the processor after draining the queue and closes the inner writer.
func (w *asyncWriter) Close() error {
	w.closeOnce.Do(func() {
		w.closeMu.Lock()
		w.closed = true
		w.closeMu.Unlock()

		close(w.done)
		w.wg.Wait()
	})

	return w.inner.Close()
}
