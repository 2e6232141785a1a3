// Package logging provides the non-blocking structured log path for the
// tick loop: records go through a bounded queue and are dropped, counted,
// when the queue is full. The tick goroutine never waits on log I/O.
package logging

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// AsyncHandler is a slog.Handler that hands records to a background
// goroutine over a fixed-capacity channel. Overflow drops the record and
// increments Dropped.
type AsyncHandler struct {
	inner   slog.Handler
	queue   chan queuedRecord
	dropped atomic.Uint64
	closed  atomic.Bool

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

type queuedRecord struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// NewAsyncHandler wraps inner with a queue of the given size. Size below 1
// falls back to 1.
func NewAsyncHandler(inner slog.Handler, size int) *AsyncHandler {
	if size < 1 {
		size = 1
	}
	h := &AsyncHandler{
		inner: inner,
		queue: make(chan queuedRecord, size),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go h.drain()
	return h
}

func (h *AsyncHandler) drain() {
	defer close(h.done)
	for {
		select {
		case q := <-h.queue:
			// A failed write is not the tick loop's problem.
			_ = q.handler.Handle(q.ctx, q.record)
		case <-h.stop:
			// Flush whatever is still buffered, then exit.
			for {
				select {
				case q := <-h.queue:
					_ = q.handler.Handle(q.ctx, q.record)
				default:
					return
				}
			}
		}
	}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.closed.Load() {
		h.dropped.Add(1)
		return nil
	}
	select {
	case h.queue <- queuedRecord{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: h.inner}:
	default:
		h.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derivedHandler{parent: h, inner: h.inner.WithAttrs(attrs)}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &derivedHandler{parent: h, inner: h.inner.WithGroup(name)}
}

// Dropped reports how many records were discarded on overflow.
func (h *AsyncHandler) Dropped() uint64 {
	return h.dropped.Load()
}

// Close flushes queued records and stops the drain goroutine. Further
// Handle calls count as drops.
func (h *AsyncHandler) Close() {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		close(h.stop)
	})
	<-h.done
}

// derivedHandler routes WithAttrs/WithGroup children through the parent's
// queue so all records share one drain goroutine and drop counter.
type derivedHandler struct {
	parent *AsyncHandler
	inner  slog.Handler
}

func (d *derivedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return d.inner.Enabled(ctx, level)
}

func (d *derivedHandler) Handle(ctx context.Context, r slog.Record) error {
	if d.parent.closed.Load() {
		d.parent.dropped.Add(1)
		return nil
	}
	select {
	case d.parent.queue <- queuedRecord{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: d.inner}:
	default:
		d.parent.dropped.Add(1)
	}
	return nil
}

func (d *derivedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derivedHandler{parent: d.parent, inner: d.inner.WithAttrs(attrs)}
}

func (d *derivedHandler) WithGroup(name string) slog.Handler {
	return &derivedHandler{parent: d.parent, inner: d.inner.WithGroup(name)}
}
