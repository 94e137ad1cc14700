// Package history persists completed hands away from the table goroutine.
//
// An AsyncRecorder implements game.Recorder. Tables hand it records without
// blocking; a single writer goroutine passes them to every configured Sink.
// Sink failures are logged and counted but never reach the table.
package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/pokertable/internal/game"
)

// DefaultBuffer is the number of records queued before new ones are dropped.
const DefaultBuffer = 256

// Sink stores hand records.
type Sink interface {
	Write(ctx context.Context, rec game.HandRecord) error
	Close() error
}

// Stats counts what happened to recorded hands.
type Stats struct {
	Written int64
	Dropped int64
	Failed  int64
}

// AsyncRecorder queues hand records for a background writer.
type AsyncRecorder struct {
	logger       zerolog.Logger
	sinks        []Sink
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan game.HandRecord
	done   chan struct{}

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// RecorderOption configures an AsyncRecorder.
type RecorderOption func(*AsyncRecorder)

// WithBuffer sets the queue size.
func WithBuffer(n int) RecorderOption {
	return func(r *AsyncRecorder) {
		if n > 0 {
			r.queue = make(chan game.HandRecord, n)
		}
	}
}

// WithWriteTimeout bounds each sink write.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *AsyncRecorder) {
		r.writeTimeout = d
	}
}

// NewAsyncRecorder starts the writer goroutine. Call Close to flush and stop it.
func NewAsyncRecorder(logger zerolog.Logger, sinks []Sink, opts ...RecorderOption) *AsyncRecorder {
	r := &AsyncRecorder{
		logger:       logger.With().Str("component", "history").Logger(),
		sinks:        sinks,
		writeTimeout: 5 * time.Second,
		queue:        make(chan game.HandRecord, DefaultBuffer),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Record queues rec. It never blocks: when the queue is full or the recorder
// is closed the record is dropped.
func (r *AsyncRecorder) Record(rec game.HandRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.queue <- rec:
	default:
		r.dropped.Add(1)
		r.logger.Warn().
			Str("table_id", rec.TableID).
			Int("hand", rec.HandNumber).
			Msg("History queue full, dropping hand")
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		r.write(rec)
	}
}

func (r *AsyncRecorder) write(rec game.HandRecord) {
	ok := true
	for _, sink := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		err := sink.Write(ctx, rec)
		cancel()
		if err != nil {
			ok = false
			r.logger.Error().
				Err(err).
				Str("table_id", rec.TableID).
				Str("hand_id", rec.HandID).
				Int("hand", rec.HandNumber).
				Msg("Failed to persist hand")
		}
	}
	if ok {
		r.written.Add(1)
	} else {
		r.failed.Add(1)
	}
}

// Close drains the queue, waits for the writer and closes every sink.
func (r *AsyncRecorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done

	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats returns the counters so far.
func (r *AsyncRecorder) Stats() Stats {
	return Stats{
		Written: r.written.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
	}
}

var _ game.Recorder = (*AsyncRecorder)(nil)
