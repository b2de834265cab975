/*
Package journal records every applied workspace mutation to an append-only activity log.

The journal is a write-only audit trail: the workspace never reads it back and boots from its
seed regardless. Recording never blocks the caller; entries are queued and flushed in batches
by a background worker, and a full queue drops entries with a warning.
*/
package journal

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"teamsync/internal/pkg/logx"
)

// Kind names the mutation an entry records.
type Kind string

const (
	KindJoin       Kind = "user.join"
	KindStatus     Kind = "user.status"
	KindDisconnect Kind = "user.disconnect"
	KindTaskCreate Kind = "task.create"
	KindTaskUpdate Kind = "task.update"
	KindTaskMove   Kind = "task.move"
	KindMessage    Kind = "message.send"
)

const (
	queueSize     = 1024
	maxBatchSize  = 128
	flushInterval = 500 * time.Millisecond
	writeTimeout  = 5 * time.Second
)

// Entry is one journaled mutation.
type Entry struct {
	Kind      Kind
	UserID    string
	SubjectID string
	Detail    json.RawMessage
	At        time.Time
}

// NewEntry builds an entry, encoding detail as JSON. Encoding failures leave Detail empty.
func NewEntry(kind Kind, userID, subjectID string, detail any, at time.Time) Entry {
	raw, err := json.Marshal(detail)
	if err != nil || detail == nil {
		raw = json.RawMessage("{}")
	}

	return Entry{
		Kind:      kind,
		UserID:    userID,
		SubjectID: subjectID,
		Detail:    raw,
		At:        at,
	}
}

// Journal accepts entries without blocking.
type Journal interface {
	Record(entry Entry)
	Close()
}

// Sink persists a batch of entries.
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
}

// Discard is a Journal that drops every entry.
type Discard struct{}

func (Discard) Record(Entry) {}
func (Discard) Close()       {}

// Recorder queues entries and flushes them to a Sink from a single worker goroutine.
type Recorder struct {
	sink    Sink
	queue   chan Entry
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	logger  zerolog.Logger
}

// NewRecorder starts a recorder writing to sink.
func NewRecorder(sink Sink) *Recorder {
	r := &Recorder{
		sink:   sink,
		queue:  make(chan Entry, queueSize),
		done:   make(chan struct{}),
		logger: logx.Component("journal"),
	}

	go r.run()

	return r
}

// Record enqueues entry. It never blocks; entries are dropped when the queue is full or the
// recorder is closed.
func (r *Recorder) Record(entry Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	select {
	case r.queue <- entry:
	default:
		r.logger.Warn().
			Str("kind", string(entry.Kind)).
			Int64("dropped_total", r.dropped.Add(1)).
			Int("queue_len", len(r.queue)).
			Msg("Journal queue full, dropping entry.")
	}
}

// Close flushes queued entries and stops the worker.
func (r *Recorder) Close() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()

		<-r.done
	})
}

func (r *Recorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, maxBatchSize)

	for {
		select {
		case entry, ok := <-r.queue:
			if !ok {
				r.flush(batch)
				r.logger.Info().Msg("Journal worker stopped.")
				return
			}

			batch = append(batch, entry)
			if len(batch) >= maxBatchSize {
				r.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *Recorder) flush(batch []Entry) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.sink.Write(ctx, batch); err != nil {
		r.logger.Error().Err(err).Int("entries", len(batch)).Msg("Failed to write journal batch.")
		return
	}

	r.logger.Debug().Int("entries", len(batch)).Msg("Journal batch written.")
}
