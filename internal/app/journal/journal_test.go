package journal

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu      sync.Mutex
	entries []Entry
	batches int
	fail    bool
}

func (s *memorySink) Write(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches++
	if s.fail {
		return errors.New("sink down")
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *memorySink) kinds() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()

	kinds := make([]Kind, 0, len(s.entries))
	for _, e := range s.entries {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestRecorderFlushesOnClose(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink)

	at := time.Unix(1700000000, 0).UTC()
	r.Record(NewEntry(KindJoin, "user-1", "", map[string]string{"name": "Ada"}, at))
	r.Record(NewEntry(KindTaskCreate, "user-1", "task-1", nil, at))
	r.Close()

	assert.Equal(t, []Kind{KindJoin, KindTaskCreate}, sink.kinds())
	assert.JSONEq(t, `{"name":"Ada"}`, string(sink.entries[0].Detail))
	assert.JSONEq(t, `{}`, string(sink.entries[1].Detail))
}

func TestRecorderFlushesOnInterval(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink)
	defer r.Close()

	r.Record(NewEntry(KindMessage, "user-1", "msg-1", nil, time.Now()))

	require.Eventually(t, func() bool {
		return len(sink.kinds()) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRecorderIgnoresAfterCloseAndSurvivesSinkErrors(t *testing.T) {
	sink := &memorySink{fail: true}
	r := NewRecorder(sink)

	r.Record(NewEntry(KindStatus, "user-1", "", nil, time.Now()))
	r.Close()
	r.Close()
	r.Record(NewEntry(KindStatus, "user-1", "", nil, time.Now()))

	assert.Empty(t, sink.kinds())
	assert.Equal(t, 1, sink.batches)
}

func TestDiscardIsJournal(t *testing.T) {
	var j Journal = Discard{}
	j.Record(Entry{Kind: KindJoin})
	j.Close()
}

func TestRecorderLogsUnderJournalComponent(t *testing.T) {
	r := NewRecorder(&memorySink{})
	t.Cleanup(r.Close)

	var buf bytes.Buffer
	logger := r.logger.Output(&buf)
	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"journal"`)
}
