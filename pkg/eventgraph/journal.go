package eventgraph

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultJournalBuffer is how many unprocessed events the journal holds
// before the bus starts dropping them.
const DefaultJournalBuffer = 256

// Journal seals events from the bus into a hash chain and appends each one
// to every sink. Sink failures are logged and otherwise ignored.
type Journal struct {
	bus      *Bus
	ch       chan *Event
	sinks    []Sink
	log      *slog.Logger
	prevHash string
}

// NewJournal subscribes to bus immediately so no event published after this
// call is missed, even before Run starts.
func NewJournal(bus *Bus, logger *slog.Logger, sinks ...Sink) *Journal {
	return &Journal{
		bus:   bus,
		ch:    bus.Subscribe(DefaultJournalBuffer),
		sinks: sinks,
		log:   logger,
	}
}

// Run processes events until ctx is cancelled. Events still buffered at that
// point are flushed before Run returns.
func (j *Journal) Run(ctx context.Context) {
	defer j.bus.Unsubscribe(j.ch)
	for {
		select {
		case <-ctx.Done():
			j.drain(context.WithoutCancel(ctx))
			return
		case e := <-j.ch:
			j.record(ctx, e)
		}
	}
}

func (j *Journal) drain(ctx context.Context) {
	for {
		select {
		case e := <-j.ch:
			j.record(ctx, e)
		default:
			return
		}
	}
}

func (j *Journal) record(ctx context.Context, published *Event) {
	e := *published
	if err := e.seal(j.prevHash); err != nil {
		j.log.Error("journal: seal event", "id", e.ID, "type", e.Type, "error", err)
		return
	}
	j.prevHash = e.Hash

	for _, s := range j.sinks {
		if err := s.Append(ctx, &e); err != nil {
			j.log.Warn("journal: append failed",
				"id", e.ID,
				"type", e.Type,
				"task_id", e.TaskID,
				"error", err)
		}
	}
}

// MemSink keeps every appended event in memory.
type MemSink struct {
	mu     sync.Mutex
	events []Event
}

// Append stores a copy of e.
func (m *MemSink) Append(_ context.Context, e *Event) error {
	m.mu.Lock()
	m.events = append(m.events, *e)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of everything appended so far.
func (m *MemSink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
