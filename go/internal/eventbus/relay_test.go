package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/pollroom/go/internal/classroom/events"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []*events.Event
	fail      bool
	closed    bool
}

func (f *fakePublisher) Publish(ctx context.Context, event *events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, event)
	return nil
}

func (f *fakePublisher) Connected() bool { return !f.fail }

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePublisher) snapshot() ([]*events.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*events.Event(nil), f.published...), f.closed
}

func mustEvent(t *testing.T, et events.EventType) *events.Event {
	t.Helper()
	ev, err := events.New(et, events.RejectionPayload{Message: "x"}, time.Now())
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	return ev
}

func TestRelay_PublishesInOrder(t *testing.T) {
	pub := &fakePublisher{}
	counters := NewCounters()
	relay := NewRelay(pub, counters, DefaultRelayConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Run(ctx)
	}()

	first := mustEvent(t, events.EventTypePollCreated)
	second := mustEvent(t, events.EventTypePollResults)
	relay.Broadcast(first)
	relay.Broadcast(second)

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := pub.snapshot()
		if len(got) == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	got, closed := pub.snapshot()
	if len(got) != 2 || got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("expected events in broadcast order, got %v", got)
	}
	if !closed {
		t.Error("publisher should be closed when the relay stops")
	}

	snap := counters.Snapshot()
	if snap["published"] != int64(2) {
		t.Errorf("expected 2 published, got %v", snap["published"])
	}
}

func TestRelay_DropsWhenFull(t *testing.T) {
	pub := &fakePublisher{}
	counters := NewCounters()
	relay := NewRelay(pub, counters, RelayConfig{BufferSize: 1, PublishTimeout: time.Second})

	// Not running, so the second event has nowhere to go.
	relay.Broadcast(mustEvent(t, events.EventTypeChatMessage))
	relay.Broadcast(mustEvent(t, events.EventTypeChatMessage))

	if got := counters.Snapshot()["dropped"]; got != int64(1) {
		t.Errorf("expected 1 dropped event, got %v", got)
	}
	stats := relay.GetStats()
	if stats["queued"] != 1 || stats["connected"] != true {
		t.Errorf("unexpected relay stats: %v", stats)
	}
}

func TestRelay_DrainsOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	relay := NewRelay(pub, nil, RelayConfig{BufferSize: 4, PublishTimeout: time.Second})

	relay.Broadcast(mustEvent(t, events.EventTypePollEnded))
	relay.Broadcast(mustEvent(t, events.EventTypePollEnded))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	relay.Run(ctx)

	if got, _ := pub.snapshot(); len(got) != 2 {
		t.Errorf("expected buffered events to be flushed, got %d", len(got))
	}
}

func TestCounters_RecordsFailures(t *testing.T) {
	counters := NewCounters()
	pub := NewMetricPublisher(&fakePublisher{fail: true}, counters)

	if err := pub.Publish(context.Background(), mustEvent(t, events.EventTypePollCreated)); err == nil {
		t.Fatal("expected publish error")
	}

	snap := counters.Snapshot()
	if snap["failed"] != int64(1) || snap["published"] != int64(0) {
		t.Errorf("unexpected counters: %v", snap)
	}
}

func TestJetStreamConfig_Subject(t *testing.T) {
	cfg := DefaultJetStreamConfig()
	if got := cfg.Subject(events.EventTypePollEnded); got != "classroom.events.pollEnded" {
		t.Errorf("unexpected subject %q", got)
	}
}
