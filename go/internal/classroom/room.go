// Package classroom runs the live poll session. A Room owns all shared state
// (session registry, current poll, archive) and applies every client message and
// timer expiry one at a time from a single queue, so no two mutations interleave.
package classroom

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pollroom/go/internal/classroom/events"
	"github.com/mcdev12/pollroom/go/internal/classroom/moderation"
	"github.com/mcdev12/pollroom/go/internal/classroom/poll"
	"github.com/mcdev12/pollroom/go/internal/classroom/session"
	"github.com/mcdev12/pollroom/go/internal/classroom/tally"
	"github.com/mcdev12/pollroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrRoomClosed is returned when a command arrives after the run loop stopped
var ErrRoomClosed = errors.New("room is closed")

// Transport delivers events to connected parties
type Transport interface {
	Broadcast(event *events.Event)
	SendTo(connectionID string, event *events.Event)
	Close(connectionID string)
}

// Mirror receives a copy of every broadcast, e.g. to publish it elsewhere
type Mirror interface {
	Broadcast(event *events.Event)
}

// Option configures a Room
type Option func(*Room)

// WithClock replaces the real clock, mainly for tests
func WithClock(clock clockwork.Clock) Option {
	return func(r *Room) { r.clock = clock }
}

// WithMirror adds a sink that sees every broadcast
func WithMirror(m Mirror) Option {
	return func(r *Room) { r.mirrors = append(r.mirrors, m) }
}

// WithQueueSize sets the command queue buffer
func WithQueueSize(n int) Option {
	return func(r *Room) { r.queueSize = n }
}

// Room is the classroom's single logical actor.
type Room struct {
	clock      clockwork.Clock
	registry   *session.Registry
	polls      *poll.Manager
	tally      *tally.Engine
	moderation *moderation.Controller
	transport  Transport
	mirrors    []Mirror

	queueSize int
	commands  chan command
	done      chan struct{}
}

// NewRoom creates a room with empty state. Call Run to start processing.
func NewRoom(transport Transport, opts ...Option) *Room {
	r := &Room{
		clock:     clockwork.NewRealClock(),
		transport: transport,
		queueSize: 256,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.commands = make(chan command, r.queueSize)
	r.registry = session.NewRegistry(r.clock)
	r.polls = poll.NewManager(r.clock, r.onPollExpired)
	r.tally = tally.NewEngine(r.polls, r.registry)
	r.moderation = moderation.NewController(r.registry, r.tally, disconnector{room: r})
	return r
}

// Run processes commands until ctx is cancelled.
func (r *Room) Run(ctx context.Context) error {
	log.Info().Int("queue_size", r.queueSize).Msg("classroom room started")
	defer func() {
		r.polls.Stop()
		close(r.done)
		log.Info().Msg("classroom room stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-r.commands:
			cmd.execute(r)
		}
	}
}

// HandleMessage decodes a raw client frame and queues it for connectionID.
// A frame of a known type whose data does not decode still earns the sender
// the matching rejection notice; the decode error is returned either way.
func (r *Room) HandleMessage(ctx context.Context, connectionID string, raw []byte) error {
	payload, err := events.DecodeClientMessage(raw)
	if err != nil {
		var decodeErr *events.DecodeError
		if errors.As(err, &decodeErr) {
			if qerr := r.enqueue(ctx, rejectCommand{connectionID: connectionID, messageType: decodeErr.Type}); qerr != nil {
				return errors.Join(err, qerr)
			}
		}
		return err
	}
	return r.Dispatch(ctx, connectionID, payload)
}

// Dispatch queues an already-decoded client payload for connectionID.
func (r *Room) Dispatch(ctx context.Context, connectionID string, payload interface{}) error {
	return r.enqueue(ctx, clientCommand{connectionID: connectionID, payload: payload})
}

// Disconnected queues the removal of connectionID's session.
func (r *Room) Disconnected(ctx context.Context, connectionID string) error {
	return r.enqueue(ctx, disconnectCommand{connectionID: connectionID})
}

// History returns the archived polls, oldest first.
func (r *Room) History(ctx context.Context) ([]models.HistoryEntry, error) {
	var out []models.HistoryEntry
	err := r.query(ctx, func() {
		out = r.polls.History()
	})
	return out, err
}

// CurrentPoll returns a snapshot of the active poll, or nil.
func (r *Room) CurrentPoll(ctx context.Context) (*models.Poll, error) {
	var out *models.Poll
	err := r.query(ctx, func() {
		out = r.polls.Current().Snapshot()
	})
	return out, err
}

// Participants returns the de-duplicated display names currently present.
func (r *Room) Participants(ctx context.Context) ([]string, error) {
	var out []string
	err := r.query(ctx, func() {
		out = r.registry.ListDisplayNames()
	})
	return out, err
}

func (r *Room) enqueue(ctx context.Context, cmd command) error {
	// Checked first: once Run has exited the buffer may still have room.
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}
	select {
	case r.commands <- cmd:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return fmt.Errorf("enqueue command: %w", ctx.Err())
	}
}

// query runs fn on the run loop and waits for it. Because the queue is FIFO,
// fn observes every command queued before it.
func (r *Room) query(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := r.enqueue(ctx, queryCommand{fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onPollExpired runs on the timer's goroutine; it only queues the expiry.
func (r *Room) onPollExpired(pollID string) {
	if err := r.enqueue(context.Background(), expireCommand{pollID: pollID}); err != nil {
		log.Debug().Err(err).Str("poll_id", pollID).Msg("dropping poll expiry")
	}
}

// disconnector tells a kicked connection why before closing it.
type disconnector struct {
	room *Room
}

func (d disconnector) ForceDisconnect(connectionID string) {
	d.room.reply(connectionID, events.EventTypeForcedDisconnect, events.ForcedDisconnectPayload{
		Reason: "You have been removed from the session by the teacher.",
	})
	d.room.transport.Close(connectionID)
}
