// Package poll owns the classroom's single current-poll slot, the archive of
// closed polls, and the expiry timer that closes a poll when its time runs out.
package poll

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pollroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// CreateRequest carries what a moderator submits to start a poll
type CreateRequest struct {
	Question     string
	Options      []models.PollOption
	TimerSeconds int
	CreatorName  string
}

// Closed is the outcome of closing a poll
type Closed struct {
	Poll  *models.Poll
	Entry models.HistoryEntry
}

// ExpiryFunc is called from the timer's goroutine when a poll's deadline passes.
// Implementations must only hand the id back to the owning loop.
type ExpiryFunc func(pollID string)

// Manager drives the poll lifecycle: none -> active -> closed -> archived.
//
// Manager is not safe for concurrent use; the room's run loop owns it. The expiry
// callback is the only thing that runs elsewhere, and it only reports the poll id.
type Manager struct {
	clock    clockwork.Clock
	current  *models.Poll
	archive  *Archive
	timer    clockwork.Timer
	onExpire ExpiryFunc
}

// NewManager creates a poll manager with an empty slot and archive
func NewManager(clock clockwork.Clock, onExpire ExpiryFunc) *Manager {
	return &Manager{
		clock:    clock,
		archive:  NewArchive(HistoryLimit),
		onExpire: onExpire,
	}
}

// Create starts a new poll and schedules its expiry.
func (m *Manager) Create(req CreateRequest) (*models.Poll, error) {
	if m.current != nil {
		return nil, ErrPollAlreadyActive
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Option ids are positional; client-supplied ids are not trusted.
	options := make([]models.PollOption, len(req.Options))
	for i, o := range req.Options {
		o.ID = i + 1
		options[i] = o
	}

	now := m.clock.Now()
	duration := time.Duration(req.TimerSeconds) * time.Second
	p := &models.Poll{
		ID:           uuid.New().String(),
		Question:     req.Question,
		Options:      options,
		TimerSeconds: req.TimerSeconds,
		CreatorName:  req.CreatorName,
		Tally:        models.Tally{},
		StartedAt:    now,
		Deadline:     now.Add(duration),
		Status:       models.PollStatusActive,
		VoterNames:   []string{},
		Ballots:      make(map[string]string),
	}
	m.current = p
	m.scheduleExpiry(p.ID, duration)

	log.Info().
		Str("poll_id", p.ID).
		Str("creator", p.CreatorName).
		Int("options", len(p.Options)).
		Time("deadline", p.Deadline).
		Msg("poll created")

	return p, nil
}

// Close transitions the poll with pollID to closed and archives it. It returns
// false when pollID is not the active poll, which absorbs stale timer fires and
// races between expiry and manual closure.
func (m *Manager) Close(pollID string) (*Closed, bool) {
	p := m.current
	if p == nil || p.ID != pollID || !p.IsActive() {
		log.Debug().Str("poll_id", pollID).Msg("close ignored - not the active poll")
		return nil, false
	}

	m.cancelTimer()
	p.Status = models.PollStatusClosed
	entry := models.NewHistoryEntry(p, m.clock.Now())
	m.archive.Append(entry)
	m.current = nil

	log.Info().
		Str("poll_id", p.ID).
		Int("total_votes", entry.TotalVotes).
		Int("archived", m.archive.Len()).
		Msg("poll closed")

	return &Closed{Poll: p, Entry: entry}, true
}

// Current returns the active poll, or nil.
func (m *Manager) Current() *models.Poll {
	return m.current
}

// History returns the archived polls, oldest first.
func (m *Manager) History() []models.HistoryEntry {
	return m.archive.Entries()
}

// Stop cancels any pending expiry timer. Used on shutdown.
func (m *Manager) Stop() {
	m.cancelTimer()
}

// scheduleExpiry arms the one-shot timer for pollID. Creation is blocked while a
// poll is active, so at most one timer is ever live.
func (m *Manager) scheduleExpiry(pollID string, d time.Duration) {
	m.cancelTimer()
	m.timer = m.clock.AfterFunc(d, func() {
		log.Debug().Str("poll_id", pollID).Msg("poll timer fired")
		if m.onExpire != nil {
			m.onExpire(pollID)
		}
	})

	log.Debug().
		Str("poll_id", pollID).
		Dur("duration", d).
		Msg("scheduled poll expiry")
}

func (m *Manager) cancelTimer() {
	if m.timer == nil {
		return
	}
	stopAndDrainTimer(m.timer)
	m.timer = nil
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

func validateCreateRequest(req CreateRequest) error {
	if strings.TrimSpace(req.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(req.Options) == 0 {
		return ErrNoOptions
	}
	if req.TimerSeconds <= 0 {
		return ErrInvalidTimer
	}
	return nil
}
