// Package tally records one ballot per participant per poll and keeps the
// per-option counts of the active poll.
package tally

import (
	"errors"
	"slices"

	"github.com/mcdev12/pollroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoActivePoll is returned when the vote names a poll that is not running
	ErrNoActivePoll = errors.New("no active poll")
	// ErrNotAuthorized is returned when the voter has no live session
	ErrNotAuthorized = errors.New("not allowed to vote")
	// ErrDuplicateVote is returned when the voter already has a ballot in the poll
	ErrDuplicateVote = errors.New("already voted in this poll")
	// ErrUnknownOption is returned when the option is not one of the poll's options
	ErrUnknownOption = errors.New("unknown option")
)

// PollSource defines what the engine needs from the poll lifecycle
type PollSource interface {
	Current() *models.Poll
}

// Roster defines what the engine needs from the session registry
type Roster interface {
	HasDisplayName(displayName string) bool
}

// Participation announces that someone voted
type Participation struct {
	DisplayName string
	OptionText  string
	PollID      string
}

// Result is the outcome of an accepted vote
type Result struct {
	PollID        string
	Tally         models.Tally
	Participation Participation
}

// Engine applies ballots to the current poll.
type Engine struct {
	polls  PollSource
	roster Roster
}

// NewEngine creates a vote tally engine
func NewEngine(polls PollSource, roster Roster) *Engine {
	return &Engine{
		polls:  polls,
		roster: roster,
	}
}

// SubmitVote records displayName's ballot for optionText. Every rejection leaves
// the poll untouched. The returned tally is a copy.
func (e *Engine) SubmitVote(pollID, displayName, optionText string) (*Result, error) {
	p := e.polls.Current()
	if p == nil || p.ID != pollID || !p.IsActive() {
		return nil, ErrNoActivePoll
	}
	if !e.roster.HasDisplayName(displayName) {
		return nil, ErrNotAuthorized
	}
	if p.HasBallot(displayName) {
		return nil, ErrDuplicateVote
	}
	if !p.HasOption(optionText) {
		return nil, ErrUnknownOption
	}

	p.Ballots[displayName] = optionText
	if !slices.Contains(p.VoterNames, displayName) {
		p.VoterNames = append(p.VoterNames, displayName)
	}
	p.Tally[optionText]++

	log.Debug().
		Str("poll_id", p.ID).
		Str("display_name", displayName).
		Str("option", optionText).
		Int("total_votes", p.Tally.Total()).
		Msg("vote recorded")

	return &Result{
		PollID: p.ID,
		Tally:  p.Tally.Clone(),
		Participation: Participation{
			DisplayName: displayName,
			OptionText:  optionText,
			PollID:      p.ID,
		},
	}, nil
}

// RetractBallot removes displayName's ballot from the active poll: the name
// leaves the ballot set and voter list and the chosen option loses one vote.
// It returns the option that was decremented.
func (e *Engine) RetractBallot(displayName string) (string, bool) {
	p := e.polls.Current()
	if !p.IsActive() {
		return "", false
	}
	option, ok := p.Ballots[displayName]
	if !ok {
		return "", false
	}

	delete(p.Ballots, displayName)
	p.VoterNames = slices.DeleteFunc(p.VoterNames, func(name string) bool {
		return name == displayName
	})
	if p.Tally[option] <= 1 {
		delete(p.Tally, option)
	} else {
		p.Tally[option]--
	}

	log.Debug().
		Str("poll_id", p.ID).
		Str("display_name", displayName).
		Str("option", option).
		Msg("ballot retracted")

	return option, true
}
