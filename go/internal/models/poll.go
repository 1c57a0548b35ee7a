package models

import (
	"slices"
	"time"
)

// PollStatus defines the lifecycle state of a poll.
type PollStatus string

const (
	PollStatusActive PollStatus = "active"
	PollStatusClosed PollStatus = "closed"
)

// PollOption is one answer a participant can pick.
type PollOption struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Tally maps option text to the number of ballots cast for it.
type Tally map[string]int

// Total returns the number of ballots counted.
func (t Tally) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// Clone returns an independent copy of t. A nil tally clones to an empty one.
func (t Tally) Clone() Tally {
	out := make(Tally, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Poll is the in-flight question.
type Poll struct {
	ID           string       `json:"id"`
	Question     string       `json:"question"`
	Options      []PollOption `json:"options"`
	TimerSeconds int          `json:"timer_seconds"`
	CreatorName  string       `json:"creator_name"`
	Tally        Tally        `json:"tally"`
	StartedAt    time.Time    `json:"started_at"`
	Deadline     time.Time    `json:"deadline"`
	Status       PollStatus   `json:"status"`
	VoterNames   []string     `json:"voter_names"`

	// Ballots maps each voter to the option text they chose. Kept off the
	// wire so individual answers are not broadcast.
	Ballots map[string]string `json:"-"`
}

// IsActive reports whether the poll still accepts ballots.
func (p *Poll) IsActive() bool {
	return p != nil && p.Status == PollStatusActive
}

// HasBallot reports whether displayName already voted.
func (p *Poll) HasBallot(displayName string) bool {
	_, ok := p.Ballots[displayName]
	return ok
}

// HasOption reports whether text names one of the poll's options.
func (p *Poll) HasOption(text string) bool {
	for _, o := range p.Options {
		if o.Text == text {
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy safe to hand to other goroutines.
func (p *Poll) Snapshot() *Poll {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Options = slices.Clone(p.Options)
	cp.Tally = p.Tally.Clone()
	cp.VoterNames = slices.Clone(p.VoterNames)
	if cp.VoterNames == nil {
		cp.VoterNames = []string{}
	}
	cp.Ballots = make(map[string]string, len(p.Ballots))
	for k, v := range p.Ballots {
		cp.Ballots[k] = v
	}
	return &cp
}
