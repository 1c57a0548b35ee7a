package models

import (
	"slices"
	"time"
)

// HistoryEntry is the immutable record of a closed poll.
type HistoryEntry struct {
	ID           string       `json:"id"`
	Question     string       `json:"question"`
	Options      []PollOption `json:"options"`
	TimerSeconds int          `json:"timer_seconds"`
	CreatorName  string       `json:"creator_name"`
	FinalTally   Tally        `json:"final_tally"`
	VoterNames   []string     `json:"voter_names"`
	TotalVotes   int          `json:"total_votes"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      time.Time    `json:"ended_at"`
}

// NewHistoryEntry snapshots p as it stands at endedAt.
func NewHistoryEntry(p *Poll, endedAt time.Time) HistoryEntry {
	voters := slices.Clone(p.VoterNames)
	if voters == nil {
		voters = []string{}
	}
	return HistoryEntry{
		ID:           p.ID,
		Question:     p.Question,
		Options:      slices.Clone(p.Options),
		TimerSeconds: p.TimerSeconds,
		CreatorName:  p.CreatorName,
		FinalTally:   p.Tally.Clone(),
		VoterNames:   voters,
		TotalVotes:   p.Tally.Total(),
		StartedAt:    p.StartedAt,
		EndedAt:      endedAt,
	}
}

// Clone returns a copy of e that shares no maps or slices with it.
func (e HistoryEntry) Clone() HistoryEntry {
	e.Options = slices.Clone(e.Options)
	e.FinalTally = e.FinalTally.Clone()
	e.VoterNames = slices.Clone(e.VoterNames)
	return e
}
