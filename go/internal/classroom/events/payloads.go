package events

import (
	"time"

	"github.com/mcdev12/pollroom/go/internal/models"
)

// JoinConfirmedPayload answers a join request
type JoinConfirmedPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PollCreatedPayload carries the full poll snapshot
type PollCreatedPayload struct {
	Poll *models.Poll `json:"poll"`
}

// PollResultsPayload carries the live tally of the active poll
type PollResultsPayload struct {
	PollID     string       `json:"poll_id"`
	Tally      models.Tally `json:"tally"`
	TotalVotes int          `json:"total_votes"`
}

// PollEndedPayload is sent once when a poll closes
type PollEndedPayload struct {
	PollID       string              `json:"poll_id"`
	FinalTally   models.Tally        `json:"final_tally"`
	HistoryEntry models.HistoryEntry `json:"history_entry"`
}

// ParticipantsUpdatePayload lists the display names currently present
type ParticipantsUpdatePayload struct {
	Participants []string `json:"participants"`
}

// ParticipationNoticePayload announces that someone voted
type ParticipationNoticePayload struct {
	DisplayName string `json:"display_name"`
	OptionText  string `json:"option_text"`
	PollID      string `json:"poll_id"`
}

// RejectionPayload explains why a vote or poll was refused
type RejectionPayload struct {
	Message string `json:"message"`
}

// ForcedDisconnectPayload tells a connection it is about to be closed
type ForcedDisconnectPayload struct {
	Reason string `json:"reason"`
}

// ParticipantKickedPayload announces a kick to everyone
type ParticipantKickedPayload struct {
	DisplayName string `json:"display_name"`
}

// ChatRelayPayload is a chat message as relayed to all parties
type ChatRelayPayload struct {
	DisplayName string    `json:"display_name"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sent_at"`
}
