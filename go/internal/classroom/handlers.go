package classroom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/pollroom/go/internal/classroom/events"
	"github.com/mcdev12/pollroom/go/internal/classroom/poll"
	"github.com/mcdev12/pollroom/go/internal/classroom/tally"
	"github.com/mcdev12/pollroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	msgInvalidJoin       = "Invalid join payload"
	msgPollAlreadyActive = "A poll is already active. Please wait for it to complete."
	msgTeacherOnly       = "Only a teacher can create polls."
	msgNotAuthorized     = "You are not allowed to vote."
	msgDuplicateVote     = "You have already submitted an answer for this poll."
	msgUnknownOption     = "Unknown option."
	msgInvalidPoll       = "Invalid poll payload"
	msgInvalidVote       = "Invalid vote payload"
)

func (r *Room) handleJoin(connID string, p *events.JoinPayload) {
	s, err := r.registry.Join(connID, p.DisplayName, p.Role)
	if err != nil {
		log.Debug().Err(err).Str("connection_id", connID).Msg("join rejected")
		r.reply(connID, events.EventTypeJoinConfirmed, events.JoinConfirmedPayload{
			Success: false,
			Message: msgInvalidJoin,
		})
		return
	}

	log.Info().
		Str("connection_id", connID).
		Str("display_name", s.DisplayName).
		Str("role", string(s.Role)).
		Msg("session joined")

	r.reply(connID, events.EventTypeJoinConfirmed, events.JoinConfirmedPayload{
		Success: true,
		Message: fmt.Sprintf("%s joined the session", s.Role),
	})

	// Late-joining students catch up on the running poll.
	if current := r.polls.Current(); s.Role == models.RoleStudent && current.IsActive() {
		r.reply(connID, events.EventTypePollCreated, events.PollCreatedPayload{Poll: current.Snapshot()})
		r.reply(connID, events.EventTypePollResults, resultsPayload(current.ID, current.Tally))
	}

	r.broadcastParticipants()
}

func (r *Room) handleJoinChat(connID string) {
	r.reply(connID, events.EventTypeParticipantsUpdate, events.ParticipantsUpdatePayload{
		Participants: r.registry.ListDisplayNames(),
	})
}

func (r *Room) handleCreatePoll(connID string, p *events.CreatePollPayload) {
	requester, ok := r.registry.Find(connID)
	if !ok || !requester.IsModerator() {
		r.reply(connID, events.EventTypePollRejected, events.RejectionPayload{Message: msgTeacherOnly})
		return
	}

	creator := p.CreatorName
	if strings.TrimSpace(creator) == "" {
		creator = requester.DisplayName
	}

	created, err := r.polls.Create(poll.CreateRequest{
		Question:     p.Question,
		Options:      p.Options,
		TimerSeconds: p.TimerSeconds,
		CreatorName:  creator,
	})
	if err != nil {
		msg := err.Error()
		if errors.Is(err, poll.ErrPollAlreadyActive) {
			msg = msgPollAlreadyActive
		}
		log.Debug().Err(err).Str("connection_id", connID).Msg("poll rejected")
		r.reply(connID, events.EventTypePollRejected, events.RejectionPayload{Message: msg})
		return
	}

	r.broadcast(events.EventTypePollCreated, events.PollCreatedPayload{Poll: created.Snapshot()})
}

func (r *Room) handleSubmitVote(connID string, p *events.SubmitVotePayload) {
	res, err := r.tally.SubmitVote(p.PollID, p.DisplayName, p.OptionText)
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, tally.ErrNoActivePoll):
			// Late votes after expiry are expected; nothing to tell the voter.
			log.Debug().
				Str("connection_id", connID).
				Str("poll_id", p.PollID).
				Msg("vote for inactive poll ignored")
			return
		case errors.Is(err, tally.ErrNotAuthorized):
			msg = msgNotAuthorized
		case errors.Is(err, tally.ErrDuplicateVote):
			msg = msgDuplicateVote
		case errors.Is(err, tally.ErrUnknownOption):
			msg = msgUnknownOption
		default:
			msg = err.Error()
		}
		r.reply(connID, events.EventTypeVoteRejected, events.RejectionPayload{Message: msg})
		return
	}

	r.broadcast(events.EventTypePollResults, resultsPayload(res.PollID, res.Tally))
	r.broadcast(events.EventTypeParticipationNotice, events.ParticipationNoticePayload{
		DisplayName: res.Participation.DisplayName,
		OptionText:  res.Participation.OptionText,
		PollID:      res.Participation.PollID,
	})
}

func (r *Room) handleKick(connID string, p *events.KickPayload) {
	out, err := r.moderation.Kick(connID, p.DisplayName)
	if err != nil {
		log.Debug().Err(err).Str("connection_id", connID).Msg("kick dropped")
		return
	}

	r.broadcast(events.EventTypeParticipantKicked, events.ParticipantKickedPayload{DisplayName: out.Target})
	r.broadcastParticipants()
	if current := r.polls.Current(); current.IsActive() {
		r.broadcast(events.EventTypePollResults, resultsPayload(current.ID, current.Tally))
	}
}

func (r *Room) handleChatMessage(connID string, p *events.ChatMessagePayload) {
	if p.DisplayName == "" || strings.TrimSpace(p.Text) == "" {
		log.Debug().Str("connection_id", connID).Msg("empty chat message dropped")
		return
	}
	r.broadcast(events.EventTypeChatMessage, events.ChatRelayPayload{
		DisplayName: p.DisplayName,
		Text:        p.Text,
		SentAt:      r.clock.Now().UTC(),
	})
}

func (r *Room) handleEndPoll(connID string, p *events.EndPollPayload) {
	requester, ok := r.registry.Find(connID)
	if !ok || !requester.IsModerator() {
		log.Debug().Str("connection_id", connID).Msg("end poll dropped - not a moderator")
		return
	}

	pollID := p.PollID
	if pollID == "" {
		if current := r.polls.Current(); current != nil {
			pollID = current.ID
		}
	}
	r.closePoll(pollID)
}

// handleUndecodable sends the rejection that matches the intent of a frame
// whose data failed to decode. Intents without a rejection event are dropped.
func (r *Room) handleUndecodable(connID string, mt events.MessageType) {
	switch mt {
	case events.MessageTypeJoin:
		r.reply(connID, events.EventTypeJoinConfirmed, events.JoinConfirmedPayload{
			Success: false,
			Message: msgInvalidJoin,
		})
	case events.MessageTypeCreatePoll:
		r.reply(connID, events.EventTypePollRejected, events.RejectionPayload{Message: msgInvalidPoll})
	case events.MessageTypeSubmitVote:
		r.reply(connID, events.EventTypeVoteRejected, events.RejectionPayload{Message: msgInvalidVote})
	default:
		log.Debug().
			Str("connection_id", connID).
			Str("message_type", string(mt)).
			Msg("dropping undecodable client message")
	}
}

func (r *Room) handleDisconnect(connID string) {
	s, removed := r.registry.Leave(connID)
	if !removed {
		return
	}
	log.Info().
		Str("connection_id", connID).
		Str("display_name", s.DisplayName).
		Msg("session left")
	r.broadcastParticipants()
}

func (r *Room) handleExpire(pollID string) {
	r.closePoll(pollID)
}

func (r *Room) closePoll(pollID string) {
	closed, ok := r.polls.Close(pollID)
	if !ok {
		return
	}
	r.broadcast(events.EventTypePollEnded, events.PollEndedPayload{
		PollID:       closed.Poll.ID,
		FinalTally:   closed.Entry.FinalTally.Clone(),
		HistoryEntry: closed.Entry,
	})
}

func (r *Room) broadcastParticipants() {
	r.broadcast(events.EventTypeParticipantsUpdate, events.ParticipantsUpdatePayload{
		Participants: r.registry.ListDisplayNames(),
	})
}

func (r *Room) broadcast(eventType events.EventType, payload interface{}) {
	ev, err := events.New(eventType, payload, r.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build broadcast event")
		return
	}
	r.transport.Broadcast(ev)
	for _, m := range r.mirrors {
		m.Broadcast(ev)
	}
}

func (r *Room) reply(connID string, eventType events.EventType, payload interface{}) {
	ev, err := events.New(eventType, payload, r.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build reply event")
		return
	}
	r.transport.SendTo(connID, ev)
}

func resultsPayload(pollID string, t models.Tally) events.PollResultsPayload {
	return events.PollResultsPayload{
		PollID:     pollID,
		Tally:      t.Clone(),
		TotalVotes: t.Total(),
	}
}

func typeName(v interface{}) string {
	return fmt.Sprintf("%T", v)
}
