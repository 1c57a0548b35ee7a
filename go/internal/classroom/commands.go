package classroom

import (
	"github.com/mcdev12/pollroom/go/internal/classroom/events"
	"github.com/rs/zerolog/log"
)

// command is one unit of work for the run loop
type command interface {
	execute(r *Room)
}

type clientCommand struct {
	connectionID string
	payload      interface{}
}

func (c clientCommand) execute(r *Room) {
	switch p := c.payload.(type) {
	case *events.JoinPayload:
		r.handleJoin(c.connectionID, p)
	case *events.JoinChatPayload:
		r.handleJoinChat(c.connectionID)
	case *events.CreatePollPayload:
		r.handleCreatePoll(c.connectionID, p)
	case *events.SubmitVotePayload:
		r.handleSubmitVote(c.connectionID, p)
	case *events.KickPayload:
		r.handleKick(c.connectionID, p)
	case *events.ChatMessagePayload:
		r.handleChatMessage(c.connectionID, p)
	case *events.EndPollPayload:
		r.handleEndPoll(c.connectionID, p)
	default:
		log.Warn().
			Str("connection_id", c.connectionID).
			Str("payload_type", typeName(c.payload)).
			Msg("unhandled client payload")
	}
}

// rejectCommand answers a frame whose data could not be decoded
type rejectCommand struct {
	connectionID string
	messageType  events.MessageType
}

func (c rejectCommand) execute(r *Room) {
	r.handleUndecodable(c.connectionID, c.messageType)
}

type disconnectCommand struct {
	connectionID string
}

func (c disconnectCommand) execute(r *Room) {
	r.handleDisconnect(c.connectionID)
}

type expireCommand struct {
	pollID string
}

func (c expireCommand) execute(r *Room) {
	r.handleExpire(c.pollID)
}

type queryCommand struct {
	fn   func()
	done chan struct{}
}

func (c queryCommand) execute(r *Room) {
	c.fn()
	close(c.done)
}
