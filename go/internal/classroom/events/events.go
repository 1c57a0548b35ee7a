// Package events defines the classroom wire protocol: the tagged messages
// clients send in and the events the room fans out.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for everything the room sends to clients
type Event struct {
	ID        string          `json:"id"`        // Event UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of outbound event
type EventType string

const (
	EventTypeJoinConfirmed       EventType = "joinConfirmed"
	EventTypePollCreated         EventType = "pollCreated"
	EventTypePollResults         EventType = "pollResults"
	EventTypePollEnded           EventType = "pollEnded"
	EventTypeParticipantsUpdate  EventType = "participantsUpdate"
	EventTypeParticipationNotice EventType = "participationNotice"
	EventTypeVoteRejected        EventType = "voteRejected"
	EventTypePollRejected        EventType = "pollRejected"
	EventTypeForcedDisconnect    EventType = "forcedDisconnect"
	EventTypeParticipantKicked   EventType = "participantKicked"
	EventTypeChatMessage         EventType = "chatMessage"
)

// New builds an event, marshalling payload immediately so the event is
// immutable once it leaves the caller.
func New(eventType EventType, payload interface{}, at time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *Event) (interface{}, error) {
	var target interface{}
	switch event.Type {
	case EventTypeJoinConfirmed:
		target = &JoinConfirmedPayload{}
	case EventTypePollCreated:
		target = &PollCreatedPayload{}
	case EventTypePollResults:
		target = &PollResultsPayload{}
	case EventTypePollEnded:
		target = &PollEndedPayload{}
	case EventTypeParticipantsUpdate:
		target = &ParticipantsUpdatePayload{}
	case EventTypeParticipationNotice:
		target = &ParticipationNoticePayload{}
	case EventTypeVoteRejected, EventTypePollRejected:
		target = &RejectionPayload{}
	case EventTypeForcedDisconnect:
		target = &ForcedDisconnectPayload{}
	case EventTypeParticipantKicked:
		target = &ParticipantKickedPayload{}
	case EventTypeChatMessage:
		target = &ChatRelayPayload{}
	default:
		return nil, nil // Unknown event type
	}

	if err := json.Unmarshal(event.Data, target); err != nil {
		return nil, err
	}
	return target, nil
}
