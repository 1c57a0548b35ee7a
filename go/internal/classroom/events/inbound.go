package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mcdev12/pollroom/go/internal/models"
)

var (
	// ErrUnknownMessageType is returned for a frame whose type is not recognised
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrMalformedPayload is returned when a frame cannot be decoded
	ErrMalformedPayload = errors.New("malformed payload")
)

// DecodeError reports a frame whose type is known but whose data does not
// decode. It matches ErrMalformedPayload under errors.Is.
type DecodeError struct {
	Type MessageType
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrMalformedPayload, e.Type, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrMalformedPayload, e.Err}
}

// MessageType tags an inbound client message
type MessageType string

const (
	MessageTypeJoin        MessageType = "join"
	MessageTypeJoinChat    MessageType = "joinChat"
	MessageTypeCreatePoll  MessageType = "createPoll"
	MessageTypeSubmitVote  MessageType = "submitVote"
	MessageTypeKick        MessageType = "kick"
	MessageTypeChatMessage MessageType = "chatMessage"
	MessageTypeEndPoll     MessageType = "endPoll"
)

// ClientMessage is the raw inbound frame
type ClientMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// JoinPayload registers the connection under a name and role
type JoinPayload struct {
	DisplayName string      `json:"display_name"`
	Role        models.Role `json:"role"`
}

// JoinChatPayload asks for the current participants list
type JoinChatPayload struct {
	DisplayName string `json:"display_name"`
}

// CreatePollPayload starts a poll
type CreatePollPayload struct {
	Question     string              `json:"question"`
	Options      []models.PollOption `json:"options"`
	TimerSeconds int                 `json:"timer_seconds"`
	CreatorName  string              `json:"creator_name"`
}

// UnmarshalJSON accepts timer_seconds as a number or a numeric string, and
// options as objects or bare option texts.
func (c *CreatePollPayload) UnmarshalJSON(data []byte) error {
	type plain CreatePollPayload
	aux := struct {
		*plain
		Options      []json.RawMessage `json:"options"`
		TimerSeconds json.Number       `json:"timer_seconds"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.TimerSeconds = 0
	if aux.TimerSeconds != "" {
		n, err := strconv.Atoi(aux.TimerSeconds.String())
		if err != nil {
			return fmt.Errorf("timer_seconds: %w", err)
		}
		c.TimerSeconds = n
	}

	c.Options = nil
	if aux.Options != nil {
		c.Options = make([]models.PollOption, 0, len(aux.Options))
	}
	for i, raw := range aux.Options {
		var opt models.PollOption
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '"' {
			if err := json.Unmarshal(raw, &opt.Text); err != nil {
				return fmt.Errorf("options[%d]: %w", i, err)
			}
		} else if err := json.Unmarshal(raw, &opt); err != nil {
			return fmt.Errorf("options[%d]: %w", i, err)
		}
		c.Options = append(c.Options, opt)
	}
	return nil
}

// SubmitVotePayload casts a ballot
type SubmitVotePayload struct {
	DisplayName string `json:"display_name"`
	OptionText  string `json:"option_text"`
	PollID      string `json:"poll_id"`
}

// KickPayload names the participant to remove. It decodes from either a bare
// JSON string or an object with a display_name field.
type KickPayload struct {
	DisplayName string `json:"display_name"`
}

// UnmarshalJSON accepts "alice" as well as {"display_name":"alice"}.
func (k *KickPayload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &k.DisplayName)
	}
	type plain KickPayload
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*k = KickPayload(p)
	return nil
}

// ChatMessagePayload is a chat line from a client
type ChatMessagePayload struct {
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

// EndPollPayload closes the active poll ahead of its deadline
type EndPollPayload struct {
	PollID string `json:"poll_id"`
}

// DecodeClientMessage validates an inbound frame and returns its typed payload,
// one of the *Payload structs in this file.
func DecodeClientMessage(raw []byte) (interface{}, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var payload interface{}
	switch msg.Type {
	case MessageTypeJoin:
		payload = &JoinPayload{}
	case MessageTypeJoinChat:
		payload = &JoinChatPayload{}
	case MessageTypeCreatePoll:
		payload = &CreatePollPayload{}
	case MessageTypeSubmitVote:
		payload = &SubmitVotePayload{}
	case MessageTypeKick:
		payload = &KickPayload{}
	case MessageTypeChatMessage:
		payload = &ChatMessagePayload{}
	case MessageTypeEndPoll:
		payload = &EndPollPayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}

	if len(msg.Data) == 0 || bytes.Equal(msg.Data, []byte("null")) {
		return payload, nil
	}
	if err := json.Unmarshal(msg.Data, payload); err != nil {
		return nil, &DecodeError{Type: msg.Type, Err: err}
	}
	return payload, nil
}
