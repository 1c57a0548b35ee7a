package events

import (
	"errors"
	"testing"
	"time"

	"github.com/mcdev12/pollroom/go/internal/models"
)

func TestDecodeClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    interface{}
		wantErr error
	}{
		{
			name: "Join",
			raw:  `{"type":"join","data":{"display_name":"alice","role":"student"}}`,
			want: &JoinPayload{DisplayName: "alice", Role: models.RoleStudent},
		},
		{
			name: "CreatePoll",
			raw:  `{"type":"createPoll","data":{"question":"Color?","options":[{"id":1,"text":"Red","is_correct":true}],"timer_seconds":30,"creator_name":"Teacher_1"}}`,
		},
		{
			name: "SubmitVote",
			raw:  `{"type":"submitVote","data":{"display_name":"alice","option_text":"Red","poll_id":"p1"}}`,
			want: &SubmitVotePayload{DisplayName: "alice", OptionText: "Red", PollID: "p1"},
		},
		{
			name: "KickBareString",
			raw:  `{"type":"kick","data":"alice"}`,
			want: &KickPayload{DisplayName: "alice"},
		},
		{
			name: "KickObject",
			raw:  `{"type":"kick","data":{"display_name":"alice"}}`,
			want: &KickPayload{DisplayName: "alice"},
		},
		{
			name: "JoinChatWithoutData",
			raw:  `{"type":"joinChat"}`,
			want: &JoinChatPayload{},
		},
		{
			name:    "UnknownType",
			raw:     `{"type":"dance","data":{}}`,
			wantErr: ErrUnknownMessageType,
		},
		{
			name:    "NotJSON",
			raw:     `hello`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "WrongFieldType",
			raw:     `{"type":"createPoll","data":{"timer_seconds":"soon"}}`,
			wantErr: ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClientMessage([]byte(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch want := tt.want.(type) {
			case *JoinPayload:
				if *got.(*JoinPayload) != *want {
					t.Errorf("expected %+v, got %+v", want, got)
				}
			case *SubmitVotePayload:
				if *got.(*SubmitVotePayload) != *want {
					t.Errorf("expected %+v, got %+v", want, got)
				}
			case *KickPayload:
				if *got.(*KickPayload) != *want {
					t.Errorf("expected %+v, got %+v", want, got)
				}
			case *JoinChatPayload:
				if *got.(*JoinChatPayload) != *want {
					t.Errorf("expected %+v, got %+v", want, got)
				}
			case nil:
				p := got.(*CreatePollPayload)
				if p.TimerSeconds != 30 || len(p.Options) != 1 || !p.Options[0].IsCorrect {
					t.Errorf("unexpected create payload %+v", p)
				}
			}
		})
	}
}

func TestDecodeClientMessage_CreatePollLenientFields(t *testing.T) {
	raw := `{"type":"createPoll","data":{"question":"Color?","options":["Red",{"text":"Blue","is_correct":true}],"timer_seconds":"45"}}`
	got, err := DecodeClientMessage([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := got.(*CreatePollPayload)
	if p.Question != "Color?" || p.TimerSeconds != 45 {
		t.Errorf("unexpected create payload %+v", p)
	}
	if len(p.Options) != 2 || p.Options[0].Text != "Red" || p.Options[1].Text != "Blue" || !p.Options[1].IsCorrect {
		t.Errorf("unexpected options %+v", p.Options)
	}
}

func TestDecodeClientMessage_DecodeErrorCarriesType(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"join","data":{"display_name":["bob"]}}`))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if decodeErr.Type != MessageTypeJoin {
		t.Errorf("expected type join, got %s", decodeErr.Type)
	}
	if !errors.Is(err, ErrMalformedPayload) {
		t.Error("decode error should match ErrMalformedPayload")
	}

	_, err = DecodeClientMessage([]byte(`not json`))
	if errors.As(err, &decodeErr) {
		t.Error("an unparseable frame has no known type")
	}
}

func TestNew_RoundTripsThroughParse(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ev, err := New(EventTypePollResults, PollResultsPayload{
		PollID:     "p1",
		Tally:      models.Tally{"Red": 2},
		TotalVotes: 2,
	}, at)
	if err != nil {
		t.Fatal(err)
	}
	if ev.ID == "" || !ev.Timestamp.Equal(at) {
		t.Errorf("unexpected envelope %+v", ev)
	}

	parsed, err := ParseEventPayload(ev)
	if err != nil {
		t.Fatal(err)
	}
	res, ok := parsed.(*PollResultsPayload)
	if !ok || res.Tally["Red"] != 2 || res.TotalVotes != 2 {
		t.Errorf("unexpected payload %#v", parsed)
	}
}
