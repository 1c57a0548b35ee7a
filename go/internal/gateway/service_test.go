package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/pollroom/go/internal/classroom"
	"github.com/mcdev12/pollroom/go/internal/classroom/events"
	"github.com/mcdev12/pollroom/go/internal/gateway"
)

func startServer(t *testing.T) (*httptest.Server, *gateway.Service) {
	t.Helper()

	cfg := gateway.DefaultConfig()
	svc := gateway.NewService(cfg)
	room := classroom.NewRoom(svc.Transport())
	svc.SetDispatcher(room)

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Start(ctx)
	go room.Run(ctx)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, svc
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType events.MessageType, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteJSON(events.ClientMessage{Type: msgType, Data: raw}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil skips events until one of type want arrives
func readUntil(t *testing.T, conn *websocket.Conn, want events.EventType) *events.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var ev events.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if ev.Type == want {
			return &ev
		}
	}
}

func payload[T any](t *testing.T, ev *events.Event) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(ev.Data, &out); err != nil {
		t.Fatalf("decode %s: %v", ev.Type, err)
	}
	return out
}

func join(t *testing.T, conn *websocket.Conn, name, role string) {
	t.Helper()
	send(t, conn, events.MessageTypeJoin, map[string]string{"display_name": name, "role": role})
	confirm := payload[events.JoinConfirmedPayload](t, readUntil(t, conn, events.EventTypeJoinConfirmed))
	if !confirm.Success {
		t.Fatalf("join %s failed: %s", name, confirm.Message)
	}
}

func TestGateway_PollRoundTrip(t *testing.T) {
	srv, _ := startServer(t)
	teacher := dial(t, srv)
	student := dial(t, srv)

	join(t, teacher, "Teacher_1", "teacher")
	join(t, student, "alice", "student")

	send(t, teacher, events.MessageTypeCreatePoll, map[string]interface{}{
		"question":      "Color?",
		"options":       []map[string]interface{}{{"text": "Red", "is_correct": true}, {"text": "Blue"}},
		"timer_seconds": 30,
	})
	created := payload[events.PollCreatedPayload](t, readUntil(t, student, events.EventTypePollCreated))
	if created.Poll == nil || created.Poll.Question != "Color?" {
		t.Fatalf("unexpected poll: %+v", created.Poll)
	}

	send(t, student, events.MessageTypeSubmitVote, map[string]string{
		"display_name": "alice",
		"option_text":  "Red",
		"poll_id":      created.Poll.ID,
	})
	results := payload[events.PollResultsPayload](t, readUntil(t, teacher, events.EventTypePollResults))
	if results.Tally["Red"] != 1 || results.TotalVotes != 1 {
		t.Errorf("unexpected tally: %+v", results)
	}
}

func TestGateway_MalformedFrameKeepsConnection(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	join(t, conn, "alice", "student")
}

func TestGateway_RejectionReachesSenderOnly(t *testing.T) {
	srv, _ := startServer(t)
	teacher := dial(t, srv)
	student := dial(t, srv)

	join(t, teacher, "Teacher_1", "teacher")
	join(t, student, "alice", "student")

	raw := `{"type":"submitVote","data":{"display_name":5,"option_text":"Red"}}`
	if err := student.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
	rejection := payload[events.RejectionPayload](t, readUntil(t, student, events.EventTypeVoteRejected))
	if rejection.Message == "" {
		t.Error("expected a rejection message")
	}

	// Two join broadcasts, then the joinChat reply. Everything is queued in
	// order, so a misdirected rejection would show up before the reply.
	send(t, teacher, events.MessageTypeJoinChat, map[string]string{"display_name": "Teacher_1"})
	teacher.SetReadDeadline(time.Now().Add(2 * time.Second))
	for updates := 0; updates < 3; {
		var ev events.Event
		if err := teacher.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch ev.Type {
		case events.EventTypeVoteRejected:
			t.Fatal("rejection was delivered to another connection")
		case events.EventTypeParticipantsUpdate:
			updates++
		}
	}
}

func TestGateway_KickClosesConnection(t *testing.T) {
	srv, svc := startServer(t)
	teacher := dial(t, srv)
	student := dial(t, srv)

	join(t, teacher, "Teacher_1", "teacher")
	join(t, student, "alice", "student")

	send(t, teacher, events.MessageTypeKick, "alice")

	notice := payload[events.ForcedDisconnectPayload](t, readUntil(t, student, events.EventTypeForcedDisconnect))
	if notice.Reason == "" {
		t.Error("expected a reason on forcedDisconnect")
	}
	student.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := student.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected a normal close after the kick, got %v", err)
	}

	kicked := payload[events.ParticipantKickedPayload](t, readUntil(t, teacher, events.EventTypeParticipantKicked))
	if kicked.DisplayName != "alice" {
		t.Errorf("unexpected kicked name: %q", kicked.DisplayName)
	}
	update := payload[events.ParticipantsUpdatePayload](t, readUntil(t, teacher, events.EventTypeParticipantsUpdate))
	if !slices.Equal(update.Participants, []string{"Teacher_1"}) {
		t.Errorf("unexpected participants: %v", update.Participants)
	}

	deadline := time.Now().Add(2 * time.Second)
	for svc.Transport().ConnectionCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := svc.Transport().ConnectionCount(); got != 1 {
		t.Errorf("expected 1 open connection, got %d", got)
	}
}

func TestGateway_DisconnectUpdatesParticipants(t *testing.T) {
	srv, _ := startServer(t)
	teacher := dial(t, srv)
	student := dial(t, srv)

	join(t, teacher, "Teacher_1", "teacher")
	join(t, student, "alice", "student")
	readUntil(t, teacher, events.EventTypeParticipantsUpdate) // teacher's own join
	update := payload[events.ParticipantsUpdatePayload](t, readUntil(t, teacher, events.EventTypeParticipantsUpdate))
	if !slices.Equal(update.Participants, []string{"Teacher_1", "alice"}) {
		t.Fatalf("unexpected participants: %v", update.Participants)
	}

	student.Close()

	update = payload[events.ParticipantsUpdatePayload](t, readUntil(t, teacher, events.EventTypeParticipantsUpdate))
	if !slices.Equal(update.Participants, []string{"Teacher_1"}) {
		t.Errorf("unexpected participants after disconnect: %v", update.Participants)
	}
}

func TestGateway_Stats(t *testing.T) {
	srv, _ := startServer(t)
	dial(t, srv)

	var stats map[string]interface{}
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/ws/stats")
		if err != nil {
			t.Fatalf("get stats: %v", err)
		}
		err = json.NewDecoder(resp.Body).Decode(&stats)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode stats: %v", err)
		}
		if stats["total_connections"] == float64(1) || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if stats["total_connections"] != float64(1) {
		t.Errorf("expected 1 connection, got %v", stats["total_connections"])
	}
}
