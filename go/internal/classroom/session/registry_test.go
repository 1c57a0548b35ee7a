package session

import (
	"errors"
	"slices"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pollroom/go/internal/models"
)

func newTestRegistry() *Registry {
	return NewRegistry(clockwork.NewFakeClock())
}

func TestJoin_Validation(t *testing.T) {
	tests := []struct {
		name        string
		connID      string
		displayName string
		role        models.Role
		wantErr     bool
	}{
		{name: "Student", connID: "c1", displayName: "alice", role: models.RoleStudent},
		{name: "Teacher", connID: "c1", displayName: "Teacher_1", role: models.RoleTeacher},
		{name: "MissingName", connID: "c1", displayName: "", role: models.RoleStudent, wantErr: true},
		{name: "BlankName", connID: "c1", displayName: "   ", role: models.RoleStudent, wantErr: true},
		{name: "MissingRole", connID: "c1", displayName: "alice", role: "", wantErr: true},
		{name: "UnknownRole", connID: "c1", displayName: "alice", role: "admin", wantErr: true},
		{name: "MissingConnection", connID: "", displayName: "alice", role: models.RoleStudent, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry()
			s, err := r.Join(tt.connID, tt.displayName, tt.role)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidJoin) {
					t.Fatalf("expected ErrInvalidJoin, got %v", err)
				}
				if r.Len() != 0 {
					t.Errorf("rejected join must not register a session, have %d", r.Len())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.DisplayName != tt.displayName || s.Role != tt.role {
				t.Errorf("unexpected session %+v", s)
			}
		})
	}
}

func TestJoin_OverwritesSameConnection(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.Join("c1", "alice", models.RoleStudent); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Join("c1", "alicia", models.RoleStudent); err != nil {
		t.Fatal(err)
	}

	if r.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", r.Len())
	}
	s, ok := r.Find("c1")
	if !ok || s.DisplayName != "alicia" {
		t.Errorf("expected overwritten session, got %+v", s)
	}
	if r.HasDisplayName("alice") {
		t.Error("old display name should be gone")
	}
}

func TestLeave_Idempotent(t *testing.T) {
	r := newTestRegistry()
	r.Join("c1", "alice", models.RoleStudent)

	if _, ok := r.Leave("c1"); !ok {
		t.Error("expected first leave to remove the session")
	}
	if _, ok := r.Leave("c1"); ok {
		t.Error("second leave should be a no-op")
	}
	if _, ok := r.Leave("never-joined"); ok {
		t.Error("leaving an unknown connection should be a no-op")
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestListDisplayNames_Deduplicates(t *testing.T) {
	r := newTestRegistry()
	r.Join("c1", "bob", models.RoleStudent)
	r.Join("c2", "alice", models.RoleStudent)
	r.Join("c3", "alice", models.RoleStudent) // second tab
	r.Join("c4", "Teacher_1", models.RoleTeacher)

	got := r.ListDisplayNames()
	want := []string{"Teacher_1", "alice", "bob"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestConnectionsFor_MultiTab(t *testing.T) {
	r := newTestRegistry()
	r.Join("c2", "alice", models.RoleStudent)
	r.Join("c1", "alice", models.RoleStudent)
	r.Join("c3", "bob", models.RoleStudent)

	got := r.ConnectionsFor("alice")
	if !slices.Equal(got, []string{"c1", "c2"}) {
		t.Errorf("expected [c1 c2], got %v", got)
	}
	if ids := r.ConnectionsFor("nobody"); len(ids) != 0 {
		t.Errorf("expected no connections, got %v", ids)
	}
}
