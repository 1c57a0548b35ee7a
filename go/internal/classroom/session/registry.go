// Package session tracks which connections are present in the classroom and
// under what display name and role.
//
// The registry is plain state: it performs no broadcasting and no locking. It is
// owned by the room's run loop, which serializes every call.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pollroom/go/internal/models"
)

// ErrInvalidJoin is returned when a join is missing its display name or role.
var ErrInvalidJoin = errors.New("invalid join payload")

// Registry maps connection IDs to sessions.
type Registry struct {
	sessions map[string]*models.Session
	clock    clockwork.Clock
}

// NewRegistry creates an empty registry
func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		sessions: make(map[string]*models.Session),
		clock:    clock,
	}
}

// Join inserts or overwrites the session for connectionID.
func (r *Registry) Join(connectionID, displayName string, role models.Role) (*models.Session, error) {
	if strings.TrimSpace(connectionID) == "" {
		return nil, fmt.Errorf("%w: missing connection id", ErrInvalidJoin)
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, fmt.Errorf("%w: missing display name", ErrInvalidJoin)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidJoin, role)
	}

	s := &models.Session{
		ConnectionID: connectionID,
		DisplayName:  displayName,
		Role:         role,
		JoinedAt:     r.clock.Now(),
	}
	r.sessions[connectionID] = s
	return s, nil
}

// Leave removes the session for connectionID. Leaving an absent connection is a no-op.
func (r *Registry) Leave(connectionID string) (*models.Session, bool) {
	s, ok := r.sessions[connectionID]
	if ok {
		delete(r.sessions, connectionID)
	}
	return s, ok
}

// Find returns the session bound to connectionID.
func (r *Registry) Find(connectionID string) (*models.Session, bool) {
	s, ok := r.sessions[connectionID]
	return s, ok
}

// ListDisplayNames returns the de-duplicated display names of all live sessions,
// sorted so repeated broadcasts are stable.
func (r *Registry) ListDisplayNames() []string {
	seen := make(map[string]struct{}, len(r.sessions))
	names := make([]string, 0, len(r.sessions))
	for _, s := range r.sessions {
		if _, dup := seen[s.DisplayName]; dup {
			continue
		}
		seen[s.DisplayName] = struct{}{}
		names = append(names, s.DisplayName)
	}
	sort.Strings(names)
	return names
}

// HasDisplayName reports whether any live session uses displayName.
func (r *Registry) HasDisplayName(displayName string) bool {
	for _, s := range r.sessions {
		if s.DisplayName == displayName {
			return true
		}
	}
	return false
}

// ConnectionsFor returns every connection joined under displayName (one per tab).
func (r *Registry) ConnectionsFor(displayName string) []string {
	var ids []string
	for id, s := range r.sessions {
		if s.DisplayName == displayName {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}
