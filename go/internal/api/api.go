// Package api serves the classroom's request/response surface: a few REST
// routes for the browser client and a connect RPC service for admin tooling.
package api

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pollroom/go/internal/models"
)

// StateProvider reads room state. All calls go through the room's queue.
type StateProvider interface {
	History(ctx context.Context) ([]models.HistoryEntry, error)
	CurrentPoll(ctx context.Context) (*models.Poll, error)
	Participants(ctx context.Context) ([]string, error)
}

// StatsProvider contributes a section to /info
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsFunc adapts a function to StatsProvider
type StatsFunc func() map[string]interface{}

func (f StatsFunc) GetStats() map[string]interface{} { return f() }

// ModeratorNamer mints display names for teachers
type ModeratorNamer struct {
	clock clockwork.Clock
}

func NewModeratorNamer(clock clockwork.Clock) *ModeratorNamer {
	return &ModeratorNamer{clock: clock}
}

// Mint returns Teacher_<unix millis>
func (n *ModeratorNamer) Mint() string {
	return fmt.Sprintf("Teacher_%d", n.clock.Now().UnixMilli())
}
