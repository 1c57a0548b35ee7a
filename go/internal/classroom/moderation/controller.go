// Package moderation lets a teacher remove a participant from the classroom.
package moderation

import (
	"errors"

	"github.com/mcdev12/pollroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrNotModerator is returned when a non-teacher asks to kick someone. Callers
// drop it without replying so the response never reveals who is a teacher.
var ErrNotModerator = errors.New("requester is not a moderator")

// Registry defines what the controller needs from the session registry
type Registry interface {
	Find(connectionID string) (*models.Session, bool)
	ConnectionsFor(displayName string) []string
	Leave(connectionID string) (*models.Session, bool)
}

// BallotRetractor removes a participant's ballot from the active poll
type BallotRetractor interface {
	RetractBallot(displayName string) (string, bool)
}

// Disconnector severs a connection after telling it why
type Disconnector interface {
	ForceDisconnect(connectionID string)
}

// Outcome describes what a kick changed
type Outcome struct {
	Target          string
	Connections     []string
	BallotRetracted bool
	RetractedOption string
}

// Controller carries out kicks.
type Controller struct {
	registry     Registry
	ballots      BallotRetractor
	disconnector Disconnector
}

// NewController creates a moderation controller
func NewController(registry Registry, ballots BallotRetractor, disconnector Disconnector) *Controller {
	return &Controller{
		registry:     registry,
		ballots:      ballots,
		disconnector: disconnector,
	}
}

// Kick removes every session named target. Their ballot on the active poll is
// retracted, including its tally increment, and each of their connections is
// force-disconnected and dropped from the registry.
func (c *Controller) Kick(requesterID, target string) (*Outcome, error) {
	requester, ok := c.registry.Find(requesterID)
	if !ok || !requester.IsModerator() {
		return nil, ErrNotModerator
	}

	out := &Outcome{Target: target}
	out.RetractedOption, out.BallotRetracted = c.ballots.RetractBallot(target)

	for _, connID := range c.registry.ConnectionsFor(target) {
		c.disconnector.ForceDisconnect(connID)
		c.registry.Leave(connID)
		out.Connections = append(out.Connections, connID)
	}

	log.Info().
		Str("moderator", requester.DisplayName).
		Str("target", target).
		Int("connections", len(out.Connections)).
		Bool("ballot_retracted", out.BallotRetracted).
		Msg("participant kicked")

	return out, nil
}
