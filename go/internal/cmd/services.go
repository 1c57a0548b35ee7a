package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pollroom/go/internal/api"
	"github.com/mcdev12/pollroom/go/internal/classroom"
	"github.com/mcdev12/pollroom/go/internal/eventbus"
	"github.com/mcdev12/pollroom/go/internal/gateway"
	"github.com/mcdev12/pollroom/go/internal/serverconfig"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Room      *classroom.Room
	Gateway   *gateway.Service
	Relay     *eventbus.Relay
	REST      *api.RESTHandler
	Classroom *api.ClassroomService
}

func setupServices(ctx context.Context, cfg serverconfig.Config) (*Services, error) {
	// Wire up the chain
	// Gateway (transport) → Room (state) → Relay (mirror) → API (reads)
	clock := clockwork.NewRealClock()

	gw := gateway.NewService(gatewayConfig(cfg))

	var publisher eventbus.Publisher = eventbus.NewLogPublisher()
	if cfg.NATS.URL != "" {
		js, err := eventbus.NewJetStreamPublisher(ctx, jetStreamConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("create JetStream publisher: %w", err)
		}
		publisher = js
	}
	counters := eventbus.NewCounters()
	relay := eventbus.NewRelay(publisher, counters, eventbus.DefaultRelayConfig())

	room := classroom.NewRoom(gw.Transport(),
		classroom.WithClock(clock),
		classroom.WithMirror(relay),
	)
	gw.SetDispatcher(room)

	procStats, err := api.NewProcessStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("create process stats: %w", err)
	}

	namer := api.NewModeratorNamer(clock)
	rest := api.NewRESTHandler(room, namer, map[string]api.StatsProvider{
		"process": procStats,
		"gateway": gw,
		"eventbus": api.StatsFunc(func() map[string]interface{} {
			stats := counters.Snapshot()
			for k, v := range relay.GetStats() {
				stats[k] = v
			}
			return stats
		}),
	})

	return &Services{
		Room:      room,
		Gateway:   gw,
		Relay:     relay,
		REST:      rest,
		Classroom: api.NewClassroomService(room, namer),
	}, nil
}

// start runs the background loops; each exits when ctx is cancelled
func (s *Services) start(ctx context.Context, wg *sync.WaitGroup) {
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Error().Err(err).Str("component", name).Msg("component failed")
			}
		}()
	}

	run("room", s.Room.Run)
	run("gateway", s.Gateway.Start)
	run("relay", s.Relay.Run)
}
