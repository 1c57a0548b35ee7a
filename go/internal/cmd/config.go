package main

import (
	"fmt"
	"os"

	"github.com/mcdev12/pollroom/go/internal/eventbus"
	"github.com/mcdev12/pollroom/go/internal/gateway"
	"github.com/mcdev12/pollroom/go/internal/serverconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func loadConfig() (serverconfig.Config, error) {
	cfg, err := serverconfig.Resolve()
	if err != nil {
		return serverconfig.Config{}, fmt.Errorf("resolve config: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg serverconfig.Config) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(cfg.Level())
}

func gatewayConfig(cfg serverconfig.Config) gateway.Config {
	conn := gateway.DefaultConnectionConfig()
	conn.MaxMessageSize = cfg.WebSocket.MaxMessageSize
	conn.PingInterval = cfg.WebSocket.PingInterval
	// Clients get two missed pings before the read deadline trips.
	conn.ReadTimeout = 2 * cfg.WebSocket.PingInterval
	conn.AllowedOrigins = cfg.AllowedOrigins()
	return gateway.Config{ConnectionConfig: conn}
}

func jetStreamConfig(cfg serverconfig.Config) eventbus.JetStreamConfig {
	js := eventbus.DefaultJetStreamConfig()
	js.URL = cfg.NATS.URL
	js.StreamName = cfg.NATS.Stream
	js.SubjectPrefix = cfg.NATS.SubjectPrefix
	return js
}
