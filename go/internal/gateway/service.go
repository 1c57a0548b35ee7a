package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service is the WebSocket gateway: it accepts client connections, forwards
// their frames to a Dispatcher and delivers the room's events back.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new gateway service
func NewService(config Config) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
	}
}

// Transport exposes the connection manager, which implements the room's
// Broadcast/SendTo/Close contract
func (s *Service) Transport() *ConnectionManager {
	return s.connectionManager
}

// SetDispatcher wires inbound frames to d
func (s *Service) SetDispatcher(d Dispatcher) {
	s.connectionManager.SetDispatcher(d)
}

// Start runs the gateway until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting classroom gateway service")

	s.connectionManager.Start(ctx)

	log.Info().Msg("classroom gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("classroom gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "classroom_gateway"
	stats["status"] = "running"
	return stats
}
