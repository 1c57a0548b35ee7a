package eventbus

import (
	"context"
	"time"

	"github.com/mcdev12/pollroom/go/internal/classroom/events"
	"github.com/rs/zerolog/log"
)

// RelayConfig tunes the relay's buffer and per-publish timeout
type RelayConfig struct {
	BufferSize     int
	PublishTimeout time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BufferSize:     512,
		PublishTimeout: 5 * time.Second,
	}
}

// Relay takes broadcasts from the room without blocking it and publishes them
// in order from its own goroutine. Events are dropped when the buffer is full.
type Relay struct {
	publisher Publisher
	metrics   MetricsCollector
	config    RelayConfig
	queue     chan *events.Event
}

func NewRelay(publisher Publisher, metrics MetricsCollector, cfg RelayConfig) *Relay {
	if metrics == nil {
		metrics = &NoOpMetricsCollector{}
	}
	return &Relay{
		publisher: NewMetricPublisher(publisher, metrics),
		metrics:   metrics,
		config:    cfg,
		queue:     make(chan *events.Event, cfg.BufferSize),
	}
}

// Broadcast queues event for publishing. It never blocks.
func (r *Relay) Broadcast(event *events.Event) {
	select {
	case r.queue <- event:
	default:
		r.metrics.RecordDropped(event.Type)
		log.Warn().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("relay buffer full, dropping event")
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// already buffered and closes the publisher.
func (r *Relay) Run(ctx context.Context) error {
	log.Info().Int("buffer_size", r.config.BufferSize).Msg("event relay started")
	defer func() {
		if err := r.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close publisher")
		}
		log.Info().Msg("event relay stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			r.drain()
			return nil
		case event := <-r.queue:
			r.publish(context.Background(), event)
		}
	}
}

func (r *Relay) drain() {
	for {
		select {
		case event := <-r.queue:
			r.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (r *Relay) publish(ctx context.Context, event *events.Event) {
	ctx, cancel := context.WithTimeout(ctx, r.config.PublishTimeout)
	defer cancel()

	if err := r.publisher.Publish(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("failed to publish event")
	}
}

// GetStats reports queue depth and broker connectivity
func (r *Relay) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"queued":      len(r.queue),
		"buffer_size": r.config.BufferSize,
		"connected":   r.publisher.Connected(),
	}
}
