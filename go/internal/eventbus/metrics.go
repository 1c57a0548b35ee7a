package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/mcdev12/pollroom/go/internal/classroom/events"
)

// MetricsCollector defines the interface for collecting relay metrics
type MetricsCollector interface {
	RecordPublished(eventType events.EventType, success bool, duration time.Duration)
	RecordDropped(eventType events.EventType)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordPublished(events.EventType, bool, time.Duration) {}
func (n *NoOpMetricsCollector) RecordDropped(events.EventType)                        {}

// MetricPublisher wraps a Publisher with metrics collection
type MetricPublisher struct {
	publisher Publisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher Publisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, event *events.Event) error {
	start := time.Now()

	err := p.publisher.Publish(ctx, event)

	p.metrics.RecordPublished(event.Type, err == nil, time.Since(start))
	return err
}

func (p *MetricPublisher) Connected() bool {
	return p.publisher.Connected()
}

func (p *MetricPublisher) Close() error {
	return p.publisher.Close()
}

// Counters is an in-memory MetricsCollector surfaced on /info
type Counters struct {
	mu        sync.Mutex
	published map[events.EventType]int64
	failed    int64
	dropped   int64
	totalTime time.Duration
}

func NewCounters() *Counters {
	return &Counters{published: make(map[events.EventType]int64)}
}

func (c *Counters) RecordPublished(eventType events.EventType, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalTime += duration
	if !success {
		c.failed++
		return
	}
	c.published[eventType]++
}

func (c *Counters) RecordDropped(events.EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped++
}

// Snapshot returns the counters in a JSON-friendly shape
func (c *Counters) Snapshot() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	byType := make(map[string]int64, len(c.published))
	var total int64
	for t, n := range c.published {
		byType[string(t)] = n
		total += n
	}

	var avgMs float64
	if attempts := total + c.failed; attempts > 0 {
		avgMs = float64(c.totalTime.Microseconds()) / float64(attempts) / 1000
	}

	return map[string]interface{}{
		"published":         total,
		"published_by_type": byType,
		"failed":            c.failed,
		"dropped":           c.dropped,
		"avg_publish_ms":    avgMs,
	}
}
