// Package events is the outbound notification channel of the journey engine.
//
// Every state change the engine considers interesting is published as a named
// event with a JSON payload and a timestamp. Consumers (dashboards, alerting)
// subscribe out of process; delivery ordering across observers is not
// guaranteed and publish failures never fail the operation that produced the
// event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event names emitted by the engine.
const (
	TouchpointTracked       = "touchpoint_tracked"
	JourneyUpdated          = "journey_updated"
	ConversionPathsAnalyzed = "conversion_paths_analyzed"
	DropOffIdentified       = "dropoff_identified"
	OptimizationsGenerated  = "optimizations_generated"
	TrackingError           = "tracking_error"
	AnalysisError           = "analysis_error"
)

// SubjectPrefix is prepended to the event name to form the NATS subject.
const SubjectPrefix = "journeyd.events."

// Envelope wraps every published payload.
type Envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Publisher delivers engine events to external observers.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// NATSPublisher publishes events to NATS subjects under SubjectPrefix.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// NewNATSPublisher wraps an established NATS connection.
func NewNATSPublisher(nc *nats.Conn, logger *zap.Logger) (*NATSPublisher, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection cannot be nil")
	}
	return &NATSPublisher{nc: nc, logger: logger}, nil
}

// Publish marshals the envelope and fires it at journeyd.events.<event>.
// Errors are returned for observability but callers treat them as
// best-effort.
func (p *NATSPublisher) Publish(_ context.Context, event string, payload any) error {
	data, err := json.Marshal(Envelope{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event, err)
	}

	if err := p.nc.Publish(SubjectPrefix+event, data); err != nil {
		p.logger.Warn("event publish failed",
			zap.String("event", event),
			zap.Error(err),
		)
		return fmt.Errorf("publish event %s: %w", event, err)
	}
	return nil
}

// NopPublisher discards all events. Used when no broker is configured.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// Recorder is a Publisher that captures events in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

// Publish records the event.
func (r *Recorder) Publish(_ context.Context, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Envelope{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.events...)
}

// Names returns the event names in publish order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Event
	}
	return names
}
