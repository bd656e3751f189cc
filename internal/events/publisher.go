// Package events publishes job outcomes to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nf-osi/synapse-jobs/internal/domain"
)

// ContentType of published events
const ContentType = "application/json"

// Broker publishes a message with a routing key
type Broker interface {
	Publish(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// Event is the message published for each outcome
type Event struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	Target     string    `json:"target"`
	Success    bool      `json:"success"`
	DryRun     bool      `json:"dry_run"`
	Version    int64     `json:"version,omitempty"`
	Updated    int       `json:"updated"`
	Candidates int       `json:"candidates"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher turns outcomes into broker messages
type Publisher struct {
	broker Broker
}

// NewPublisher creates a Publisher
func NewPublisher(broker Broker) *Publisher {
	return &Publisher{broker: broker}
}

// RoutingKey is jobs.<job>.<success|failure>
func RoutingKey(o domain.Outcome) string {
	result := "success"
	if !o.Success {
		result = "failure"
	}
	return "jobs." + o.Job + "." + result
}

// Record publishes one outcome
func (p *Publisher) Record(ctx context.Context, run *domain.RunResult, o domain.Outcome) error {
	event := Event{
		RunID:      run.RunID,
		Job:        o.Job,
		Target:     o.Target,
		Success:    o.Success,
		DryRun:     o.DryRun,
		Version:    o.Version,
		Updated:    o.Updated,
		Candidates: o.Candidates,
		OccurredAt: run.FinishedAt,
	}
	if o.Err != nil {
		event.Error = o.Err.Error()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.broker.Publish(ctx, RoutingKey(o), body, ContentType); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
