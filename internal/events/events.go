// Package events publishes domain events to an external broker.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/starford/flipdesk/internal/conversion"
)

// Event types.
const (
	TypeLeadConverted = "lead.converted"
	TypeRunCompleted  = "conversion.run_completed"
)

// Event is one domain event. AggregateID identifies the record the event is
// about and is used as the partition key.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateID int64     `json:"aggregateId"`
	OccurredAt  time.Time `json:"occurredAt"`
	Data        any       `json:"data,omitempty"`
}

// New builds an event with a fresh id.
func New(eventType string, aggregateID int64, data any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Data:        data,
	}
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }

// RunSummary is the payload of a conversion.run_completed event.
type RunSummary struct {
	RunID     string `json:"runId"`
	Trigger   string `json:"trigger"`
	Scanned   int    `json:"scanned"`
	Converted int    `json:"converted"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// FromReport turns a conversion report into one lead.converted event per
// conversion followed by a run summary.
func FromReport(r conversion.Report) []Event {
	out := make([]Event, 0, len(r.Conversions)+1)
	for _, c := range r.Conversions {
		out = append(out, New(TypeLeadConverted, c.LeadID, c))
	}
	out = append(out, New(TypeRunCompleted, 0, RunSummary{
		RunID:     r.RunID,
		Trigger:   r.Trigger,
		Scanned:   r.Scanned,
		Converted: r.Converted,
		Skipped:   r.Skipped,
		Failed:    r.Failed,
	}))
	return out
}
