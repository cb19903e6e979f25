// Package bus carries deployment events from the outbox publisher to
// the workers reacting on them.
//
// Delivery is at-least-once. Consumers see their own unacknowledged
// deliveries again before any new ones, so a consumer which crashed
// mid-event resumes where it stopped. Handlers have to tolerate
// duplicates.
package bus

import (
	"context"
	"encoding/json"

	"github.com/inferia-ai/inferia/pkg/domain"
)

// Event is what travels on the bus.
type Event struct {
	// Id is the outbox event id. It is stable across redeliveries.
	Id          string
	AggregateId string
	Type        domain.EventType
	Payload     json.RawMessage
}

func FromOutbox(ev domain.OutboxEvent) Event {
	return Event{
		Id:          ev.Id,
		AggregateId: ev.AggregateId,
		Type:        ev.Type,
		Payload:     ev.Payload,
	}
}

// Delivery is a received Event waiting to be acknowledged.
type Delivery struct {
	Event Event

	// Ack marks the delivery as consumed. Deliveries left unacked are
	// handed out again on a later Fetch.
	Ack func(ctx context.Context) error
}

type Bus interface {
	Publish(ctx context.Context, event Event) error
}

type Consumer interface {
	// Fetch returns up to max deliveries, own unacked ones first.
	// It does not block when nothing is queued; it returns an empty slice.
	Fetch(ctx context.Context, max int64) ([]Delivery, error)

	Close() error
}
