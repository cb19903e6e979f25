// In-memory event bus. Single process only; used in tests and to run
// the whole control plane as one binary without Redis.
package mem

import (
	"context"
	"sync"

	"github.com/inferia-ai/inferia/pkg/bus"
)

type queue struct {
	mu sync.Mutex

	// events in arrival order. Acked events get removed, unacked ones
	// stay and are served again before anything behind them.
	events []bus.Event
	acked  map[string]bool
}

type Topic struct {
	mu     sync.Mutex
	queues map[string]*queue
}

func NewTopic() *Topic {
	return &Topic{queues: map[string]*queue{}}
}

func (t *Topic) Publish(ctx context.Context, event bus.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, q := range t.queues {
		q.mu.Lock()
		q.events = append(q.events, event)
		q.mu.Unlock()
	}
	return nil
}

// Consumer returns the consumer of the named group, creating it when
// new. Events published before the first consumer of a group joined
// are not seen by that group.
func (t *Topic) Consumer(group string) bus.Consumer {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.queues[group]
	if !ok {
		q = &queue{acked: map[string]bool{}}
		t.queues[group] = q
	}
	return &memConsumer{queue: q}
}

var _ bus.Bus = &Topic{}

type memConsumer struct {
	queue *queue
}

func (c *memConsumer) Fetch(ctx context.Context, max int64) ([]bus.Delivery, error) {
	q := c.queue
	q.mu.Lock()
	defer q.mu.Unlock()

	deliveries := []bus.Delivery{}
	for _, event := range q.events {
		if int64(len(deliveries)) >= max {
			break
		}
		eventId := event.Id
		deliveries = append(deliveries, bus.Delivery{
			Event: event,
			Ack: func(ctx context.Context) error {
				q.mu.Lock()
				defer q.mu.Unlock()
				q.acked[eventId] = true
				q.compact()
				return nil
			},
		})
	}
	return deliveries, nil
}

func (c *memConsumer) Close() error {
	return nil
}

// compact drops acked events from the head. Callers hold q.mu.
func (q *queue) compact() {
	remaining := q.events[:0]
	for _, event := range q.events {
		if q.acked[event.Id] {
			delete(q.acked, event.Id)
			continue
		}
		remaining = append(remaining, event)
	}
	q.events = remaining
}
