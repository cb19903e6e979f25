package outbox

import (
	"context"

	"github.com/inferia-ai/inferia/cmd/loops/recurring"
	"github.com/inferia-ai/inferia/pkg/bus"
	"github.com/inferia-ai/inferia/pkg/domain"
	koutbox "github.com/inferia-ai/inferia/pkg/domain/outbox/db"
)

// initial value for task
func Seed() any {
	return nil
}

// Task drains the outbox onto the event bus.
//
// Each cycle pops one unpublished event, publishes it and marks it
// published in the same database transaction. A crash between publish
// and commit re-publishes the event later; consumers drop the
// duplicate at the state machine.
func Task(outbox koutbox.OutboxInterface, eventBus bus.Bus) recurring.Task[any] {
	return func(ctx context.Context, value any) (any, bool, error) {
		pop, err := outbox.Pop(ctx, func(ev domain.OutboxEvent) error {
			return eventBus.Publish(ctx, bus.FromOutbox(ev))
		})
		return value, pop, err
	}
}
