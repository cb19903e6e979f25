package db

import (
	"context"

	"github.com/inferia-ai/inferia/pkg/domain"
)

type OutboxInterface interface {
	// Pop hands the oldest unpublished event to the callback.
	//
	// The event row stays locked while the callback runs. When the
	// callback returns nil the event is marked published and the
	// transaction commits; when it returns an error everything is
	// rolled back and the event will be popped again later.
	//
	// Args
	//
	// - context.Context
	//
	// - func(domain.OutboxEvent) error: handler publishing the event.
	//
	// Returns
	//
	// - bool: whether an event was popped
	//
	// - error
	Pop(context.Context, func(domain.OutboxEvent) error) (bool, error)
}
