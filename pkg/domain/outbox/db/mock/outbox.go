// this package provides a mock implementation of the outbox for testing.
package mock

import (
	"context"
	"errors"

	"github.com/inferia-ai/inferia/pkg/domain"
	dbmock "github.com/inferia-ai/inferia/pkg/domain/internal/db/mock"
	kdb "github.com/inferia-ai/inferia/pkg/domain/outbox/db"
)

type OutboxInterface struct {
	Impl struct {
		Pop func(context.Context, func(domain.OutboxEvent) error) (bool, error)
	}

	Calls struct {
		Pop dbmock.CallLog[struct{}]
	}
}

func NewOutboxInterface() *OutboxInterface {
	return &OutboxInterface{}
}

var _ kdb.OutboxInterface = &OutboxInterface{}

func (m *OutboxInterface) Pop(ctx context.Context, callback func(domain.OutboxEvent) error) (bool, error) {
	m.Calls.Pop = append(m.Calls.Pop, struct{}{})
	if m.Impl.Pop != nil {
		return m.Impl.Pop(ctx, callback)
	}
	panic(errors.New("it should not be called"))
}
