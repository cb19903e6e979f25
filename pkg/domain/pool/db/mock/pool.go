package mock

import (
	"context"
	"errors"

	"github.com/inferia-ai/inferia/pkg/domain"
	dbmock "github.com/inferia-ai/inferia/pkg/domain/internal/db/mock"
	kdb "github.com/inferia-ai/inferia/pkg/domain/pool/db"
)

type PoolInterface struct {
	Impl struct {
		Register  func(ctx context.Context, pool domain.ComputePool) (string, error)
		Find      func(ctx context.Context, statuses []domain.PoolStatus) ([]string, error)
		Get       func(ctx context.Context, poolIds []string) (map[string]domain.ComputePool, error)
		SetStatus func(ctx context.Context, poolId string, status domain.PoolStatus) error
	}

	Calls struct {
		Register  dbmock.CallLog[domain.ComputePool]
		Find      dbmock.CallLog[[]domain.PoolStatus]
		Get       dbmock.CallLog[[]string]
		SetStatus dbmock.CallLog[struct {
			PoolId string
			Status domain.PoolStatus
		}]
	}
}

func NewPoolInterface() *PoolInterface {
	return &PoolInterface{}
}

var _ kdb.PoolInterface = &PoolInterface{}

func (m *PoolInterface) Register(ctx context.Context, pool domain.ComputePool) (string, error) {
	m.Calls.Register = append(m.Calls.Register, pool)
	if m.Impl.Register != nil {
		return m.Impl.Register(ctx, pool)
	}
	panic(errors.New("it should not be called"))
}

func (m *PoolInterface) Find(ctx context.Context, statuses []domain.PoolStatus) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, statuses)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, statuses)
	}
	panic(errors.New("it should not be called"))
}

func (m *PoolInterface) Get(ctx context.Context, poolIds []string) (map[string]domain.ComputePool, error) {
	m.Calls.Get = append(m.Calls.Get, poolIds)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, poolIds)
	}
	panic(errors.New("it should not be called"))
}

func (m *PoolInterface) SetStatus(ctx context.Context, poolId string, status domain.PoolStatus) error {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		PoolId string
		Status domain.PoolStatus
	}{PoolId: poolId, Status: status})
	if m.Impl.SetStatus != nil {
		return m.Impl.SetStatus(ctx, poolId, status)
	}
	panic(errors.New("it should not be called"))
}
