package mock

import (
	"context"
	"errors"

	"github.com/inferia-ai/inferia/pkg/domain"
	dbmock "github.com/inferia-ai/inferia/pkg/domain/internal/db/mock"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter"
)

type DeprovisionCall struct {
	Pool       domain.ComputePool
	InstanceId string
}

type Adapter struct {
	ProviderValue domain.Provider

	Impl struct {
		Discover    func(ctx context.Context, pool domain.ComputePool) ([]domain.ComputeResource, error)
		Provision   func(ctx context.Context, req adapter.ProvisionRequest) (domain.Node, error)
		Deprovision func(ctx context.Context, pool domain.ComputePool, instanceId string) error
	}

	Calls struct {
		Discover    dbmock.CallLog[domain.ComputePool]
		Provision   dbmock.CallLog[adapter.ProvisionRequest]
		Deprovision dbmock.CallLog[DeprovisionCall]
	}
}

func New(provider domain.Provider) *Adapter {
	return &Adapter{ProviderValue: provider}
}

var _ adapter.Adapter = &Adapter{}

func (m *Adapter) Provider() domain.Provider {
	return m.ProviderValue
}

func (m *Adapter) Discover(ctx context.Context, pool domain.ComputePool) ([]domain.ComputeResource, error) {
	m.Calls.Discover = append(m.Calls.Discover, pool)
	if m.Impl.Discover != nil {
		return m.Impl.Discover(ctx, pool)
	}
	panic(errors.New("it should not be called"))
}

func (m *Adapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (domain.Node, error) {
	m.Calls.Provision = append(m.Calls.Provision, req)
	if m.Impl.Provision != nil {
		return m.Impl.Provision(ctx, req)
	}
	panic(errors.New("it should not be called"))
}

func (m *Adapter) Deprovision(ctx context.Context, pool domain.ComputePool, instanceId string) error {
	m.Calls.Deprovision = append(m.Calls.Deprovision, DeprovisionCall{Pool: pool, InstanceId: instanceId})
	if m.Impl.Deprovision != nil {
		return m.Impl.Deprovision(ctx, pool, instanceId)
	}
	panic(errors.New("it should not be called"))
}
