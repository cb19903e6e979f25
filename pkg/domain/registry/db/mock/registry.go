package mock

import (
	"context"
	"errors"

	"github.com/inferia-ai/inferia/pkg/domain"
	dbmock "github.com/inferia-ai/inferia/pkg/domain/internal/db/mock"
	kdb "github.com/inferia-ai/inferia/pkg/domain/registry/db"
)

type RegistryInterface struct {
	Impl struct {
		Register func(ctx context.Context, model domain.ModelSpec) error
		Find     func(ctx context.Context) ([]string, error)
		Get      func(ctx context.Context, name string) (domain.ModelSpec, error)
	}

	Calls struct {
		Register dbmock.CallLog[domain.ModelSpec]
		Find     dbmock.CallLog[struct{}]
		Get      dbmock.CallLog[string]
	}
}

func NewRegistryInterface() *RegistryInterface {
	return &RegistryInterface{}
}

var _ kdb.RegistryInterface = &RegistryInterface{}

func (m *RegistryInterface) Register(ctx context.Context, model domain.ModelSpec) error {
	m.Calls.Register = append(m.Calls.Register, model)
	if m.Impl.Register != nil {
		return m.Impl.Register(ctx, model)
	}
	panic(errors.New("it should not be called"))
}

func (m *RegistryInterface) Find(ctx context.Context) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, struct{}{})
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx)
	}
	panic(errors.New("it should not be called"))
}

func (m *RegistryInterface) Get(ctx context.Context, name string) (domain.ModelSpec, error) {
	m.Calls.Get = append(m.Calls.Get, name)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, name)
	}
	panic(errors.New("it should not be called"))
}
