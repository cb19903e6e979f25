// this package provides a mock implementation of the deployment
// controller for testing.
package mock

import (
	"context"
	"errors"

	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/deployment/controller"
	dbmock "github.com/inferia-ai/inferia/pkg/domain/internal/db/mock"
)

type AdvanceCall struct {
	Id      string
	Next    domain.DeploymentStatus
	Outcome domain.Outcome
}

type Controller struct {
	Impl struct {
		Create  func(ctx context.Context, spec domain.NewDeploymentSpec) (string, error)
		Advance func(ctx context.Context, id string, next domain.DeploymentStatus, outcome domain.Outcome) error
		Delete  func(ctx context.Context, id string) error
	}

	Calls struct {
		Create  dbmock.CallLog[domain.NewDeploymentSpec]
		Advance dbmock.CallLog[AdvanceCall]
		Delete  dbmock.CallLog[string]
	}
}

func NewController() *Controller {
	return &Controller{}
}

var _ controller.Controller = &Controller{}

func (m *Controller) Create(ctx context.Context, spec domain.NewDeploymentSpec) (string, error) {
	m.Calls.Create = append(m.Calls.Create, spec)
	if m.Impl.Create != nil {
		return m.Impl.Create(ctx, spec)
	}
	panic(errors.New("it should not be called"))
}

func (m *Controller) Advance(ctx context.Context, id string, next domain.DeploymentStatus, outcome domain.Outcome) error {
	m.Calls.Advance = append(m.Calls.Advance, AdvanceCall{
		Id: id, Next: next, Outcome: outcome,
	})
	if m.Impl.Advance != nil {
		return m.Impl.Advance(ctx, id, next, outcome)
	}
	panic(errors.New("it should not be called"))
}

func (m *Controller) Delete(ctx context.Context, id string) error {
	m.Calls.Delete = append(m.Calls.Delete, id)
	if m.Impl.Delete != nil {
		return m.Impl.Delete(ctx, id)
	}
	panic(errors.New("it should not be called"))
}
