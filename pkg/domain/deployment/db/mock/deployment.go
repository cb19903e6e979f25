package mock

import (
	"context"
	"errors"

	"github.com/inferia-ai/inferia/pkg/domain"
	kdb "github.com/inferia-ai/inferia/pkg/domain/deployment/db"
	dbmock "github.com/inferia-ai/inferia/pkg/domain/internal/db/mock"
)

type NewCall struct {
	Spec  domain.NewDeploymentSpec
	Model domain.ModelSpec
}

type SetStatusCall struct {
	Id      string
	Status  domain.DeploymentStatus
	Outcome domain.Outcome
}

type DeploymentInterface struct {
	Impl struct {
		New                func(ctx context.Context, spec domain.NewDeploymentSpec, model domain.ModelSpec) (string, error)
		Get                func(ctx context.Context, ids []string) (map[string]domain.Deployment, error)
		Find               func(ctx context.Context, query domain.DeploymentFindQuery) ([]string, error)
		SetStatus          func(ctx context.Context, id string, status domain.DeploymentStatus, outcome domain.Outcome) error
		RequestTermination func(ctx context.Context, id string) error
	}

	Calls struct {
		New                dbmock.CallLog[NewCall]
		Get                dbmock.CallLog[[]string]
		Find               dbmock.CallLog[domain.DeploymentFindQuery]
		SetStatus          dbmock.CallLog[SetStatusCall]
		RequestTermination dbmock.CallLog[string]
	}
}

func NewDeploymentInterface() *DeploymentInterface {
	return &DeploymentInterface{}
}

var _ kdb.DeploymentInterface = &DeploymentInterface{}

func (m *DeploymentInterface) New(
	ctx context.Context, spec domain.NewDeploymentSpec, model domain.ModelSpec,
) (string, error) {
	m.Calls.New = append(m.Calls.New, NewCall{Spec: spec, Model: model})
	if m.Impl.New != nil {
		return m.Impl.New(ctx, spec, model)
	}
	panic(errors.New("it should not be called"))
}

func (m *DeploymentInterface) Get(ctx context.Context, ids []string) (map[string]domain.Deployment, error) {
	m.Calls.Get = append(m.Calls.Get, ids)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, ids)
	}
	panic(errors.New("it should not be called"))
}

func (m *DeploymentInterface) Find(ctx context.Context, query domain.DeploymentFindQuery) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, query)
	}
	panic(errors.New("it should not be called"))
}

func (m *DeploymentInterface) SetStatus(
	ctx context.Context, id string, status domain.DeploymentStatus, outcome domain.Outcome,
) error {
	m.Calls.SetStatus = append(m.Calls.SetStatus, SetStatusCall{Id: id, Status: status, Outcome: outcome})
	if m.Impl.SetStatus != nil {
		return m.Impl.SetStatus(ctx, id, status, outcome)
	}
	panic(errors.New("it should not be called"))
}

func (m *DeploymentInterface) RequestTermination(ctx context.Context, id string) error {
	m.Calls.RequestTermination = append(m.Calls.RequestTermination, id)
	if m.Impl.RequestTermination != nil {
		return m.Impl.RequestTermination(ctx, id)
	}
	panic(errors.New("it should not be called"))
}
