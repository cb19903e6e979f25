package mock

import (
	"context"
	"errors"

	kdb "github.com/inferia-ai/inferia/pkg/domain/gateway/db"
	dbmock "github.com/inferia-ai/inferia/pkg/domain/internal/db/mock"
)

type UpsertEndpointCall struct {
	DeploymentId string
	ModelName    string
	Endpoint     string
}

type GatewayInterface struct {
	Impl struct {
		UpsertEndpoint func(ctx context.Context, deploymentId string, modelName string, endpoint string) error
		DeleteEndpoint func(ctx context.Context, deploymentId string) error
	}

	Calls struct {
		UpsertEndpoint dbmock.CallLog[UpsertEndpointCall]
		DeleteEndpoint dbmock.CallLog[string]
	}
}

func NewGatewayInterface() *GatewayInterface {
	return &GatewayInterface{}
}

var _ kdb.GatewayInterface = &GatewayInterface{}

func (m *GatewayInterface) UpsertEndpoint(
	ctx context.Context, deploymentId string, modelName string, endpoint string,
) error {
	m.Calls.UpsertEndpoint = append(m.Calls.UpsertEndpoint, UpsertEndpointCall{
		DeploymentId: deploymentId, ModelName: modelName, Endpoint: endpoint,
	})
	if m.Impl.UpsertEndpoint != nil {
		return m.Impl.UpsertEndpoint(ctx, deploymentId, modelName, endpoint)
	}
	panic(errors.New("it should not be called"))
}

func (m *GatewayInterface) DeleteEndpoint(ctx context.Context, deploymentId string) error {
	m.Calls.DeleteEndpoint = append(m.Calls.DeleteEndpoint, deploymentId)
	if m.Impl.DeleteEndpoint != nil {
		return m.Impl.DeleteEndpoint(ctx, deploymentId)
	}
	panic(errors.New("it should not be called"))
}
