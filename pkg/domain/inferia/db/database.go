package db

import (
	"context"

	kdeployment "github.com/inferia-ai/inferia/pkg/domain/deployment/db"
	kgateway "github.com/inferia-ai/inferia/pkg/domain/gateway/db"
	koutbox "github.com/inferia-ai/inferia/pkg/domain/outbox/db"
	kpool "github.com/inferia-ai/inferia/pkg/domain/pool/db"
	kregistry "github.com/inferia-ai/inferia/pkg/domain/registry/db"
)

type InferiaDatabase interface {
	Pool() kpool.PoolInterface
	Registry() kregistry.RegistryInterface
	Deployment() kdeployment.DeploymentInterface
	Outbox() koutbox.OutboxInterface
	Gateway() kgateway.GatewayInterface

	// Ping verifies the control database is reachable.
	Ping(ctx context.Context) error

	Close() error
}
