package adapter

import (
	"context"

	"github.com/inferia-ai/inferia/pkg/domain"
)

// ProvisionRequest is everything an adapter needs to bring up a node
// serving one deployment.
type ProvisionRequest struct {
	DeploymentId  string
	Pool          domain.ComputePool
	Model         domain.ModelSpec
	Engine        string
	Configuration map[string]string

	// Token dedupes retried provisioning calls at the provider side.
	// The same deployment attempt always carries the same token, so a
	// retry after a lost response does not allocate a second node.
	Token string
}

// Adapter talks to one compute provider.
//
// Implementations are stateless. All state lives at the provider or in
// the control-plane database.
type Adapter interface {
	Provider() domain.Provider

	// Discover lists the provisionable resources of the pool as the
	// provider currently reports them.
	Discover(ctx context.Context, pool domain.ComputePool) ([]domain.ComputeResource, error)

	// Provision acquires a node for the request and returns it once
	// the provider accepted the allocation. The node may not be
	// serving yet; readiness is probed separately.
	Provision(ctx context.Context, req ProvisionRequest) (domain.Node, error)

	// Deprovision releases the node. Releasing a node the provider no
	// longer knows is not an error.
	Deprovision(ctx context.Context, pool domain.ComputePool, instanceId string) error
}
