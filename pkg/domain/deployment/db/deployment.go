package db

import (
	"context"

	"github.com/inferia-ai/inferia/pkg/domain"
)

type DeploymentInterface interface {
	// New creates a deployment in status pending.
	//
	// It assigns the deployment to an active pool that satisfies the
	// model's resource requirements, reserving one slot of the pool's
	// capacity. Pool selection, the capacity check, the deployment row
	// and its "deployment.created" outbox row are a single transaction.
	//
	// Args
	//
	// - context.Context
	//
	// - domain.NewDeploymentSpec
	//
	// - domain.ModelSpec: the model to be served, as registered.
	//
	// Returns
	//
	// - string: id of the new deployment
	//
	// - error: ErrNoCapacity when no satisfying pool has a free slot.
	New(context.Context, domain.NewDeploymentSpec, domain.ModelSpec) (string, error)

	// Get retrieves deployments by id.
	//
	// Ids not found are not in the returned map, and no error is caused.
	Get(ctx context.Context, ids []string) (map[string]domain.Deployment, error)

	// Find retrieves ids of deployments matching the query,
	// ordered by creation time.
	Find(ctx context.Context, query domain.DeploymentFindQuery) ([]string, error)

	// SetStatus advances the status of a deployment.
	//
	// The transition is checked against the lifecycle rules while the
	// row is locked. The update and its "deployment.status.changed"
	// outbox row are a single transaction.
	//
	// Args
	//
	// - context.Context
	//
	// - string: id of the deployment
	//
	// - domain.DeploymentStatus: the status to be set
	//
	// - domain.Outcome: endpoint, instance id and error carried by
	// the transition. Zero values leave the columns as they are.
	//
	// Returns
	//
	// - error: ErrMissing when no such deployment exists,
	// ErrInvalidStatusChanging when the lifecycle forbids the move.
	SetStatus(ctx context.Context, id string, status domain.DeploymentStatus, outcome domain.Outcome) error

	// RequestTermination moves a deployment to terminating and records
	// a "deployment.delete.requested" outbox row, in one transaction.
	//
	// Deployments already terminating or terminated cause
	// ErrInvalidStatusChanging.
	RequestTermination(ctx context.Context, id string) error
}
