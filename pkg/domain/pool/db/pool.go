package db

import (
	"context"

	"github.com/inferia-ai/inferia/pkg/domain"
)

type PoolInterface interface {
	// Register a new compute pool.
	//
	// Args
	//
	// - context.Context
	//
	// - domain.ComputePool: pool to be registered. PoolId, CreatedAt and
	// UpdatedAt are assigned by the repository.
	//
	// Returns
	//
	// - string: pool id which is newly assigned.
	//
	// - error: ErrConflict when a pool with same name exists.
	Register(ctx context.Context, pool domain.ComputePool) (string, error)

	// Find pool ids, optionally restricted to given statuses.
	//
	// When statuses is nil or empty, all pools match.
	Find(ctx context.Context, statuses []domain.PoolStatus) ([]string, error)

	// Retrieve pools.
	//
	// Returns mapping poolId -> ComputePool. Missing ids are left out silently.
	Get(ctx context.Context, poolIds []string) (map[string]domain.ComputePool, error)

	// update pool status.
	//
	// Returns ErrMissing when no pool is found for poolId.
	SetStatus(ctx context.Context, poolId string, status domain.PoolStatus) error
}
