package db

import (
	"context"

	"github.com/inferia-ai/inferia/pkg/domain"
)

type RegistryInterface interface {
	// Register a model in the catalog.
	//
	// Entries are immutable: registering same (name, version) again
	// returns ErrConflict.
	Register(ctx context.Context, model domain.ModelSpec) error

	// Find all registered model names, sorted.
	Find(ctx context.Context) ([]string, error)

	// Retrieve the latest version of a model by name.
	//
	// Returns ErrMissing when the model is not in the catalog.
	Get(ctx context.Context, name string) (domain.ModelSpec, error)
}
