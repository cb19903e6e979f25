package db

import "context"

// GatewayInterface maintains the endpoint map the inference gateway
// reads from. It lives in a separate database from the control plane.
type GatewayInterface interface {
	// UpsertEndpoint records (or replaces) the routable endpoint of a
	// deployment.
	UpsertEndpoint(ctx context.Context, deploymentId string, modelName string, endpoint string) error

	// DeleteEndpoint removes the endpoint of a deployment.
	// Removing an absent endpoint is not an error.
	DeleteEndpoint(ctx context.Context, deploymentId string) error
}
