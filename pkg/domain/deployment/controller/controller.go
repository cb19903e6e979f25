package controller

import (
	"context"
	"log"

	"github.com/inferia-ai/inferia/pkg/domain"
	kdeployment "github.com/inferia-ai/inferia/pkg/domain/deployment/db"
	kerr "github.com/inferia-ai/inferia/pkg/domain/errors"
	kgateway "github.com/inferia-ai/inferia/pkg/domain/gateway/db"
	kregistry "github.com/inferia-ai/inferia/pkg/domain/registry/db"
)

// Controller drives the deployment lifecycle.
//
// Status truth stays in the deployment repository; the controller adds
// request validation and the gateway side effects around transitions.
type Controller interface {
	// Create validates the request against the model registry and
	// creates a pending deployment on a pool with a free slot.
	//
	// An unknown model or a full platform comes back as a validation
	// error (kerr.AsValidation).
	Create(ctx context.Context, spec domain.NewDeploymentSpec) (string, error)

	// Advance moves a deployment to the next status.
	//
	// When the deployment reaches a status with a routable endpoint
	// the gateway's endpoint map is updated; when it terminates the
	// entry is removed. Gateway sync is best effort: its failure is
	// logged and does not undo the transition.
	Advance(ctx context.Context, id string, next domain.DeploymentStatus, outcome domain.Outcome) error

	// Delete requests termination of a deployment and removes its
	// gateway endpoint at once, so that traffic stops before the node
	// is torn down.
	Delete(ctx context.Context, id string) error
}

type controller struct {
	deployment kdeployment.DeploymentInterface
	registry   kregistry.RegistryInterface
	gateway    kgateway.GatewayInterface
	logger     *log.Logger
}

func New(
	deployment kdeployment.DeploymentInterface,
	registry kregistry.RegistryInterface,
	gateway kgateway.GatewayInterface,
	logger *log.Logger,
) Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &controller{
		deployment: deployment,
		registry:   registry,
		gateway:    gateway,
		logger:     logger,
	}
}

func (c *controller) Create(ctx context.Context, spec domain.NewDeploymentSpec) (string, error) {
	if spec.OrgId == "" {
		return "", kerr.NewValidation("org_id is required")
	}
	if spec.ModelName == "" {
		return "", kerr.NewValidation("model_name is required")
	}
	if spec.Engine == "" {
		return "", kerr.NewValidation("engine is required")
	}

	model, err := c.registry.Get(ctx, spec.ModelName)
	if err != nil {
		if kerr.AsMissingError(err) {
			return "", kerr.NewValidation("model %s is not registered", spec.ModelName)
		}
		return "", err
	}

	return c.deployment.New(ctx, spec, model)
}

func (c *controller) Advance(
	ctx context.Context, id string, next domain.DeploymentStatus, outcome domain.Outcome,
) error {
	if err := c.deployment.SetStatus(ctx, id, next, outcome); err != nil {
		return err
	}

	switch {
	case next.HasEndpoint() && outcome.Endpoint != "":
		deployments, err := c.deployment.Get(ctx, []string{id})
		if err != nil {
			c.logger.Printf("deployment %s: gateway sync skipped: %s", id, err)
			return nil
		}
		dep, ok := deployments[id]
		if !ok {
			return nil
		}
		if err := c.gateway.UpsertEndpoint(ctx, id, dep.ModelName, outcome.Endpoint); err != nil {
			c.logger.Printf("deployment %s: gateway sync failed: %s", id, err)
		}
	case next == domain.Terminated:
		if err := c.gateway.DeleteEndpoint(ctx, id); err != nil {
			c.logger.Printf("deployment %s: gateway cleanup failed: %s", id, err)
		}
	}

	return nil
}

func (c *controller) Delete(ctx context.Context, id string) error {
	if err := c.deployment.RequestTermination(ctx, id); err != nil {
		return err
	}
	if err := c.gateway.DeleteEndpoint(ctx, id); err != nil {
		c.logger.Printf("deployment %s: gateway cleanup failed: %s", id, err)
	}
	return nil
}
