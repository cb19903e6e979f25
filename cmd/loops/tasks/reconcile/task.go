package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/inferia-ai/inferia/cmd/loops/recurring"
	"github.com/inferia-ai/inferia/pkg/bus"
	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/deployment/controller"
	kdeployment "github.com/inferia-ai/inferia/pkg/domain/deployment/db"
	kerr "github.com/inferia-ai/inferia/pkg/domain/errors"
	kpool "github.com/inferia-ai/inferia/pkg/domain/pool/db"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter"
	kregistry "github.com/inferia-ai/inferia/pkg/domain/registry/db"
	"github.com/inferia-ai/inferia/pkg/utils/retry"
)

type Config struct {
	// MaxAttempts is how many provisioning attempts a deployment gets
	// before it is left in failed.
	MaxAttempts int

	// RetryBackoff is the wait before a failed deployment re-enters
	// provisioning. It doubles with each attempt already spent.
	RetryBackoff time.Duration

	// FetchSize is how many events one cycle takes off the bus.
	FetchSize int64
}

func DefaultConfig() Config {
	return Config{MaxAttempts: 3, RetryBackoff: 2 * time.Second, FetchSize: 16}
}

// initial value for task
func Seed() any {
	return nil
}

// Task reacts on deployment events.
//
//   - deployment.created: move the deployment into provisioning.
//   - status changed to provisioning: acquire a node and move to
//     running, or to failed when the provider gives up.
//   - status changed to failed: re-enter provisioning while attempts
//     remain.
//   - deletion requested: release the node and move to terminated.
//
// Every reaction goes through the transition-checked repository, so a
// duplicate or stale event is rejected there and dropped here. Events
// failing on anything transient stay unacked and come back on the
// next cycle.
func Task(
	logger *log.Logger,
	consumer bus.Consumer,
	deployments kdeployment.DeploymentInterface,
	pools kpool.PoolInterface,
	registry kregistry.RegistryInterface,
	ctrl controller.Controller,
	eng engine.Engine,
	config Config,
) recurring.Task[any] {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.FetchSize < 1 {
		config.FetchSize = 1
	}
	h := &handler{
		logger:      logger,
		deployments: deployments,
		pools:       pools,
		registry:    registry,
		ctrl:        ctrl,
		engine:      eng,
		config:      config,
	}

	return func(ctx context.Context, value any) (any, bool, error) {
		deliveries, err := consumer.Fetch(ctx, config.FetchSize)
		if err != nil {
			return value, false, err
		}

		handled := false
		kept := map[string]bool{}
		for _, delivery := range deliveries {
			event := delivery.Event
			payload, perr := domain.UnmarshalDeploymentEvent(event.Payload)
			if perr != nil {
				// a broken payload never gets better. Drop it.
				logger.Printf("event %s: unreadable payload dropped: %s", event.Id, perr)
			} else if kept[payload.DeploymentId] {
				// an earlier event of this deployment is waiting for
				// redelivery. Handling this one first would reorder the
				// deployment's history, so it waits too.
				logger.Printf("event %s (%s): held behind a kept event", event.Id, event.Type)
				continue
			} else if err := h.handle(ctx, event, payload); err != nil {
				if kerr.AsInvalidStatusChanging(err) || kerr.AsMissingError(err) {
					// duplicate or stale delivery. Drop it.
					logger.Printf("event %s (%s): dropped: %s", event.Id, event.Type, err)
				} else {
					logger.Printf("event %s (%s): kept for retry: %s", event.Id, event.Type, err)
					kept[payload.DeploymentId] = true
					continue
				}
			}
			if err := delivery.Ack(ctx); err != nil {
				return value, handled, err
			}
			handled = true
		}

		return value, handled, nil
	}
}

type handler struct {
	logger      *log.Logger
	deployments kdeployment.DeploymentInterface
	pools       kpool.PoolInterface
	registry    kregistry.RegistryInterface
	ctrl        controller.Controller
	engine      engine.Engine
	config      Config
}

func (h *handler) handle(ctx context.Context, event bus.Event, payload domain.DeploymentEvent) error {
	switch event.Type {
	case domain.DeploymentCreated:
		return h.ctrl.Advance(ctx, payload.DeploymentId, domain.Provisioning, domain.Outcome{})

	case domain.DeploymentStatusChanged:
		switch payload.Status {
		case domain.Provisioning:
			return h.provision(ctx, payload.DeploymentId)
		case domain.Failed:
			return h.maybeRetry(ctx, payload.DeploymentId)
		case domain.Terminating:
			return h.terminate(ctx, payload.DeploymentId)
		default:
			// running, ready and terminated need no reaction here.
			return nil
		}

	case domain.DeploymentDeleteRequest:
		return h.terminate(ctx, payload.DeploymentId)

	default:
		h.logger.Printf("event %s: unknown type %s dropped", event.Id, event.Type)
		return nil
	}
}

func (h *handler) get(ctx context.Context, id string) (domain.Deployment, error) {
	deployments, err := h.deployments.Get(ctx, []string{id})
	if err != nil {
		return domain.Deployment{}, err
	}
	dep, ok := deployments[id]
	if !ok {
		return domain.Deployment{}, fmt.Errorf("%w: deployment %s", kerr.ErrMissing, id)
	}
	return dep, nil
}

func (h *handler) provision(ctx context.Context, id string) error {
	dep, err := h.get(ctx, id)
	if err != nil {
		return err
	}
	if dep.Status != domain.Provisioning {
		// stale event. The deployment moved on without us.
		return nil
	}

	pools, err := h.pools.Get(ctx, []string{dep.PoolId})
	if err != nil {
		return err
	}
	pool, ok := pools[dep.PoolId]
	if !ok {
		return fmt.Errorf("%w: pool %s", kerr.ErrMissing, dep.PoolId)
	}

	model, err := h.registry.Get(ctx, dep.ModelName)
	if err != nil {
		return err
	}

	node, err := h.engine.Provision(ctx, adapter.ProvisionRequest{
		DeploymentId:  dep.Id,
		Pool:          pool,
		Model:         model,
		Engine:        dep.Engine,
		Configuration: dep.Configuration,

		// stable per attempt: a redelivered provisioning event reuses
		// the token and lands on the node of the first try.
		Token: fmt.Sprintf("%s/%d", dep.Id, dep.Retries),
	})
	if err != nil {
		h.logger.Printf("deployment %s: provisioning attempt %d failed: %s", dep.Id, dep.Retries, err)
		return h.ctrl.Advance(ctx, dep.Id, domain.Failed, domain.Outcome{Error: err.Error()})
	}

	return h.ctrl.Advance(ctx, dep.Id, domain.Running, domain.Outcome{
		Endpoint:   "http://" + node.Hostname,
		InstanceId: node.ProviderInstanceId,
	})
}

func (h *handler) maybeRetry(ctx context.Context, id string) error {
	dep, err := h.get(ctx, id)
	if err != nil {
		return err
	}
	if dep.Status != domain.Failed {
		return nil
	}
	if h.config.MaxAttempts <= dep.Retries {
		h.logger.Printf("deployment %s: %s, staying failed: %s", dep.Id, fmt.Errorf(
			"%w (%d provisioning attempts)", kerr.ErrExhausted, dep.Retries,
		), dep.ErrorMessage)
		return nil
	}

	// back off before the next attempt, twice as long after each one spent.
	if 0 < h.config.RetryBackoff {
		delay := h.config.RetryBackoff
		for i := 1; i < dep.Retries; i++ {
			delay *= 2
		}
		if err := retry.StaticBackoff(delay)(ctx); err != nil {
			return err
		}
	}

	return h.ctrl.Advance(ctx, dep.Id, domain.Provisioning, domain.Outcome{})
}

func (h *handler) terminate(ctx context.Context, id string) error {
	dep, err := h.get(ctx, id)
	if err != nil {
		return err
	}
	if dep.Status != domain.Terminating {
		return nil
	}

	if dep.InstanceId != "" {
		pools, err := h.pools.Get(ctx, []string{dep.PoolId})
		if err != nil {
			return err
		}
		pool, ok := pools[dep.PoolId]
		if !ok {
			return fmt.Errorf("%w: pool %s", kerr.ErrMissing, dep.PoolId)
		}
		if err := h.engine.Deprovision(ctx, pool, dep.InstanceId); err != nil {
			// the node is abandoned to the provider's own cleanup.
			h.logger.Printf("deployment %s: releasing node %s failed: %s", dep.Id, dep.InstanceId, err)
		}
	}

	return h.ctrl.Advance(ctx, dep.Id, domain.Terminated, domain.Outcome{})
}
