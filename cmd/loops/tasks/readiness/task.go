package readiness

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/inferia-ai/inferia/cmd/loops/recurring"
	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/deployment/controller"
	kdeployment "github.com/inferia-ai/inferia/pkg/domain/deployment/db"
	kerr "github.com/inferia-ai/inferia/pkg/domain/errors"
)

type Config struct {
	// ProbePath is requested on the deployment's endpoint.
	ProbePath string

	// ProbeTimeout bounds one probe request.
	ProbeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ProbePath:    "/health",
		ProbeTimeout: 5 * time.Second,
	}
}

// initial value for task
func Seed() any {
	return nil
}

// Task promotes running deployments to ready.
//
// A deployment is running once its node is up, but the model may still
// be loading. Each cycle probes every running deployment's endpoint
// and advances the ones which answer. The rest stay running and are
// probed again next cycle.
func Task(
	logger *log.Logger,
	deployments kdeployment.DeploymentInterface,
	ctrl controller.Controller,
	client *http.Client,
	config Config,
) recurring.Task[any] {
	if client == nil {
		client = http.DefaultClient
	}
	if config.ProbePath == "" {
		config.ProbePath = "/health"
	}

	return func(ctx context.Context, value any) (any, bool, error) {
		ids, err := deployments.Find(ctx, domain.DeploymentFindQuery{
			Status: []domain.DeploymentStatus{domain.Running},
		})
		if err != nil {
			return value, false, err
		}
		if len(ids) == 0 {
			return value, false, nil
		}

		found, err := deployments.Get(ctx, ids)
		if err != nil {
			return value, false, err
		}

		promoted := false
		for _, id := range ids {
			dep, ok := found[id]
			if !ok || dep.Endpoint == "" {
				continue
			}

			if !probe(ctx, client, dep.Endpoint+config.ProbePath, config.ProbeTimeout) {
				continue
			}

			err := ctrl.Advance(ctx, dep.Id, domain.Ready, domain.Outcome{Endpoint: dep.Endpoint})
			if err != nil {
				if kerr.AsInvalidStatusChanging(err) {
					// the deployment moved on between Find and now.
					continue
				}
				return value, promoted, err
			}
			logger.Printf("deployment %s: endpoint %s answered, now ready", dep.Id, dep.Endpoint)
			promoted = true
		}

		return value, promoted, nil
	}
}

func probe(ctx context.Context, client *http.Client, url string, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return 200 <= resp.StatusCode && resp.StatusCode < 300
}
