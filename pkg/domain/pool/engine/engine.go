package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter"
	"github.com/inferia-ai/inferia/pkg/utils/retry"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

// Engine fronts the provider adapters.
//
// It picks the adapter for a pool, bounds how long provider calls may
// take and keeps the last successful discovery per pool so that a
// flapping provider API does not blank out the inventory view.
type Engine interface {
	// DiscoverResources lists the pool's provisionable resources.
	//
	// On provider failure the locally cached result of the last
	// successful discovery is returned, marked stale. When there is
	// no cache either, the provider's error is returned.
	DiscoverResources(ctx context.Context, pool domain.ComputePool) (Discovery, error)

	// Provision acquires a node for the request.
	//
	// When the request carries no idempotency token one is minted, so
	// retries at the provider side stay deduplicated within this call
	// only. Callers wanting dedup across their own retries pass a
	// stable token.
	Provision(ctx context.Context, req adapter.ProvisionRequest) (domain.Node, error)

	// Deprovision releases the node, retrying transient provider
	// failures a bounded number of times.
	Deprovision(ctx context.Context, pool domain.ComputePool, instanceId string) error
}

// Discovery is a (possibly cached) inventory snapshot of one pool.
type Discovery struct {
	Resources []domain.ComputeResource
	Taken     time.Time

	// Stale is set when Resources come from the cache because the
	// provider could not be reached.
	Stale bool
}

type Config struct {
	// ProvisionTimeout bounds one provisioning call. Zero means no bound.
	ProvisionTimeout time.Duration

	// DeprovisionAttempts is how often a failing deprovision is tried
	// before giving up. At least 1.
	DeprovisionAttempts int

	// DeprovisionBackoff is the initial wait between deprovision
	// attempts. It doubles per attempt.
	DeprovisionBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		ProvisionTimeout:    10 * time.Minute,
		DeprovisionAttempts: 5,
		DeprovisionBackoff:  2 * time.Second,
	}
}

type engine struct {
	adapters map[domain.Provider]adapter.Adapter
	config   Config

	mu    sync.Mutex
	cache map[string]Discovery
}

func New(config Config, adapters ...adapter.Adapter) Engine {
	byProvider := map[domain.Provider]adapter.Adapter{}
	for _, a := range adapters {
		byProvider[a.Provider()] = a
	}
	if config.DeprovisionAttempts < 1 {
		config.DeprovisionAttempts = 1
	}
	return &engine{
		adapters: byProvider,
		config:   config,
		cache:    map[string]Discovery{},
	}
}

func (e *engine) adapterFor(pool domain.ComputePool) (adapter.Adapter, error) {
	a, ok := e.adapters[pool.Provider]
	if !ok {
		return nil, xerrors.New(fmt.Sprintf(
			"no adapter is registered for provider %s (pool %s)", pool.Provider, pool.PoolId,
		))
	}
	return a, nil
}

func (e *engine) DiscoverResources(ctx context.Context, pool domain.ComputePool) (Discovery, error) {
	a, err := e.adapterFor(pool)
	if err != nil {
		return Discovery{}, err
	}

	resources, err := a.Discover(ctx, pool)
	if err != nil {
		e.mu.Lock()
		cached, ok := e.cache[pool.PoolId]
		e.mu.Unlock()
		if !ok {
			return Discovery{}, err
		}
		cached.Stale = true
		return cached, nil
	}

	discovery := Discovery{Resources: resources, Taken: time.Now()}
	e.mu.Lock()
	e.cache[pool.PoolId] = discovery
	e.mu.Unlock()

	return discovery, nil
}

func (e *engine) Provision(ctx context.Context, req adapter.ProvisionRequest) (domain.Node, error) {
	a, err := e.adapterFor(req.Pool)
	if err != nil {
		return domain.Node{}, err
	}

	if req.Token == "" {
		req.Token = uuid.NewString()
	}

	if e.config.ProvisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.ProvisionTimeout)
		defer cancel()
	}

	return a.Provision(ctx, req)
}

func (e *engine) Deprovision(ctx context.Context, pool domain.ComputePool, instanceId string) error {
	a, err := e.adapterFor(pool)
	if err != nil {
		return err
	}

	attempts := 0
	wait := retry.ExponentialBackoff(e.config.DeprovisionBackoff, 2)
	_, err = retry.Blocking(ctx, func(ctx context.Context) error {
		attempts += 1
		if attempts == 1 {
			// no wait before the first attempt.
			return nil
		}
		return wait(ctx)
	}, func() (struct{}, error) {
		err := a.Deprovision(ctx, pool, instanceId)
		if err == nil {
			return struct{}{}, nil
		}
		if attempts < e.config.DeprovisionAttempts {
			return struct{}{}, fmt.Errorf("%w: %s", retry.ErrRetry, err)
		}
		return struct{}{}, err
	})
	return err
}
