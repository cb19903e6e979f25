package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter"
	mockadapter "github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter/mock"
	"github.com/inferia-ai/inferia/pkg/utils/cmp"
	"github.com/inferia-ai/inferia/pkg/utils/try"
)

func fastConfig() engine.Config {
	return engine.Config{
		ProvisionTimeout:    time.Second,
		DeprovisionAttempts: 3,
		DeprovisionBackoff:  time.Millisecond,
	}
}

func TestEngine_DiscoverResources(t *testing.T) {
	pool := domain.ComputePool{
		PoolId: "pool-1", Provider: domain.EC2, Capacity: 4,
		GPUType: "A100", GPUCount: 1, GPUMemoryGB: 80, VCPU: 12, RAMGB: 96,
	}
	resources := []domain.ComputeResource{
		{Provider: domain.EC2, ProviderResourceId: "pool-1/slot/0", GPUType: "A100"},
		{Provider: domain.EC2, ProviderResourceId: "pool-1/slot/1", GPUType: "A100"},
	}

	t.Run("it relays what the adapter reports", func(t *testing.T) {
		ctx := context.Background()
		mock := mockadapter.New(domain.EC2)
		mock.Impl.Discover = func(context.Context, domain.ComputePool) ([]domain.ComputeResource, error) {
			return resources, nil
		}
		testee := engine.New(fastConfig(), mock)

		discovery := try.To(testee.DiscoverResources(ctx, pool)).OrFatal(t)
		if discovery.Stale {
			t.Error("a fresh discovery should not be stale")
		}
		if !cmp.SliceEqWith(discovery.Resources, resources, func(a, b domain.ComputeResource) bool {
			return a == b
		}) {
			t.Errorf(
				"unexpected resources:\n===actual===\n%+v\n===expected===\n%+v",
				discovery.Resources, resources,
			)
		}
	})

	t.Run("it serves the last known inventory, marked stale, when the provider fails", func(t *testing.T) {
		ctx := context.Background()
		mock := mockadapter.New(domain.EC2)
		healthy := true
		mock.Impl.Discover = func(context.Context, domain.ComputePool) ([]domain.ComputeResource, error) {
			if healthy {
				return resources, nil
			}
			return nil, errors.New("fake provider outage")
		}
		testee := engine.New(fastConfig(), mock)

		if _, err := testee.DiscoverResources(ctx, pool); err != nil {
			t.Fatal(err)
		}

		healthy = false
		discovery := try.To(testee.DiscoverResources(ctx, pool)).OrFatal(t)
		if !discovery.Stale {
			t.Error("a cached discovery should be stale")
		}
		if len(discovery.Resources) != len(resources) {
			t.Errorf("unexpected resources: %+v", discovery.Resources)
		}
	})

	t.Run("it passes the provider error through when there is no cache", func(t *testing.T) {
		ctx := context.Background()
		expectedErr := errors.New("fake provider outage")
		mock := mockadapter.New(domain.EC2)
		mock.Impl.Discover = func(context.Context, domain.ComputePool) ([]domain.ComputeResource, error) {
			return nil, expectedErr
		}
		testee := engine.New(fastConfig(), mock)

		if _, err := testee.DiscoverResources(ctx, pool); !errors.Is(err, expectedErr) {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("it errors for a pool of an unregistered provider", func(t *testing.T) {
		ctx := context.Background()
		testee := engine.New(fastConfig(), mockadapter.New(domain.EC2))

		if _, err := testee.DiscoverResources(
			ctx, domain.ComputePool{PoolId: "pool-x", Provider: domain.DePIN},
		); err == nil {
			t.Error("an error should be returned")
		}
	})
}

func TestEngine_Provision(t *testing.T) {
	pool := domain.ComputePool{PoolId: "pool-1", Provider: domain.Kubernetes}

	t.Run("it mints an idempotency token when the request has none", func(t *testing.T) {
		ctx := context.Background()
		mock := mockadapter.New(domain.Kubernetes)
		mock.Impl.Provision = func(_ context.Context, req adapter.ProvisionRequest) (domain.Node, error) {
			if req.Token == "" {
				t.Error("the adapter should receive a token")
			}
			return domain.Node{ProviderInstanceId: "i-1", Hostname: "node-1:8080"}, nil
		}
		testee := engine.New(fastConfig(), mock)

		node := try.To(testee.Provision(ctx, adapter.ProvisionRequest{
			DeploymentId: "deployment-1", Pool: pool,
		})).OrFatal(t)
		if node.ProviderInstanceId != "i-1" {
			t.Errorf("unexpected node: %+v", node)
		}
	})

	t.Run("it keeps the caller's token", func(t *testing.T) {
		ctx := context.Background()
		mock := mockadapter.New(domain.Kubernetes)
		mock.Impl.Provision = func(_ context.Context, req adapter.ProvisionRequest) (domain.Node, error) {
			return domain.Node{ProviderInstanceId: req.Token}, nil
		}
		testee := engine.New(fastConfig(), mock)

		node := try.To(testee.Provision(ctx, adapter.ProvisionRequest{
			DeploymentId: "deployment-1", Pool: pool, Token: "stable-token",
		})).OrFatal(t)
		if node.ProviderInstanceId != "stable-token" {
			t.Errorf("the adapter should receive the caller's token: %+v", node)
		}
	})

	t.Run("it bounds the provisioning time", func(t *testing.T) {
		ctx := context.Background()
		mock := mockadapter.New(domain.Kubernetes)
		mock.Impl.Provision = func(ctx context.Context, _ adapter.ProvisionRequest) (domain.Node, error) {
			<-ctx.Done()
			return domain.Node{}, ctx.Err()
		}
		config := fastConfig()
		config.ProvisionTimeout = 10 * time.Millisecond
		testee := engine.New(config, mock)

		before := time.Now()
		_, err := testee.Provision(ctx, adapter.ProvisionRequest{Pool: pool})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("unexpected error: %+v", err)
		}
		if elapsed := time.Since(before); time.Second < elapsed {
			t.Errorf("provisioning should be cut short, but took %s", elapsed)
		}
	})
}

func TestEngine_Deprovision(t *testing.T) {
	pool := domain.ComputePool{PoolId: "pool-1", Provider: domain.DePIN}

	t.Run("it retries transient failures until the adapter succeeds", func(t *testing.T) {
		ctx := context.Background()
		mock := mockadapter.New(domain.DePIN)
		failures := 2
		mock.Impl.Deprovision = func(context.Context, domain.ComputePool, string) error {
			if 0 < failures {
				failures -= 1
				return errors.New("fake transient failure")
			}
			return nil
		}
		testee := engine.New(fastConfig(), mock)

		if err := testee.Deprovision(ctx, pool, "rental-1"); err != nil {
			t.Fatal(err)
		}
		if mock.Calls.Deprovision.Times() != 3 {
			t.Errorf("unexpected attempts: %d", mock.Calls.Deprovision.Times())
		}
	})

	t.Run("it gives up after the configured attempts", func(t *testing.T) {
		ctx := context.Background()
		mock := mockadapter.New(domain.DePIN)
		mock.Impl.Deprovision = func(context.Context, domain.ComputePool, string) error {
			return errors.New("fake persistent failure")
		}
		testee := engine.New(fastConfig(), mock)

		if err := testee.Deprovision(ctx, pool, "rental-1"); err == nil {
			t.Error("an error should be returned")
		}
		if mock.Calls.Deprovision.Times() != 3 {
			t.Errorf("unexpected attempts: %d", mock.Calls.Deprovision.Times())
		}
	})
}
