package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/inferia-ai/inferia/pkg/conn/db/postgres/pool/testenv"
	"github.com/inferia-ai/inferia/pkg/domain"
	kpgdeployment "github.com/inferia-ai/inferia/pkg/domain/deployment/db/postgres"
	kerr "github.com/inferia-ai/inferia/pkg/domain/errors"
	kpgpool "github.com/inferia-ai/inferia/pkg/domain/pool/db/postgres"
	kpgregistry "github.com/inferia-ai/inferia/pkg/domain/registry/db/postgres"
	"github.com/inferia-ai/inferia/pkg/utils/try"
)

var testPool = domain.ComputePool{
	Name: "us-east-a100", Provider: domain.EC2, Region: "us-east-1",
	GPUType: "A100", GPUCount: 1, GPUMemoryGB: 80, VCPU: 12, RAMGB: 96,
	PricingModel: "on-demand", PricePerHour: 3.5,
	Capacity: 1, Status: domain.PoolActive,
}

var testModel = domain.ModelSpec{
	Name: "llama-3-70b", Version: "1", Source: "s3://models/llama-3-70b",
	MinGPUMemoryGB: 80, MinVCPU: 8,
}

func TestDeployment_New_ConcurrentCreationsDoNotOverallocate(t *testing.T) {
	ctx := context.Background()
	poolBroaker := testenv.NewPoolBroaker(ctx, t)
	pgpool := poolBroaker.GetPool(ctx, t)

	pools := kpgpool.New(pgpool)
	registry := kpgregistry.New(pgpool)
	deployments := kpgdeployment.New(pgpool)

	try.To(pools.Register(ctx, testPool)).OrFatal(t)
	if err := registry.Register(ctx, testModel); err != nil {
		t.Fatal(err)
	}

	spec := domain.NewDeploymentSpec{
		OrgId: "org-1", ModelName: testModel.Name, Engine: "vllm",
	}

	// the pool has capacity for one. Two concurrent creations race for it;
	// the loser has to see the winner's insert and run out of pools.
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := deployments.New(ctx, spec, testModel)
			errs <- err
		}()
	}

	granted, denied := 0, 0
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			granted += 1
		case errors.Is(err, kerr.ErrNoCapacity):
			denied += 1
		default:
			t.Fatal(err)
		}
	}
	if granted != 1 || denied != 1 {
		t.Errorf("want 1 granted and 1 denied, got %d granted and %d denied", granted, denied)
	}

	ids := try.To(deployments.Find(ctx, domain.DeploymentFindQuery{})).OrFatal(t)
	if len(ids) != 1 {
		t.Errorf("the capacity-1 pool should hold 1 deployment, but holds %d", len(ids))
	}
}

func TestDeployment_EndpointIsClearedOutsideServingStatuses(t *testing.T) {
	ctx := context.Background()
	poolBroaker := testenv.NewPoolBroaker(ctx, t)
	pgpool := poolBroaker.GetPool(ctx, t)

	pools := kpgpool.New(pgpool)
	registry := kpgregistry.New(pgpool)
	deployments := kpgdeployment.New(pgpool)

	try.To(pools.Register(ctx, testPool)).OrFatal(t)
	if err := registry.Register(ctx, testModel); err != nil {
		t.Fatal(err)
	}
	spec := domain.NewDeploymentSpec{
		OrgId: "org-1", ModelName: testModel.Name, Engine: "vllm",
	}

	get := func(t *testing.T, id string) domain.Deployment {
		t.Helper()
		deps := try.To(deployments.Get(ctx, []string{id})).OrFatal(t)
		dep, ok := deps[id]
		if !ok {
			t.Fatalf("deployment %s is gone", id)
		}
		return dep
	}

	t.Run("running to terminating to terminated", func(t *testing.T) {
		id := try.To(deployments.New(ctx, spec, testModel)).OrFatal(t)
		if err := deployments.SetStatus(ctx, id, domain.Provisioning, domain.Outcome{}); err != nil {
			t.Fatal(err)
		}
		if err := deployments.SetStatus(ctx, id, domain.Running, domain.Outcome{
			Endpoint: "http://node-1:8080", InstanceId: "i-1",
		}); err != nil {
			t.Fatal(err)
		}
		if dep := get(t, id); dep.Endpoint != "http://node-1:8080" {
			t.Errorf("a running deployment should expose its endpoint: %+v", dep)
		}

		if err := deployments.RequestTermination(ctx, id); err != nil {
			t.Fatal(err)
		}
		dep := get(t, id)
		if dep.Status != domain.Terminating || dep.Endpoint != "" {
			t.Errorf("terminating should drop the endpoint: %+v", dep)
		}
		if dep.InstanceId != "i-1" {
			t.Errorf("the instance must stay until released: %+v", dep)
		}

		if err := deployments.SetStatus(ctx, id, domain.Terminated, domain.Outcome{}); err != nil {
			t.Fatal(err)
		}
		dep = get(t, id)
		if dep.Status != domain.Terminated || dep.Endpoint != "" {
			t.Errorf("terminated should hold no endpoint: %+v", dep)
		}
	})

	t.Run("running to failed", func(t *testing.T) {
		id := try.To(deployments.New(ctx, spec, testModel)).OrFatal(t)
		if err := deployments.SetStatus(ctx, id, domain.Provisioning, domain.Outcome{}); err != nil {
			t.Fatal(err)
		}
		if err := deployments.SetStatus(ctx, id, domain.Running, domain.Outcome{
			Endpoint: "http://node-2:8080", InstanceId: "i-2",
		}); err != nil {
			t.Fatal(err)
		}

		if err := deployments.SetStatus(ctx, id, domain.Failed, domain.Outcome{
			Error: "fake serving failure",
		}); err != nil {
			t.Fatal(err)
		}
		dep := get(t, id)
		if dep.Status != domain.Failed || dep.Endpoint != "" {
			t.Errorf("failed should hold no endpoint: %+v", dep)
		}
		if dep.InstanceId != "i-2" {
			t.Errorf("the instance must stay until released: %+v", dep)
		}
	})
}
