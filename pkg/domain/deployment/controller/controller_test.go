package controller_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"testing"

	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/deployment/controller"
	mockdeployment "github.com/inferia-ai/inferia/pkg/domain/deployment/db/mock"
	kerr "github.com/inferia-ai/inferia/pkg/domain/errors"
	dberr "github.com/inferia-ai/inferia/pkg/domain/errors/dberrors/postgres"
	mockgateway "github.com/inferia-ai/inferia/pkg/domain/gateway/db/mock"
	mockregistry "github.com/inferia-ai/inferia/pkg/domain/registry/db/mock"
	"github.com/inferia-ai/inferia/pkg/utils/try"
)

func quietLogger() *log.Logger {
	return log.New(logSink{}, "", 0)
}

type logSink struct{}

func (logSink) Write(p []byte) (int, error) { return len(p), nil }

func TestController_Create(t *testing.T) {
	model := domain.ModelSpec{
		Name: "llama-3-70b", Version: "1", Source: "s3://models/llama-3-70b",
		MinGPUMemoryGB: 80, MinVCPU: 8,
	}
	spec := domain.NewDeploymentSpec{
		OrgId: "org-1", ModelName: "llama-3-70b", Engine: "vllm",
		Configuration: map[string]string{"max_batch_size": "8"},
	}

	t.Run("it creates a deployment for a registered model", func(t *testing.T) {
		ctx := context.Background()
		registry := mockregistry.NewRegistryInterface()
		registry.Impl.Get = func(_ context.Context, name string) (domain.ModelSpec, error) {
			if name != model.Name {
				t.Errorf("unexpected model name: %s", name)
			}
			return model, nil
		}
		deployment := mockdeployment.NewDeploymentInterface()
		deployment.Impl.New = func(_ context.Context, gotSpec domain.NewDeploymentSpec, gotModel domain.ModelSpec) (string, error) {
			if gotSpec.OrgId != spec.OrgId || !gotModel.Equal(model) {
				t.Errorf("unexpected args: %+v %+v", gotSpec, gotModel)
			}
			return "deployment-1", nil
		}
		testee := controller.New(deployment, registry, mockgateway.NewGatewayInterface(), quietLogger())

		id := try.To(testee.Create(ctx, spec)).OrFatal(t)
		if id != "deployment-1" {
			t.Errorf("unexpected id: %s", id)
		}
		if deployment.Calls.New.Times() != 1 {
			t.Errorf("New should be called once, but %d times", deployment.Calls.New.Times())
		}
	})

	t.Run("it rejects an unregistered model as a validation error", func(t *testing.T) {
		ctx := context.Background()
		registry := mockregistry.NewRegistryInterface()
		registry.Impl.Get = func(context.Context, string) (domain.ModelSpec, error) {
			return domain.ModelSpec{}, dberr.Missing{Table: "model_registry", Identity: "llama-3-70b"}
		}
		testee := controller.New(
			mockdeployment.NewDeploymentInterface(), registry,
			mockgateway.NewGatewayInterface(), quietLogger(),
		)

		_, err := testee.Create(ctx, spec)
		if !kerr.AsValidation(err) {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("it rejects incomplete requests without touching the registry", func(t *testing.T) {
		ctx := context.Background()
		testee := controller.New(
			mockdeployment.NewDeploymentInterface(), mockregistry.NewRegistryInterface(),
			mockgateway.NewGatewayInterface(), quietLogger(),
		)

		for name, incomplete := range map[string]domain.NewDeploymentSpec{
			"missing org":    {ModelName: "llama-3-70b", Engine: "vllm"},
			"missing model":  {OrgId: "org-1", Engine: "vllm"},
			"missing engine": {OrgId: "org-1", ModelName: "llama-3-70b"},
		} {
			if _, err := testee.Create(ctx, incomplete); !kerr.AsValidation(err) {
				t.Errorf("%s: unexpected error: %+v", name, err)
			}
		}
	})

	t.Run("it passes ErrNoCapacity through", func(t *testing.T) {
		ctx := context.Background()
		registry := mockregistry.NewRegistryInterface()
		registry.Impl.Get = func(context.Context, string) (domain.ModelSpec, error) {
			return model, nil
		}
		deployment := mockdeployment.NewDeploymentInterface()
		deployment.Impl.New = func(context.Context, domain.NewDeploymentSpec, domain.ModelSpec) (string, error) {
			return "", fmt.Errorf("%w: no active pool can host model llama-3-70b", kerr.ErrNoCapacity)
		}
		testee := controller.New(deployment, registry, mockgateway.NewGatewayInterface(), quietLogger())

		_, err := testee.Create(ctx, spec)
		if !errors.Is(err, kerr.ErrNoCapacity) {
			t.Errorf("unexpected error: %+v", err)
		}
	})
}

func TestController_Advance(t *testing.T) {
	t.Run("it walks a deployment from pending to ready, syncing the gateway", func(t *testing.T) {
		ctx := context.Background()
		status := domain.Pending
		deployment := mockdeployment.NewDeploymentInterface()
		deployment.Impl.SetStatus = func(_ context.Context, id string, next domain.DeploymentStatus, _ domain.Outcome) error {
			if !status.CanAdvanceTo(next) {
				return fmt.Errorf("%w: %s -> %s", kerr.ErrInvalidStatusChanging, status, next)
			}
			status = next
			return nil
		}
		deployment.Impl.Get = func(_ context.Context, ids []string) (map[string]domain.Deployment, error) {
			return map[string]domain.Deployment{
				"deployment-1": {Id: "deployment-1", ModelName: "llama-3-70b", Status: status},
			}, nil
		}
		gateway := mockgateway.NewGatewayInterface()
		gateway.Impl.UpsertEndpoint = func(context.Context, string, string, string) error { return nil }
		testee := controller.New(deployment, mockregistry.NewRegistryInterface(), gateway, quietLogger())

		for _, step := range []struct {
			next    domain.DeploymentStatus
			outcome domain.Outcome
		}{
			{next: domain.Provisioning},
			{next: domain.Running, outcome: domain.Outcome{
				Endpoint: "http://node-1:8080", InstanceId: "i-1",
			}},
			{next: domain.Ready, outcome: domain.Outcome{Endpoint: "http://node-1:8080"}},
		} {
			if err := testee.Advance(ctx, "deployment-1", step.next, step.outcome); err != nil {
				t.Fatalf("%s: %+v", step.next, err)
			}
		}

		if status != domain.Ready {
			t.Errorf("unexpected final status: %s", status)
		}
		if gateway.Calls.UpsertEndpoint.Times() != 2 {
			t.Errorf(
				"the endpoint should be synced on running and ready, but %d times",
				gateway.Calls.UpsertEndpoint.Times(),
			)
		}
	})

	t.Run("it does not sync the gateway when the transition is rejected", func(t *testing.T) {
		ctx := context.Background()
		deployment := mockdeployment.NewDeploymentInterface()
		deployment.Impl.SetStatus = func(context.Context, string, domain.DeploymentStatus, domain.Outcome) error {
			return fmt.Errorf("%w: terminated -> running", kerr.ErrInvalidStatusChanging)
		}
		gateway := mockgateway.NewGatewayInterface()
		testee := controller.New(deployment, mockregistry.NewRegistryInterface(), gateway, quietLogger())

		err := testee.Advance(ctx, "deployment-1", domain.Running, domain.Outcome{Endpoint: "http://node-1:8080"})
		if !kerr.AsInvalidStatusChanging(err) {
			t.Errorf("unexpected error: %+v", err)
		}
		if gateway.Calls.UpsertEndpoint.Times() != 0 {
			t.Error("the gateway should not be touched")
		}
	})

	t.Run("a gateway failure does not undo the transition", func(t *testing.T) {
		ctx := context.Background()
		deployment := mockdeployment.NewDeploymentInterface()
		deployment.Impl.SetStatus = func(context.Context, string, domain.DeploymentStatus, domain.Outcome) error {
			return nil
		}
		deployment.Impl.Get = func(context.Context, []string) (map[string]domain.Deployment, error) {
			return map[string]domain.Deployment{"deployment-1": {Id: "deployment-1"}}, nil
		}
		gateway := mockgateway.NewGatewayInterface()
		gateway.Impl.UpsertEndpoint = func(context.Context, string, string, string) error {
			return errors.New("fake gateway outage")
		}
		testee := controller.New(deployment, mockregistry.NewRegistryInterface(), gateway, quietLogger())

		if err := testee.Advance(
			ctx, "deployment-1", domain.Running, domain.Outcome{Endpoint: "http://node-1:8080"},
		); err != nil {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("it removes the gateway endpoint on terminated", func(t *testing.T) {
		ctx := context.Background()
		deployment := mockdeployment.NewDeploymentInterface()
		deployment.Impl.SetStatus = func(context.Context, string, domain.DeploymentStatus, domain.Outcome) error {
			return nil
		}
		gateway := mockgateway.NewGatewayInterface()
		gateway.Impl.DeleteEndpoint = func(_ context.Context, id string) error {
			if id != "deployment-1" {
				t.Errorf("unexpected id: %s", id)
			}
			return nil
		}
		testee := controller.New(deployment, mockregistry.NewRegistryInterface(), gateway, quietLogger())

		if err := testee.Advance(ctx, "deployment-1", domain.Terminated, domain.Outcome{}); err != nil {
			t.Fatal(err)
		}
		if gateway.Calls.DeleteEndpoint.Times() != 1 {
			t.Errorf("DeleteEndpoint should be called once, but %d times", gateway.Calls.DeleteEndpoint.Times())
		}
	})
}

func TestController_Delete(t *testing.T) {
	t.Run("it requests termination and removes the endpoint", func(t *testing.T) {
		ctx := context.Background()
		deployment := mockdeployment.NewDeploymentInterface()
		deployment.Impl.RequestTermination = func(_ context.Context, id string) error {
			if id != "deployment-1" {
				t.Errorf("unexpected id: %s", id)
			}
			return nil
		}
		gateway := mockgateway.NewGatewayInterface()
		gateway.Impl.DeleteEndpoint = func(context.Context, string) error { return nil }
		testee := controller.New(deployment, mockregistry.NewRegistryInterface(), gateway, quietLogger())

		if err := testee.Delete(ctx, "deployment-1"); err != nil {
			t.Fatal(err)
		}
		if deployment.Calls.RequestTermination.Times() != 1 {
			t.Error("RequestTermination should be called once")
		}
		if gateway.Calls.DeleteEndpoint.Times() != 1 {
			t.Error("DeleteEndpoint should be called once")
		}
	})

	t.Run("it passes the repository error through", func(t *testing.T) {
		ctx := context.Background()
		deployment := mockdeployment.NewDeploymentInterface()
		deployment.Impl.RequestTermination = func(context.Context, string) error {
			return fmt.Errorf("%w: terminated -> terminating", kerr.ErrInvalidStatusChanging)
		}
		gateway := mockgateway.NewGatewayInterface()
		testee := controller.New(deployment, mockregistry.NewRegistryInterface(), gateway, quietLogger())

		if err := testee.Delete(ctx, "deployment-1"); !kerr.AsInvalidStatusChanging(err) {
			t.Errorf("unexpected error: %+v", err)
		}
		if gateway.Calls.DeleteEndpoint.Times() != 0 {
			t.Error("the gateway should not be touched")
		}
	})
}
