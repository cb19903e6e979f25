package k8s

import (
	"context"
	"fmt"

	kubecore "k8s.io/api/core/v1"
	kubeapierr "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes"

	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter"
	"github.com/inferia-ai/inferia/pkg/utils/slices"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

const (
	labelApp          = "app.kubernetes.io/name"
	labelAppValue     = "inferia-serve"
	labelPoolId       = "inferia.ai/pool-id"
	labelDeploymentId = "inferia.ai/deployment-id"
)

type Config struct {
	Namespace string

	// Image is the inference runtime image. The engine name and the
	// model source are passed to it via environment variables.
	Image string

	ServePort int
}

type k8sAdapter struct {
	client kubernetes.Interface
	config Config
}

func New(client kubernetes.Interface, config Config) adapter.Adapter {
	return &k8sAdapter{client: client, config: config}
}

func (a *k8sAdapter) Provider() domain.Provider {
	return domain.Kubernetes
}

func (a *k8sAdapter) Discover(ctx context.Context, pool domain.ComputePool) ([]domain.ComputeResource, error) {
	pods, err := a.client.CoreV1().Pods(a.config.Namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", labelPoolId, pool.PoolId),
	})
	if err != nil {
		return nil, xerrors.Wrap(err)
	}

	inUse := 0
	for _, pod := range pods.Items {
		switch pod.Status.Phase {
		case kubecore.PodSucceeded, kubecore.PodFailed:
			// finished pods do not hold a slot.
		default:
			inUse += 1
		}
	}

	resources := []domain.ComputeResource{}
	for nth := 0; nth < pool.Capacity-inUse; nth++ {
		resources = append(resources, domain.ComputeResource{
			Provider:           domain.Kubernetes,
			ProviderResourceId: fmt.Sprintf("%s/slot/%d", pool.PoolId, inUse+nth),
			GPUType:            pool.GPUType,
			GPUCount:           pool.GPUCount,
			GPUMemoryGB:        pool.GPUMemoryGB,
			VCPU:               pool.VCPU,
			RAMGB:              pool.RAMGB,
			Region:             pool.Region,
			PricingModel:       pool.PricingModel,
			PricePerHour:       pool.PricePerHour,
		})
	}
	return resources, nil
}

func (a *k8sAdapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (domain.Node, error) {
	name := instanceName(req.DeploymentId)
	labels := map[string]string{
		labelApp:          labelAppValue,
		labelPoolId:       req.Pool.PoolId,
		labelDeploymentId: req.DeploymentId,
	}

	env := []kubecore.EnvVar{
		{Name: "INFERIA_MODEL_SOURCE", Value: req.Model.Source},
		{Name: "INFERIA_MODEL_NAME", Value: req.Model.Name},
		{Name: "INFERIA_ENGINE", Value: req.Engine},
	}
	for _, key := range slices.KeysOf(req.Configuration) {
		env = append(env, kubecore.EnvVar{
			Name:  "INFERIA_CONF_" + key,
			Value: req.Configuration[key],
		})
	}

	pod := &kubecore.Pod{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:      name,
			Namespace: a.config.Namespace,
			Labels:    labels,
		},
		Spec: kubecore.PodSpec{
			RestartPolicy: kubecore.RestartPolicyNever,
			Containers: []kubecore.Container{
				{
					Name:  "serve",
					Image: a.config.Image,
					Env:   env,
					Ports: []kubecore.ContainerPort{
						{Name: "serve", ContainerPort: int32(a.config.ServePort)},
					},
					Resources: kubecore.ResourceRequirements{
						Limits: kubecore.ResourceList{
							"nvidia.com/gpu": *resource.NewQuantity(
								int64(req.Pool.GPUCount), resource.DecimalSI,
							),
						},
					},
				},
			},
		},
	}

	// Names are derived from the deployment id, so a retried Provision
	// finds its own earlier pod instead of creating a second one.
	_, err := a.client.CoreV1().Pods(a.config.Namespace).Create(ctx, pod, kubeapimeta.CreateOptions{})
	if err != nil && !kubeapierr.IsAlreadyExists(err) {
		return domain.Node{}, xerrors.Wrap(err)
	}

	service := &kubecore.Service{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:      name,
			Namespace: a.config.Namespace,
			Labels:    labels,
		},
		Spec: kubecore.ServiceSpec{
			Selector: map[string]string{labelDeploymentId: req.DeploymentId},
			Ports: []kubecore.ServicePort{
				{
					Name:       "serve",
					Port:       int32(a.config.ServePort),
					TargetPort: intstr.FromInt(a.config.ServePort),
				},
			},
		},
	}
	_, err = a.client.CoreV1().Services(a.config.Namespace).Create(ctx, service, kubeapimeta.CreateOptions{})
	if err != nil && !kubeapierr.IsAlreadyExists(err) {
		return domain.Node{}, xerrors.Wrap(err)
	}

	return domain.Node{
		ProviderInstanceId: name,
		Hostname: fmt.Sprintf(
			"%s.%s.svc:%d", name, a.config.Namespace, a.config.ServePort,
		),
	}, nil
}

func (a *k8sAdapter) Deprovision(ctx context.Context, pool domain.ComputePool, instanceId string) error {
	err := a.client.CoreV1().Services(a.config.Namespace).Delete(ctx, instanceId, kubeapimeta.DeleteOptions{})
	if err != nil && !kubeapierr.IsNotFound(err) {
		return xerrors.Wrap(err)
	}
	err = a.client.CoreV1().Pods(a.config.Namespace).Delete(ctx, instanceId, kubeapimeta.DeleteOptions{})
	if err != nil && !kubeapierr.IsNotFound(err) {
		return xerrors.Wrap(err)
	}
	return nil
}

func instanceName(deploymentId string) string {
	return "inferia-" + deploymentId
}
