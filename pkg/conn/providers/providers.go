// Package providers instantiates one engine adapter per provider
// named in the config.
package providers

import (
	"context"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	configs "github.com/inferia-ai/inferia/pkg/configs/control"
	connk8s "github.com/inferia-ai/inferia/pkg/conn/k8s"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter/depin"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter/ec2"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter/k8s"
	"github.com/inferia-ai/inferia/pkg/utils/try"
)

// Build adapters for the configured providers.
//
// A process runs with whatever subset is configured. Pools on an
// unconfigured provider are reported as errors by the engine.
func Build(
	ctx context.Context, logger *log.Logger, providers *configs.ProvidersConfig,
) []adapter.Adapter {
	adapters := []adapter.Adapter{}

	if c := providers.EC2(); c != nil {
		awsconf := try.To(awsconfig.LoadDefaultConfig(ctx)).OrFatal(logger)
		instanceTypes := map[string]ec2types.InstanceType{}
		for gpuType, instanceType := range c.InstanceTypes() {
			instanceTypes[gpuType] = ec2types.InstanceType(instanceType)
		}
		adapters = append(adapters, ec2.New(
			awsec2.NewFromConfig(awsconf),
			ec2.Config{
				ImageId:          c.ImageId(),
				SubnetId:         c.SubnetId(),
				SecurityGroupIds: c.SecurityGroupIds(),
				InstanceTypes:    instanceTypes,
				ServePort:        int(c.ServePort()),
			},
		))
	}

	if c := providers.K8s(); c != nil {
		adapters = append(adapters, k8s.New(
			connk8s.ConnectToK8s(),
			k8s.Config{
				Namespace: c.Namespace(),
				Image:     c.Image(),
				ServePort: int(c.ServePort()),
			},
		))
	}

	if c := providers.DePIN(); c != nil {
		adapters = append(adapters, depin.New(nil, c.BaseUrl()))
	}

	return adapters
}
