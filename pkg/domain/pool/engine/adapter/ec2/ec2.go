package ec2

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	smithy "github.com/aws/smithy-go"

	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine/adapter"
	"github.com/inferia-ai/inferia/pkg/utils/retry"
	"github.com/inferia-ai/inferia/pkg/xerrors"
)

const (
	tagPoolId       = "inferia:pool-id"
	tagDeploymentId = "inferia:deployment-id"

	pollInterval = 3 * time.Second
)

// Client is the slice of the EC2 API this adapter needs.
type Client interface {
	RunInstances(ctx context.Context, params *awsec2.RunInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.RunInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *awsec2.DescribeInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *awsec2.TerminateInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.TerminateInstancesOutput, error)
}

var _ Client = (*awsec2.Client)(nil)

type Config struct {
	// ImageId is the AMI every node boots from. It carries the
	// inference runtime; the engine and the model are injected via
	// instance user data.
	ImageId string

	SubnetId         string
	SecurityGroupIds []string

	// InstanceTypes maps a pool's GPUType to the EC2 instance type
	// hosting it.
	InstanceTypes map[string]ec2types.InstanceType

	// ServePort is the port the inference runtime listens on.
	ServePort int
}

type ec2Adapter struct {
	client Client
	config Config
}

func New(client Client, config Config) adapter.Adapter {
	return &ec2Adapter{client: client, config: config}
}

func (a *ec2Adapter) Provider() domain.Provider {
	return domain.EC2
}

func (a *ec2Adapter) Discover(ctx context.Context, pool domain.ComputePool) ([]domain.ComputeResource, error) {
	out, err := a.client.DescribeInstances(ctx, &awsec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("tag:" + tagPoolId), Values: []string{pool.PoolId}},
			{Name: aws.String("instance-state-name"), Values: []string{"pending", "running"}},
		},
	})
	if err != nil {
		return nil, xerrors.Wrap(err)
	}

	inUse := 0
	for _, reservation := range out.Reservations {
		inUse += len(reservation.Instances)
	}

	free := pool.Capacity - inUse
	resources := []domain.ComputeResource{}
	for nth := 0; nth < free; nth++ {
		resources = append(resources, domain.ComputeResource{
			Provider:           domain.EC2,
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

func (a *ec2Adapter) Provision(ctx context.Context, req adapter.ProvisionRequest) (domain.Node, error) {
	instanceType, ok := a.config.InstanceTypes[req.Pool.GPUType]
	if !ok {
		return domain.Node{}, xerrors.New(fmt.Sprintf(
			"no instance type is configured for GPU type %s", req.Pool.GPUType,
		))
	}

	out, err := a.client.RunInstances(ctx, &awsec2.RunInstancesInput{
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		ImageId:      aws.String(a.config.ImageId),
		InstanceType: instanceType,

		// ClientToken makes the call idempotent at the provider. A
		// retry with the same token returns the instance launched by
		// the first attempt instead of launching another.
		ClientToken: aws.String(req.Token),

		SubnetId:         optionalString(a.config.SubnetId),
		SecurityGroupIds: a.config.SecurityGroupIds,
		TagSpecifications: []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeInstance,
				Tags: []ec2types.Tag{
					{Key: aws.String(tagPoolId), Value: aws.String(req.Pool.PoolId)},
					{Key: aws.String(tagDeploymentId), Value: aws.String(req.DeploymentId)},
					{Key: aws.String("Name"), Value: aws.String("inferia-" + req.DeploymentId)},
				},
			},
		},
	})
	if err != nil {
		return domain.Node{}, xerrors.Wrap(err)
	}
	if len(out.Instances) < 1 {
		return domain.Node{}, xerrors.New("RunInstances returned no instance")
	}
	instanceId := aws.ToString(out.Instances[0].InstanceId)

	// The private DNS name is not always known at launch time.
	hostname, err := retry.Blocking(ctx, retry.StaticBackoff(pollInterval), func() (string, error) {
		described, err := a.client.DescribeInstances(ctx, &awsec2.DescribeInstancesInput{
			InstanceIds: []string{instanceId},
		})
		if err != nil {
			return "", xerrors.Wrap(err)
		}
		for _, reservation := range described.Reservations {
			for _, instance := range reservation.Instances {
				if name := aws.ToString(instance.PrivateDnsName); name != "" {
					return name, nil
				}
			}
		}
		return "", retry.ErrRetry
	})
	if err != nil {
		return domain.Node{}, err
	}

	return domain.Node{
		ProviderInstanceId: instanceId,
		Hostname:           fmt.Sprintf("%s:%d", hostname, a.config.ServePort),
	}, nil
}

func (a *ec2Adapter) Deprovision(ctx context.Context, pool domain.ComputePool, instanceId string) error {
	_, err := a.client.TerminateInstances(ctx, &awsec2.TerminateInstancesInput{
		InstanceIds: []string{instanceId},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidInstanceID.NotFound" {
			// already gone. Nothing left to release.
			return nil
		}
		return xerrors.Wrap(err)
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
