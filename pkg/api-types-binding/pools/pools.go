package pools

import (
	apipools "github.com/inferia-ai/inferia/pkg/api/types/pools"
	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine"
	"github.com/inferia-ai/inferia/pkg/utils/rfctime"
	"github.com/inferia-ai/inferia/pkg/utils/slices"
)

func ComposeDetail(p domain.ComputePool) apipools.Detail {
	return apipools.Detail{
		PoolId:       p.PoolId,
		Name:         p.Name,
		Provider:     p.Provider.String(),
		Region:       p.Region,
		GPUType:      p.GPUType,
		GPUCount:     p.GPUCount,
		GPUMemoryGB:  p.GPUMemoryGB,
		VCPU:         p.VCPU,
		RAMGB:        p.RAMGB,
		PricingModel: p.PricingModel,
		PricePerHour: p.PricePerHour,
		Capacity:     p.Capacity,
		Status:       p.Status.String(),
		CreatedAt:    rfctime.RFC3339(p.CreatedAt),
		UpdatedAt:    rfctime.RFC3339(p.UpdatedAt),
	}
}

func ComposeResource(r domain.ComputeResource) apipools.Resource {
	return apipools.Resource{
		Provider:           r.Provider.String(),
		ProviderResourceId: r.ProviderResourceId,
		GPUType:            r.GPUType,
		GPUCount:           r.GPUCount,
		GPUMemoryGB:        r.GPUMemoryGB,
		VCPU:               r.VCPU,
		RAMGB:              r.RAMGB,
		Region:             r.Region,
		PricingModel:       r.PricingModel,
		PricePerHour:       r.PricePerHour,
	}
}

func ComposeDiscovery(poolId string, d engine.Discovery) apipools.Discovery {
	return apipools.Discovery{
		PoolId:    poolId,
		Resources: slices.Map(d.Resources, ComposeResource),
		TakenAt:   rfctime.RFC3339(d.Taken),
		Stale:     d.Stale,
	}
}
