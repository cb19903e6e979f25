package pools

import (
	"github.com/inferia-ai/inferia/pkg/utils/cmp"
	"github.com/inferia-ai/inferia/pkg/utils/rfctime"
)

// Spec is a request to register a compute pool.
type Spec struct {
	Name         string  `json:"name"`
	Provider     string  `json:"provider"`
	Region       string  `json:"region"`
	GPUType      string  `json:"gpu_type"`
	GPUCount     int     `json:"gpu_count"`
	GPUMemoryGB  int     `json:"gpu_memory_gb"`
	VCPU         int     `json:"vcpu"`
	RAMGB        int     `json:"ram_gb"`
	PricingModel string  `json:"pricing_model"`
	PricePerHour float64 `json:"price_per_hour"`
	Capacity     int     `json:"capacity"`
}

// Detail is a registered compute pool.
type Detail struct {
	PoolId       string          `json:"pool_id"`
	Name         string          `json:"name"`
	Provider     string          `json:"provider"`
	Region       string          `json:"region"`
	GPUType      string          `json:"gpu_type"`
	GPUCount     int             `json:"gpu_count"`
	GPUMemoryGB  int             `json:"gpu_memory_gb"`
	VCPU         int             `json:"vcpu"`
	RAMGB        int             `json:"ram_gb"`
	PricingModel string          `json:"pricing_model"`
	PricePerHour float64         `json:"price_per_hour"`
	Capacity     int             `json:"capacity"`
	Status       string          `json:"status"`
	CreatedAt    rfctime.RFC3339 `json:"created_at"`
	UpdatedAt    rfctime.RFC3339 `json:"updated_at"`
}

func (d Detail) Equal(other Detail) bool {
	return d.PoolId == other.PoolId &&
		d.Name == other.Name &&
		d.Provider == other.Provider &&
		d.Region == other.Region &&
		d.GPUType == other.GPUType &&
		d.GPUCount == other.GPUCount &&
		d.GPUMemoryGB == other.GPUMemoryGB &&
		d.VCPU == other.VCPU &&
		d.RAMGB == other.RAMGB &&
		d.PricingModel == other.PricingModel &&
		d.PricePerHour == other.PricePerHour &&
		d.Capacity == other.Capacity &&
		d.Status == other.Status
}

// Resource is one provisionable unit found by a discovery pass.
type Resource struct {
	Provider           string  `json:"provider"`
	ProviderResourceId string  `json:"provider_resource_id"`
	GPUType            string  `json:"gpu_type"`
	GPUCount           int     `json:"gpu_count"`
	GPUMemoryGB        int     `json:"gpu_memory_gb"`
	VCPU               int     `json:"vcpu"`
	RAMGB              int     `json:"ram_gb"`
	Region             string  `json:"region"`
	PricingModel       string  `json:"pricing_model"`
	PricePerHour       float64 `json:"price_per_hour"`
}

func (r Resource) Equal(other Resource) bool {
	return r == other
}

// Discovery is the outcome of a discovery pass over one pool.
type Discovery struct {
	PoolId string `json:"pool_id"`

	// Resources free to be provisioned right now.
	Resources []Resource `json:"resources"`

	// TakenAt is when the listing was taken from the provider.
	TakenAt rfctime.RFC3339 `json:"taken_at"`

	// Stale marks the listing as a cached one, served because the
	// provider could not be asked just now.
	Stale bool `json:"stale"`
}

func (d Discovery) Equal(other Discovery) bool {
	return d.PoolId == other.PoolId &&
		d.TakenAt.Equiv(other.TakenAt) &&
		d.Stale == other.Stale &&
		cmp.SliceContentEqWith(
			d.Resources, other.Resources,
			func(a, b Resource) bool { return a.Equal(b) },
		)
}
