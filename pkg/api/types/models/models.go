package models

import (
	"github.com/inferia-ai/inferia/pkg/utils/rfctime"
)

// Spec is a request to register a model.
type Spec struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Source         string `json:"source"`
	MinGPUMemoryGB int    `json:"min_gpu_memory_gb"`
	MinVCPU        int    `json:"min_vcpu"`
}

// Detail is a registered model.
type Detail struct {
	Name           string          `json:"name"`
	Version        string          `json:"version"`
	Source         string          `json:"source"`
	MinGPUMemoryGB int             `json:"min_gpu_memory_gb"`
	MinVCPU        int             `json:"min_vcpu"`
	CreatedAt      rfctime.RFC3339 `json:"created_at"`
}

func (d Detail) Equal(other Detail) bool {
	return d.Name == other.Name &&
		d.Version == other.Version &&
		d.Source == other.Source &&
		d.MinGPUMemoryGB == other.MinGPUMemoryGB &&
		d.MinVCPU == other.MinVCPU
}
