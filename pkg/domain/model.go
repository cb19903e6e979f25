package domain

import "time"

// ModelSpec is a model registry entry.
//
// Once a deployment references it, the entry is immutable. It is used only to
// validate and size deployment requests.
type ModelSpec struct {
	Name           string
	Version        string
	Source         string
	MinGPUMemoryGB int
	MinVCPU        int
	CreatedAt      time.Time
}

func (m ModelSpec) Equal(other ModelSpec) bool {
	return m.Name == other.Name &&
		m.Version == other.Version &&
		m.Source == other.Source &&
		m.MinGPUMemoryGB == other.MinGPUMemoryGB &&
		m.MinVCPU == other.MinVCPU
}

// FitsOn reports whether pool's hardware satisfies the model's requirements.
//
// Capacity (free slots) is not checked here. That is the repository's job,
// under a row lock.
func (m ModelSpec) FitsOn(pool ComputePool) bool {
	return pool.GPUMemoryGB >= m.MinGPUMemoryGB && pool.VCPU >= m.MinVCPU
}
