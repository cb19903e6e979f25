package domain

import (
	"fmt"
	"time"
)

// Provider identifies which adapter provisions nodes for a pool.
type Provider string

const (
	// AWS EC2 instances.
	EC2 Provider = "ec2"

	// Pods on a Kubernetes cluster.
	Kubernetes Provider = "k8s"

	// Decentralized compute bought through the DePIN sidecar.
	DePIN Provider = "depin"
)

func (p Provider) String() string {
	return string(p)
}

func AsProvider(s string) (Provider, error) {
	switch s {
	case string(EC2):
		return EC2, nil
	case string(Kubernetes):
		return Kubernetes, nil
	case string(DePIN):
		return DePIN, nil
	default:
		return "", fmt.Errorf("'%s' is not Provider", s)
	}
}

type PoolStatus string

const (
	// The pool accepts new deployments.
	PoolActive PoolStatus = "active"

	// No new deployments; existing ones keep running.
	PoolDraining PoolStatus = "draining"

	// The pool is administratively out of service.
	PoolDisabled PoolStatus = "disabled"
)

func (ps PoolStatus) String() string {
	return string(ps)
}

func AsPoolStatus(s string) (PoolStatus, error) {
	switch s {
	case string(PoolActive):
		return PoolActive, nil
	case string(PoolDraining):
		return PoolDraining, nil
	case string(PoolDisabled):
		return PoolDisabled, nil
	default:
		return "", fmt.Errorf("'%s' is not PoolStatus", s)
	}
}

// ComputePool is a provider/region-scoped grouping of allocatable capacity.
//
// Capacity is the number of nodes the pool may have allocated at a time.
// Allocation is counted from deployments assigned to the pool which are in a
// non-terminal status, so capacity is given back when a deployment fails or
// terminates, without extra bookkeeping.
type ComputePool struct {
	PoolId       string
	Name         string
	Provider     Provider
	Region       string
	GPUType      string
	GPUCount     int
	GPUMemoryGB  int
	VCPU         int
	RAMGB        int
	PricingModel string
	PricePerHour float64
	Capacity     int
	Status       PoolStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p ComputePool) Equal(other ComputePool) bool {
	return p.PoolId == other.PoolId &&
		p.Name == other.Name &&
		p.Provider == other.Provider &&
		p.Region == other.Region &&
		p.GPUType == other.GPUType &&
		p.GPUCount == other.GPUCount &&
		p.GPUMemoryGB == other.GPUMemoryGB &&
		p.VCPU == other.VCPU &&
		p.RAMGB == other.RAMGB &&
		p.PricingModel == other.PricingModel &&
		p.PricePerHour == other.PricePerHour &&
		p.Capacity == other.Capacity &&
		p.Status == other.Status
}

// ComputeResource is one provisionable unit reported by a provider.
//
// Resources are re-derived on each discovery pass. They are a view, not a
// source of truth for running nodes.
type ComputeResource struct {
	Provider           Provider
	ProviderResourceId string
	GPUType            string
	GPUCount           int
	GPUMemoryGB        int
	VCPU               int
	RAMGB              int
	Region             string
	PricingModel       string
	PricePerHour       float64
}

// Node is the outcome of a provisioning call.
type Node struct {
	ProviderInstanceId string
	Hostname           string
}
