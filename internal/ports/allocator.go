// Package ports allocates collision-free ports for new environments.
package ports

import (
	"context"

	"worktreectl/internal/errors"
	"worktreectl/internal/logger"
	"worktreectl/internal/registry"
)

// Registry is the subset of the registry store the allocator reads
type Registry interface {
	GetUsedPorts(t registry.ServiceType) ([]int, error)
	Settings() (registry.Settings, error)
}

// Allocator picks the lowest free port of each service type's range
type Allocator struct {
	registry Registry
	probes   []Probe
}

// NewAllocator creates an allocator over the registry and OS probes
func NewAllocator(reg Registry, probes ...Probe) *Allocator {
	return &Allocator{registry: reg, probes: probes}
}

// IsPortInUse reports whether any probe sees a listener on port
func (a *Allocator) IsPortInUse(ctx context.Context, port int) bool {
	for _, p := range a.probes {
		if p.InUse(ctx, port) {
			logger.WithFields(logger.Fields{"port": port, "probe": p.Name()}).Debug("Port in use")
			return true
		}
	}
	return false
}

// FindFreePort returns the lowest port in the service type's range that is
// neither registered nor bound.
func (a *Allocator) FindFreePort(ctx context.Context, t registry.ServiceType) (int, error) {
	return a.findFreePort(ctx, t, nil)
}

// FindAllPorts allocates frontend, backend and database ports in that order.
// Ports picked earlier in the call are reserved for the later picks.
func (a *Allocator) FindAllPorts(ctx context.Context) (registry.Ports, error) {
	var result registry.Ports
	reserved := make(map[int]struct{}, len(registry.ServiceTypes))

	for _, t := range registry.ServiceTypes {
		port, err := a.findFreePort(ctx, t, reserved)
		if err != nil {
			return registry.Ports{}, err
		}
		result.Set(t, port)
		reserved[port] = struct{}{}
	}
	return result, nil
}

func (a *Allocator) findFreePort(ctx context.Context, t registry.ServiceType, reserved map[int]struct{}) (int, error) {
	settings, err := a.registry.Settings()
	if err != nil {
		return 0, err
	}
	r, ok := settings.PortRanges[t]
	if !ok {
		return 0, errors.ConfigInvalid("no port range configured for " + string(t))
	}

	used, err := a.registry.GetUsedPorts(t)
	if err != nil {
		return 0, err
	}
	taken := make(map[int]struct{}, len(used)+len(reserved))
	for _, p := range used {
		taken[p] = struct{}{}
	}
	for p := range reserved {
		taken[p] = struct{}{}
	}

	for port := r.Min; port <= r.Max; port++ {
		if _, ok := taken[port]; ok {
			continue
		}
		if a.IsPortInUse(ctx, port) {
			continue
		}
		return port, nil
	}

	return 0, errors.PortsExhausted(string(t), r.Min, r.Max)
}
