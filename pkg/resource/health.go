// pkg/resource/health.go
package resource

import (
	"context"
	"fmt"
)

// ResourceHealthCheck reports task failures and resource exhaustion.
type ResourceHealthCheck struct {
	manager *ResourceManager
}

// NewResourceHealthCheck creates a new health check for the resource manager.
func NewResourceHealthCheck(manager *ResourceManager) *ResourceHealthCheck {
	return &ResourceHealthCheck{
		manager: manager,
	}
}

// Name returns the name of this health check.
func (r *ResourceHealthCheck) Name() string {
	return "resource"
}

// Check fails after a task failure, above the memory limit, or when the
// task count passes 80% of its limit.
func (r *ResourceHealthCheck) Check(ctx context.Context) error {
	if err := r.manager.Err(); err != nil {
		return err
	}

	stats := r.manager.GetResourceStats()
	if stats.MemoryUsageMB > stats.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB",
			stats.MemoryUsageMB, stats.MaxMemoryMB)
	}

	threshold := int64(float64(stats.MaxTasks) * 0.8)
	if stats.TaskCount > threshold {
		return fmt.Errorf("task count %d exceeds 80%% threshold (%d/%d)",
			stats.TaskCount, threshold, stats.MaxTasks)
	}
	return nil
}
