// Package health provides health check functionality for the facebreak server.
// It implements HTTP endpoints for liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// HealthCheck defines the interface for individual health checks.
type HealthCheck interface {
	// Name returns the unique name of this health check
	Name() string
	// Check performs the health check and returns an error if unhealthy
	Check(ctx context.Context) error
}

// HealthStatus represents the overall health status of the application.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents the health status of an individual component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker manages and executes health checks for the application.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a health check, replacing one with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// Names returns the registered check names in order
func (hc *HealthChecker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth executes all registered health checks and returns the aggregated status.
// The overall status is "healthy" only if all individual checks pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks[name] = ComponentHealth{
				Status: "healthy",
			}
		}
	}

	return status
}

// LivenessHandler answers 200 while the process can serve requests.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]string{"status": "alive"}
	json.NewEncoder(w).Encode(response)
}

// ReadinessHandler runs every check and answers 200 when all pass, 503 otherwise.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")

	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(health)
}

// Routes registers /health and /ready on mux
func (hc *HealthChecker) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
}

// EngineHealthCheck fails when the session loop has stopped ticking.
type EngineHealthCheck struct {
	lastTick func() time.Time
	maxAge   time.Duration
	now      func() time.Time
}

// NewEngineHealthCheck creates a check that expects a tick within maxAge
func NewEngineHealthCheck(lastTick func() time.Time, maxAge time.Duration) *EngineHealthCheck {
	return &EngineHealthCheck{lastTick: lastTick, maxAge: maxAge, now: time.Now}
}

// Name returns the name of this health check.
func (e *EngineHealthCheck) Name() string {
	return "engine"
}

// Check verifies that the session loop ticked recently.
func (e *EngineHealthCheck) Check(ctx context.Context) error {
	last := e.lastTick()
	if last.IsZero() {
		return fmt.Errorf("engine has not ticked yet")
	}
	if age := e.now().Sub(last); age > e.maxAge {
		return fmt.Errorf("engine stalled: last tick %v ago (max %v)", age.Round(time.Millisecond), e.maxAge)
	}
	return nil
}

// TrackingHealthCheck fails when play depends on tracking and no detection
// arrived recently. Idle and finished sessions do not need a face.
type TrackingHealthCheck struct {
	lastDetection func() time.Time
	active        func() bool
	maxAge        time.Duration
	now           func() time.Time
}

// NewTrackingHealthCheck creates a tracking freshness check
func NewTrackingHealthCheck(lastDetection func() time.Time, active func() bool, maxAge time.Duration) *TrackingHealthCheck {
	return &TrackingHealthCheck{lastDetection: lastDetection, active: active, maxAge: maxAge, now: time.Now}
}

// Name returns the name of this health check.
func (t *TrackingHealthCheck) Name() string {
	return "tracking"
}

// Check verifies that detections are flowing while a session is in play.
func (t *TrackingHealthCheck) Check(ctx context.Context) error {
	if !t.active() {
		return nil
	}
	last := t.lastDetection()
	if last.IsZero() {
		return fmt.Errorf("no detection received")
	}
	if age := t.now().Sub(last); age > t.maxAge {
		return fmt.Errorf("tracking stale: last detection %v ago (max %v)", age.Round(time.Millisecond), t.maxAge)
	}
	return nil
}

// CircuitState is implemented by anything guarded by a gobreaker circuit
type CircuitState interface {
	State() gobreaker.State
}

// BreakerHealthCheck fails while a circuit is open.
type BreakerHealthCheck struct {
	name    string
	breaker CircuitState
}

// NewBreakerHealthCheck creates a check named name for breaker
func NewBreakerHealthCheck(name string, breaker CircuitState) *BreakerHealthCheck {
	return &BreakerHealthCheck{name: name, breaker: breaker}
}

// Name returns the name of this health check.
func (b *BreakerHealthCheck) Name() string {
	return b.name
}

// Check reports an open circuit; half-open is probing and counts as healthy.
func (b *BreakerHealthCheck) Check(ctx context.Context) error {
	if state := b.breaker.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("circuit breaker is %s", state)
	}
	return nil
}

// NetworkHealthCheck implements HealthCheck for network connectivity.
type NetworkHealthCheck struct {
	listenerAddr func() string
}

// NewNetworkHealthCheck creates a health check for network connectivity.
func NewNetworkHealthCheck(listenerAddr func() string) *NetworkHealthCheck {
	return &NetworkHealthCheck{
		listenerAddr: listenerAddr,
	}
}

// Name returns the name of this health check.
func (n *NetworkHealthCheck) Name() string {
	return "network"
}

// Check verifies that the network listener is active.
func (n *NetworkHealthCheck) Check(ctx context.Context) error {
	if n.listenerAddr() == "" {
		return fmt.Errorf("network listener is not active")
	}
	return nil
}

// MemoryHealthCheck implements HealthCheck for memory usage monitoring.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage. A nil
// getMemoryUsage reads the Go heap.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	if getMemoryUsage == nil {
		getMemoryUsage = HeapMB
	}
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within acceptable limits.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}

// HeapMB returns the allocated Go heap in megabytes
func HeapMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}
