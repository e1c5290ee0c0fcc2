// pkg/resource/manager.go
package resource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/logging"
)

// ErrShuttingDown is returned by Go once Shutdown has begun.
var ErrShuttingDown = errors.New("resource manager is shutting down")

// Task is a long-running piece of the server: the session loop, the
// network listener or the detector poller. It should return when ctx is
// cancelled.
type Task func(ctx context.Context) error

// ResourceManager supervises the server's long-running tasks and samples
// memory use. The first task to fail cancels the others, so a dead
// listener never leaves a session ticking for nobody.
type ResourceManager struct {
	maxMemoryMB     int64
	maxTasks        int64
	shutdownTimeout time.Duration
	checkInterval   time.Duration

	taskCount     int64
	memoryUsageMB int64

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	closing bool
	tasks   map[string]time.Time
	err     error
	logger  *logging.Logger

	lastMemoryCheck time.Time
	readMemory      func() int64
}

// NewResourceManager creates a manager bounded by the environment's task
// and memory limits. A nil logger writes to the default logger.
func NewResourceManager(env *config.EnvironmentConfig, logger *logging.Logger) *ResourceManager {
	if logger == nil {
		logger = logging.NewLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &ResourceManager{
		maxMemoryMB:     int64(env.MaxMemoryMB),
		maxTasks:        int64(env.MaxTasks),
		shutdownTimeout: env.ShutdownTimeout,
		checkInterval:   env.HealthCheckInterval,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		tasks:           make(map[string]time.Time),
		logger:          logger.With("component", "resource"),
		readMemory:      heapMB,
	}
}

// Context is cancelled when a task fails or Shutdown begins.
func (rm *ResourceManager) Context() context.Context {
	return rm.ctx
}

// Start begins the memory sampling loop.
func (rm *ResourceManager) Start() error {
	rm.mu.Lock()
	if rm.running {
		rm.mu.Unlock()
		return fmt.Errorf("resource manager already running")
	}
	rm.running = true
	rm.mu.Unlock()

	go rm.monitoringLoop()

	rm.logger.Info(rm.ctx, "resource manager started",
		"max_memory_mb", rm.maxMemoryMB,
		"max_tasks", rm.maxTasks,
		"check_interval", rm.checkInterval.String(),
	)
	return nil
}

// Go runs task under the manager's context. Names must be unique among
// running tasks. A task returning an error other than a context
// cancellation, or panicking, cancels every other task.
func (rm *ResourceManager) Go(name string, task Task) error {
	rm.mu.Lock()
	if rm.closing {
		rm.mu.Unlock()
		return ErrShuttingDown
	}
	if _, dup := rm.tasks[name]; dup {
		rm.mu.Unlock()
		return fmt.Errorf("task %q already running", name)
	}
	if current := atomic.LoadInt64(&rm.taskCount); current >= rm.maxTasks {
		rm.mu.Unlock()
		rm.logger.Warn(rm.ctx, "task limit exceeded", "current", current, "limit", rm.maxTasks, "task", name)
		return fmt.Errorf("task limit exceeded: %d/%d", current, rm.maxTasks)
	}
	rm.tasks[name] = time.Now()
	atomic.AddInt64(&rm.taskCount, 1)
	rm.wg.Add(1)
	rm.mu.Unlock()

	go func() {
		defer rm.wg.Done()
		defer rm.finish(name)

		err := rm.run(name, task)
		if err != nil && !errors.Is(err, context.Canceled) {
			rm.fail(name, err)
			return
		}
		rm.logger.Debug(rm.ctx, "task stopped", "task", name)
	}()
	return nil
}

func (rm *ResourceManager) run(name string, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task(rm.ctx)
}

func (rm *ResourceManager) finish(name string) {
	rm.mu.Lock()
	delete(rm.tasks, name)
	rm.mu.Unlock()
	atomic.AddInt64(&rm.taskCount, -1)
}

func (rm *ResourceManager) fail(name string, err error) {
	rm.mu.Lock()
	first := rm.err == nil
	if first {
		rm.err = logging.WrapError(err, "task %s", name)
	}
	rm.mu.Unlock()

	rm.logger.Error(rm.ctx, "task failed", err, "task", name)
	if first {
		rm.cancel()
	}
}

// Err returns the first task failure, or nil.
func (rm *ResourceManager) Err() error {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.err
}

// Tasks returns the names of the running tasks in order.
func (rm *ResourceManager) Tasks() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	names := make([]string, 0, len(rm.tasks))
	for name := range rm.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckMemoryUsage samples the heap and compares it to the limit.
func (rm *ResourceManager) CheckMemoryUsage() error {
	currentMB := rm.readMemory()
	atomic.StoreInt64(&rm.memoryUsageMB, currentMB)

	rm.mu.Lock()
	rm.lastMemoryCheck = time.Now()
	rm.mu.Unlock()

	if currentMB > rm.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, rm.maxMemoryMB)
	}
	return nil
}

// GetTaskCount returns the number of running tasks.
func (rm *ResourceManager) GetTaskCount() int64 {
	return atomic.LoadInt64(&rm.taskCount)
}

// GetMemoryUsage returns the last sampled heap size in MB.
func (rm *ResourceManager) GetMemoryUsage() int64 {
	return atomic.LoadInt64(&rm.memoryUsageMB)
}

// GetResourceStats returns current resource usage statistics.
func (rm *ResourceManager) GetResourceStats() ResourceStats {
	rm.mu.RLock()
	last := rm.lastMemoryCheck
	failed := ""
	if rm.err != nil {
		failed = rm.err.Error()
	}
	rm.mu.RUnlock()

	return ResourceStats{
		TaskCount:       rm.GetTaskCount(),
		MaxTasks:        rm.maxTasks,
		Tasks:           rm.Tasks(),
		MemoryUsageMB:   rm.GetMemoryUsage(),
		MaxMemoryMB:     rm.maxMemoryMB,
		LastMemoryCheck: last,
		Failure:         failed,
	}
}

// ResourceStats contains resource usage statistics.
type ResourceStats struct {
	TaskCount       int64     `json:"task_count"`
	MaxTasks        int64     `json:"max_tasks"`
	Tasks           []string  `json:"tasks"`
	MemoryUsageMB   int64     `json:"memory_usage_mb"`
	MaxMemoryMB     int64     `json:"max_memory_mb"`
	LastMemoryCheck time.Time `json:"last_memory_check"`
	Failure         string    `json:"failure,omitempty"`
}

// Wait blocks until every task has returned or ctx is done, and reports
// the first task failure.
func (rm *ResourceManager) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		rm.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return rm.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every task and waits up to the shutdown timeout for
// them to return.
func (rm *ResourceManager) Shutdown(ctx context.Context) error {
	rm.mu.Lock()
	if rm.closing {
		rm.mu.Unlock()
		return nil
	}
	rm.closing = true
	wasRunning := rm.running
	rm.running = false
	rm.mu.Unlock()

	rm.logger.Info(ctx, "shutting down resource manager", "tasks", rm.GetTaskCount())
	rm.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, rm.shutdownTimeout)
	defer cancel()

	if wasRunning {
		select {
		case <-rm.done:
		case <-shutdownCtx.Done():
			rm.logger.Warn(ctx, "resource monitoring loop did not stop gracefully")
		}
	}

	if err := rm.Wait(shutdownCtx); err != nil && errors.Is(err, shutdownCtx.Err()) {
		remaining := rm.Tasks()
		rm.logger.Warn(ctx, "shutdown timeout exceeded with tasks still running", "remaining", remaining)
		return fmt.Errorf("shutdown timeout: %d tasks still running", len(remaining))
	}
	rm.logger.Info(ctx, "all tasks finished")
	return nil
}

func (rm *ResourceManager) monitoringLoop() {
	defer close(rm.done)

	ticker := time.NewTicker(rm.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.performResourceChecks()
		case <-rm.ctx.Done():
			return
		}
	}
}

func (rm *ResourceManager) performResourceChecks() {
	if err := rm.CheckMemoryUsage(); err != nil {
		rm.logger.Error(rm.ctx, "memory limit exceeded", err,
			"current_mb", rm.GetMemoryUsage(),
			"limit_mb", rm.maxMemoryMB,
		)
	}

	rm.logger.Debug(rm.ctx, "resource usage check",
		"tasks", rm.GetTaskCount(),
		"memory_mb", rm.GetMemoryUsage(),
	)
}

func heapMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}
