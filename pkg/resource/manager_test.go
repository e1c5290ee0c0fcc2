// pkg/resource/manager_test.go
package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/logging"
)

func testConfig(maxTasks int, shutdown, interval time.Duration) *config.EnvironmentConfig {
	return &config.EnvironmentConfig{
		MaxMemoryMB:         500,
		MaxTasks:            maxTasks,
		ShutdownTimeout:     shutdown,
		HealthCheckInterval: interval,
	}
}

func newTestManager(maxTasks int, shutdown, interval time.Duration) *ResourceManager {
	return NewResourceManager(testConfig(maxTasks, shutdown, interval), logging.Discard())
}

// blockUntilDone is a task that runs until cancelled
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func waitForCount(t *testing.T, rm *ResourceManager, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for rm.GetTaskCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("task count = %d, expected %d", rm.GetTaskCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewResourceManager(t *testing.T) {
	rm := NewResourceManager(testConfig(8, 30*time.Second, 10*time.Second), nil)
	defer rm.Shutdown(context.Background())

	if rm.maxMemoryMB != 500 {
		t.Errorf("Expected MaxMemoryMB 500, got %d", rm.maxMemoryMB)
	}
	if rm.maxTasks != 8 {
		t.Errorf("Expected MaxTasks 8, got %d", rm.maxTasks)
	}
	if rm.shutdownTimeout != 30*time.Second {
		t.Errorf("Expected ShutdownTimeout 30s, got %v", rm.shutdownTimeout)
	}
	if rm.checkInterval != 10*time.Second {
		t.Errorf("Expected CheckInterval 10s, got %v", rm.checkInterval)
	}
	if rm.Context().Err() != nil {
		t.Error("a new manager should not be cancelled")
	}
}

func TestResourceManager_Go(t *testing.T) {
	rm := newTestManager(3, 5*time.Second, time.Second)
	defer rm.Shutdown(context.Background())

	for _, name := range []string{"session", "listener", "detector"} {
		if err := rm.Go(name, blockUntilDone); err != nil {
			t.Errorf("Go(%s) error = %v", name, err)
		}
	}

	if err := rm.Go("extra", blockUntilDone); err == nil {
		t.Error("Expected error when exceeding the task limit")
	}
	if err := rm.Go("session", blockUntilDone); err == nil {
		t.Error("Expected error for a duplicate task name")
	}

	tasks := rm.Tasks()
	expected := []string{"detector", "listener", "session"}
	if fmt.Sprint(tasks) != fmt.Sprint(expected) {
		t.Errorf("Tasks() = %v, expected %v", tasks, expected)
	}
}

func TestResourceManager_TaskCompletes(t *testing.T) {
	rm := newTestManager(4, 5*time.Second, time.Second)
	defer rm.Shutdown(context.Background())

	if err := rm.Go("short", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	waitForCount(t, rm, 0)

	if rm.Err() != nil {
		t.Errorf("Err() = %v after a clean return", rm.Err())
	}
	if rm.Context().Err() != nil {
		t.Error("a clean return should not cancel the other tasks")
	}
	// the name is free again
	if err := rm.Go("short", func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("Go() reusing a finished name: %v", err)
	}
}

func TestResourceManager_FailureCancelsOthers(t *testing.T) {
	rm := newTestManager(4, 5*time.Second, time.Second)
	defer rm.Shutdown(context.Background())

	stopped := make(chan struct{})
	rm.Go("session", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})

	boom := errors.New("address in use")
	rm.Go("listener", func(ctx context.Context) error { return boom })

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("a failing task did not cancel its siblings")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := rm.Wait(ctx)
	if !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, expected %v", err, boom)
	}
	if stats := rm.GetResourceStats(); stats.Failure == "" {
		t.Error("stats should record the failure")
	}
}

func TestResourceManager_PanicRecovery(t *testing.T) {
	rm := newTestManager(4, 5*time.Second, time.Second)
	defer rm.Shutdown(context.Background())

	if err := rm.Go("panicking", func(ctx context.Context) error { panic("test panic") }); err != nil {
		t.Fatalf("Expected no error starting task, got: %v", err)
	}
	waitForCount(t, rm, 0)

	if err := rm.Err(); err == nil {
		t.Error("a panic should be reported as a task failure")
	}
	if rm.Context().Err() == nil {
		t.Error("a panic should cancel the manager context")
	}
}

func TestResourceManager_CheckMemoryUsage(t *testing.T) {
	rm := newTestManager(4, 5*time.Second, time.Second)
	defer rm.Shutdown(context.Background())

	rm.readMemory = func() int64 { return 120 }
	if err := rm.CheckMemoryUsage(); err != nil {
		t.Errorf("Expected memory check to pass with reasonable limit, got: %v", err)
	}
	if rm.GetMemoryUsage() != 120 {
		t.Errorf("GetMemoryUsage() = %d, expected 120", rm.GetMemoryUsage())
	}

	rm.readMemory = func() int64 { return 501 }
	if err := rm.CheckMemoryUsage(); err == nil {
		t.Error("Expected memory check to fail above the limit")
	}

	if heapMB() < 0 {
		t.Error("heap size should not be negative")
	}
}

func TestResourceManager_GetResourceStats(t *testing.T) {
	rm := newTestManager(10, 5*time.Second, time.Second)
	defer rm.Shutdown(context.Background())

	rm.readMemory = func() int64 { return 42 }
	rm.CheckMemoryUsage()
	rm.Go("session", blockUntilDone)

	stats := rm.GetResourceStats()

	if stats.MaxMemoryMB != 500 {
		t.Errorf("Expected MaxMemoryMB 500, got %d", stats.MaxMemoryMB)
	}
	if stats.MaxTasks != 10 {
		t.Errorf("Expected MaxTasks 10, got %d", stats.MaxTasks)
	}
	if stats.MemoryUsageMB != 42 {
		t.Errorf("Expected memory usage 42, got %d", stats.MemoryUsageMB)
	}
	if stats.LastMemoryCheck.IsZero() {
		t.Error("Expected LastMemoryCheck to be set")
	}
	if stats.TaskCount != 1 || len(stats.Tasks) != 1 || stats.Tasks[0] != "session" {
		t.Errorf("stats tasks = %d %v", stats.TaskCount, stats.Tasks)
	}
}

func TestResourceManager_StartAndShutdown(t *testing.T) {
	rm := newTestManager(10, 5*time.Second, 20*time.Millisecond)

	var mu sync.Mutex
	samples := 0
	rm.readMemory = func() int64 {
		mu.Lock()
		defer mu.Unlock()
		samples++
		return 1
	}

	if err := rm.Start(); err != nil {
		t.Errorf("Expected no error starting resource manager, got: %v", err)
	}
	if err := rm.Start(); err == nil {
		t.Error("Expected error when starting already running resource manager")
	}
	rm.Go("session", blockUntilDone)

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rm.Shutdown(ctx); err != nil {
		t.Errorf("Expected no error during shutdown, got: %v", err)
	}
	if err := rm.Shutdown(ctx); err != nil {
		t.Errorf("Expected no error during second shutdown, got: %v", err)
	}
	if rm.GetTaskCount() != 0 {
		t.Errorf("tasks still running after shutdown: %v", rm.Tasks())
	}
	if err := rm.Go("late", blockUntilDone); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Go() after shutdown = %v, expected ErrShuttingDown", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if samples == 0 {
		t.Error("monitoring loop never sampled memory")
	}
}

func TestResourceManager_ShutdownTimeout(t *testing.T) {
	rm := newTestManager(10, 200*time.Millisecond, time.Second)
	if err := rm.Start(); err != nil {
		t.Fatalf("Failed to start resource manager: %v", err)
	}

	stop := make(chan struct{})
	defer close(stop)

	// ignores cancellation until stop closes
	err := rm.Go("stubborn", func(ctx context.Context) error {
		<-stop
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error starting task, got: %v", err)
	}

	start := time.Now()
	err = rm.Shutdown(context.Background())
	elapsed := time.Since(start)

	if err == nil {
		t.Error("Expected shutdown to timeout")
	}
	if elapsed < 150*time.Millisecond {
		t.Errorf("Shutdown finished too quickly: %v, expected at least 150ms", elapsed)
	}
}

func TestResourceManager_ConcurrentGo(t *testing.T) {
	rm := newTestManager(50, 5*time.Second, time.Second)
	defer rm.Shutdown(context.Background())

	var wg sync.WaitGroup
	numWorkers := 20

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := rm.Go(fmt.Sprintf("worker-%d", id), func(ctx context.Context) error {
				time.Sleep(20 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("Worker %d failed to start: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rm.Wait(ctx); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	if count := rm.GetTaskCount(); count != 0 {
		t.Errorf("Expected task count 0, got %d", count)
	}
}

func BenchmarkResourceManager_GetTaskCount(b *testing.B) {
	rm := newTestManager(100, 5*time.Second, 10*time.Second)
	defer rm.Shutdown(context.Background())

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rm.GetTaskCount()
		}
	})
}
