// Package network carries the session over websockets and guards calls to the
// external landmark detector with a circuit breaker.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/logging"
)

// Breaker wraps outbound calls with circuit breaker functionality. A detector
// that keeps failing is left alone for the breaker timeout instead of being
// polled at camera rate.
type Breaker struct {
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.Logger
	maxRetries int
	baseDelay  time.Duration
}

// Operation is one guarded outbound call
type Operation func() error

// NewBreaker creates a breaker configured from environment settings
func NewBreaker(name string, envConfig *config.EnvironmentConfig, logger *logging.Logger) *Breaker {
	if logger == nil {
		logger = logging.Discard()
	}
	maxFails := envConfig.CircuitBreakerMaxConsecutiveFails

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: envConfig.CircuitBreakerMaxRequests,
		Interval:    envConfig.CircuitBreakerInterval,
		Timeout:     envConfig.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Breaker{
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

// Execute runs an operation through the circuit breaker. An open circuit
// fails immediately with gobreaker.ErrOpenState wrapped.
func (b *Breaker) Execute(ctx context.Context, operation Operation) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, operation()
	})
	if err != nil {
		b.logger.LogWithContext(ctx, slog.LevelDebug, "circuit breaker execution failed",
			"error", err,
			"state", b.breaker.State().String(),
		)
		return fmt.Errorf("circuit breaker: %w", err)
	}

	return nil
}

// ExecuteWithRetry runs an operation with linear backoff between attempts.
// Retrying stops as soon as the circuit opens.
func (b *Breaker) ExecuteWithRetry(ctx context.Context, operation Operation) error {
	var err error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		err = b.Execute(ctx, operation)
		if err == nil {
			return nil
		}

		if b.breaker.State() == gobreaker.StateOpen {
			b.logger.Warn(ctx, "circuit breaker is open, skipping retries",
				"attempt", attempt+1,
				"max_retries", b.maxRetries,
			)
			return err
		}

		if attempt == b.maxRetries-1 {
			break
		}

		delay := time.Duration(attempt+1) * b.baseDelay
		b.logger.Warn(ctx, "operation failed, retrying",
			"attempt", attempt+1,
			"max_retries", b.maxRetries,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", b.maxRetries, err)
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}

// Counts returns the failure/success counts of the current interval
func (b *Breaker) Counts() gobreaker.Counts {
	return b.breaker.Counts()
}

// Closed reports whether calls are flowing normally
func (b *Breaker) Closed() bool {
	return b.breaker.State() == gobreaker.StateClosed
}
