// Package retry executes operations with exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/tagus/agentlab/pkg/logging"
)

// Executor runs operations under a retry Policy.
type Executor struct {
	policy *Policy
	logger logging.Logger
}

// NewExecutor creates an Executor for the given policy.
func NewExecutor(policy *Policy) *Executor {
	return &Executor{
		policy: policy,
		logger: logging.New(),
	}
}

// Execute runs the operation until it succeeds, the policy's attempts are
// exhausted, or the context is cancelled. The last error is returned when all
// attempts fail.
func (e *Executor) Execute(ctx context.Context, operation func() error) error {
	var lastErr error
	interval := e.policy.InitialInterval

	for attempt := int32(1); attempt <= e.policy.MaximumAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == e.policy.MaximumAttempts {
			break
		}

		e.logger.Debug(ctx, "Operation failed, retrying", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": e.policy.MaximumAttempts,
			"backoff":      interval.String(),
			"error":        err.Error(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * e.policy.BackoffCoefficient)
		if interval > e.policy.MaximumInterval {
			interval = e.policy.MaximumInterval
		}
	}

	return lastErr
}
