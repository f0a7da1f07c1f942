package retry

import "time"

// Policy describes how an operation is retried.
type Policy struct {
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// BackoffCoefficient multiplies the delay after each attempt.
	BackoffCoefficient float64

	// MaximumInterval caps the delay between attempts.
	MaximumInterval time.Duration

	// MaximumAttempts is the total number of attempts, including the first.
	MaximumAttempts int32
}

// Option configures a Policy.
type Option func(*Policy)

// NewPolicy builds a Policy with sensible defaults: 3 attempts starting at
// 500ms with 2x backoff capped at 30s.
func NewPolicy(options ...Option) *Policy {
	policy := &Policy{
		InitialInterval:    500 * time.Millisecond,
		BackoffCoefficient: 2.0,
		MaximumInterval:    30 * time.Second,
		MaximumAttempts:    3,
	}
	for _, opt := range options {
		opt(policy)
	}
	return policy
}

// WithInitialInterval sets the delay before the first retry.
func WithInitialInterval(interval time.Duration) Option {
	return func(p *Policy) {
		p.InitialInterval = interval
	}
}

// WithBackoffCoefficient sets the backoff multiplier.
func WithBackoffCoefficient(coefficient float64) Option {
	return func(p *Policy) {
		p.BackoffCoefficient = coefficient
	}
}

// WithMaximumInterval caps the delay between attempts.
func WithMaximumInterval(interval time.Duration) Option {
	return func(p *Policy) {
		p.MaximumInterval = interval
	}
}

// WithMaximumAttempts sets the total number of attempts.
func WithMaximumAttempts(attempts int32) Option {
	return func(p *Policy) {
		p.MaximumAttempts = attempts
	}
}
