// Package resilience provides the retry policy and transient error
// classification used by the request layer.
package resilience

import (
	"context"
	"time"
)

// Policy controls how a request is retried. The delay before retry n is
// BaseDelay × n, capped at MaxDelay.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt. Zero
	// means a single attempt.
	MaxRetries int
	BaseDelay  time.Duration
	// MaxDelay caps a single delay. Default: 30s.
	MaxDelay time.Duration

	// ShouldRetry decides whether err warrants another attempt. Default:
	// Retryable.
	ShouldRetry func(err error) bool

	// OnRetry runs before each retry sleep.
	OnRetry func(retry int, err error)
}

// DefaultPolicy is the backend API policy: three retries, one second apart
// and growing linearly.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Do calls fn until it succeeds, the policy gives up, or ctx is done. The
// error from the last attempt is returned.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || attempt >= p.MaxRetries || !p.ShouldRetry(err) {
			return zero, err
		}

		retry := attempt + 1
		if p.OnRetry != nil {
			p.OnRetry(retry, err)
		}

		timer := time.NewTimer(p.Delay(retry))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// Delay returns the wait before the given 1-based retry.
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := p.BaseDelay * time.Duration(retry)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = Retryable
	}
	return p
}
