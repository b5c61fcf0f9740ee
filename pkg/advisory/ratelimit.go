package advisory

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps next so that evaluations wait on limiter before running.
// It is meant for evaluators that call out to a shared remote service.
func RateLimited(next Evaluator, limiter *rate.Limiter) Evaluator {
	if limiter == nil {
		return next
	}
	return EvaluatorFunc(func(ctx context.Context, req Request) ([]Finding, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("advisory: rate limit: %w", err)
		}
		return next.Evaluate(ctx, req)
	})
}

// NewLimiter returns a limiter allowing rps evaluations per second with a
// burst of the same size. A non-positive rps yields nil (unlimited).
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
