package generation

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// BackoffFactory builds a fresh schedule per call; go-retry backoffs are stateful.
type BackoffFactory func() retry.Backoff

// ExponentialBackoff doubles from base, capped at max, with 10% jitter.
func ExponentialBackoff(base, max time.Duration) BackoffFactory {
	return func() retry.Backoff {
		b := retry.NewExponential(base)
		b = retry.WithCappedDuration(max, b)
		return retry.WithJitterPercent(10, b)
	}
}

// Retrying re-invokes the wrapped provider on retryable ProviderErrors,
// up to attempts calls in total.
type Retrying struct {
	next     Provider
	attempts uint64
	backoff  BackoffFactory
	logger   *zap.SugaredLogger
}

func NewRetrying(next Provider, attempts int, backoff BackoffFactory, logger *zap.SugaredLogger) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	if backoff == nil {
		backoff = ExponentialBackoff(200*time.Millisecond, 2*time.Second)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Retrying{next: next, attempts: uint64(attempts), backoff: backoff, logger: logger}
}

func (r *Retrying) Complete(ctx context.Context, p Prompt) (string, error) {
	var out string
	attempt := 0
	b := retry.WithMaxRetries(r.attempts-1, r.backoff())
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		text, err := r.next.Complete(ctx, p)
		if err == nil {
			out = text
			return nil
		}
		var pe *ProviderError
		if errors.As(err, &pe) && pe.Retryable && ctx.Err() == nil {
			r.logger.Debugw("provider call failed, retrying", "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ErrProvider) {
			return "", &ProviderError{Err: ctxErr}
		}
		return "", err
	}
	return out, nil
}
