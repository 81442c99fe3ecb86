package processor

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tinoosan/radiofetch/internal/data"
)

// retry runs fn with exponential backoff until it succeeds, returns a
// permanent error, or the attempt budget runs out. Each attempt gets its
// own timeout-bounded context; the outer ctx cancels the whole loop.
func (p *Processor) retry(ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.RetryInitial
	bo.Multiplier = p.cfg.RetryFactor
	bo.MaxInterval = p.cfg.RetryCap
	bo.MaxElapsedTime = 0
	bo.RandomizationFactor = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		callCtx, cancel := callContext(ctx, timeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, data.ErrPermanent) || errors.Is(err, data.ErrNotFound) || errors.Is(err, context.Canceled) {
			return backoff.Permanent(err)
		}
		p.log.Warn("transient failure, will retry", "op", op, "attempt", attempt, "err", err)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, p.cfg.RetryMaxAttempts-1), ctx))
}

func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
