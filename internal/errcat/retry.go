package errcat

import (
	"context"
	"time"

	"github.com/marketsignal/decisionengine/internal/config"
)

// Retry runs fn up to cfg.Attempts+1 times total, retrying only when
// fn's error is a retryable *Error, with linear backoff
// baseDelay*(attempt+1) between attempts. Non-retryable errors and
// plain (non-*Error) errors surface immediately, matching spec §4.7.
func Retry(ctx context.Context, cfg config.RetryPolicy, fn func(ctx context.Context) error) error {
	base := time.Duration(cfg.BaseDelayMS) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= cfg.Attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var engineErr *Error
		if !asError(err, &engineErr) || !engineErr.Kind.Retryable() {
			return err
		}
		if attempt == cfg.Attempts {
			break
		}

		delay := base * time.Duration(attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}
