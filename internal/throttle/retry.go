package throttle

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryAfterFunc reports whether err may be retried and how long the server
// asked us to wait first.
type RetryAfterFunc func(err error) (time.Duration, bool)

// OnRetryFunc is called before each retry with the 1-based retry number.
type OnRetryFunc func(n uint, err error, wait time.Duration)

// Do calls fn until it succeeds, returns an error retryAfter rejects, or
// maxRetries retries have been spent. The last error is returned unwrapped.
func Do[T any](ctx context.Context, maxRetries int, retryAfter RetryAfterFunc, onRetry OnRetryFunc, fn func() (T, error)) (T, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	return retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(uint(maxRetries)+1),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			_, ok := retryAfter(err)
			return ok
		}),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			wait, _ := retryAfter(err)
			return wait
		}),
		retry.OnRetry(func(n uint, err error) {
			if onRetry != nil {
				wait, _ := retryAfter(err)
				onRetry(n+1, err, wait)
			}
		}),
	)
}
