package throttle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive remote calls by a fixed interval. The first call
// goes through immediately.
type Pacer struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewPacer creates a pacer. A zero or negative interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
}

// Wait blocks until the next call is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.limiter.Wait(ctx)
}

func (p *Pacer) Interval() time.Duration {
	return p.interval
}
