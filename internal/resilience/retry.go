package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy bounds a retry loop. Zero fields take the defaults.
type Policy struct {
	Attempts int           // total tries, default 3
	Base     time.Duration // first backoff, default 1s
	Max      time.Duration // backoff cap, default 30s
}

// DefaultPolicy is used for dataset downloads and database connects.
var DefaultPolicy = Policy{Attempts: 3, Base: time.Second, Max: 30 * time.Second}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultPolicy.Attempts
	}
	if p.Base <= 0 {
		p.Base = DefaultPolicy.Base
	}
	if p.Max <= 0 {
		p.Max = DefaultPolicy.Max
	}
	return p
}

// backoff doubles per attempt with ±20% jitter.
func (p Policy) backoff(attempt int) time.Duration {
	d := p.Base << attempt
	if d <= 0 || d > p.Max {
		d = p.Max
	}
	jitter := (rand.Float64()*0.4 - 0.2) * float64(d)
	return d + time.Duration(jitter)
}

// Retry runs fn until it succeeds, returns a non-transient error, the
// attempts run out or ctx ends. The last error is returned.
func Retry(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsTransient(err) || attempt == p.Attempts-1 {
			return err
		}

		delay := p.backoff(attempt)
		zap.L().Warn("retrying operation",
			zap.String("component", "resilience"),
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
