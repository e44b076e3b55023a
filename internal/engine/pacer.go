package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out requests before they are sent. It runs ahead of the
// response clock so waiting here never shows up as response time.
type Pacer struct {
	Delay   time.Duration
	Limiter *rate.Limiter
}

// NewPacer returns nil when neither a delay nor a rate is set.
func NewPacer(delay time.Duration, perSecond float64) *Pacer {
	if delay <= 0 && perSecond <= 0 {
		return nil
	}
	p := &Pacer{Delay: delay}
	if perSecond > 0 {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		p.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return p
}

// Wait blocks for the fixed delay and then for a limiter token. The limiter
// is shared by every goroutine using the client.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if p.Limiter != nil {
		return p.Limiter.Wait(ctx)
	}
	return nil
}
