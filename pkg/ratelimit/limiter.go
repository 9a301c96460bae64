package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PerMinute converts a requests-per-minute budget to a rate.Limit.
// A non-positive budget means no limit.
func PerMinute(rpm int) rate.Limit {
	if rpm <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(rpm) / 60.0)
}

// HostLimiter rate-limits per hostname so listing and detail hosts get
// independent budgets.
type HostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

// NewHostLimiter creates a per-host limiter allowing rpm requests per minute
func NewHostLimiter(rpm, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		m: make(map[string]*rate.Limiter),
		r: PerMinute(rpm),
		b: burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(hl.r, hl.b)
	hl.m[host] = lim
	return lim
}

// WaitURL blocks until a request to raw's host may proceed
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.limiterFor("_").Wait(ctx)
	}
	return hl.limiterFor(u.Host).Wait(ctx)
}

// Pacer spaces detail fetches: a fixed delay before every fetch except the
// first, then the per-host token bucket.
type Pacer struct {
	mu      sync.Mutex
	delay   time.Duration
	hosts   *HostLimiter
	started bool
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer with a fixed delay and a per-minute request budget
func NewPacer(delay time.Duration, rpm, burst int) *Pacer {
	return &Pacer{
		delay: delay,
		hosts: NewHostLimiter(rpm, burst),
		sleep: sleepCtx,
	}
}

// Wait blocks until the next fetch of target may start
func (p *Pacer) Wait(ctx context.Context, target string) error {
	p.mu.Lock()
	first := !p.started
	p.started = true
	p.mu.Unlock()

	if !first && p.delay > 0 {
		if err := p.sleep(ctx, p.delay); err != nil {
			return err
		}
	}
	return p.hosts.WaitURL(ctx, target)
}

// Delay returns the configured fixed delay
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
