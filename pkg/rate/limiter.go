// Package rate limits requests per client key.
package rate

import (
	"net"
	"sync"
	"time"

	xrate "golang.org/x/time/rate"
)

type entry struct {
	lim  *xrate.Limiter
	last time.Time
}

// Limiter hands out a token bucket per key. Buckets idle for longer than the
// window are dropped on the next sweep.
type Limiter struct {
	mu      sync.Mutex
	limit   xrate.Limit
	burst   int
	window  time.Duration
	buckets map[string]*entry
	sweep   time.Time
	now     func() time.Time
}

// New allows rate requests per window for each key.
func New(rate int, window time.Duration) *Limiter {
	if rate < 1 {
		rate = 1
	}
	return &Limiter{
		limit:   xrate.Limit(float64(rate) / window.Seconds()),
		burst:   rate,
		window:  window,
		buckets: map[string]*entry{},
		now:     time.Now,
	}
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.sweep) > l.window {
		for k, e := range l.buckets {
			if now.Sub(e.last) > l.window {
				delete(l.buckets, k)
			}
		}
		l.sweep = now
	}
	e, ok := l.buckets[key]
	if !ok {
		e = &entry{lim: xrate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = e
	}
	e.last = now
	return e.lim.AllowN(now, 1)
}

// IP strips the port from a remote address.
func IP(raddr string) string {
	host, _, err := net.SplitHostPort(raddr)
	if err != nil {
		return raddr
	}
	return host
}
