package security

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/suroccidente/storefront/internal/metrics"
)

// Policy is a sliding-window request budget keyed by client IP.
type Policy struct {
	Name        string
	Window      time.Duration
	MaxRequests int
}

var (
	LoginPolicy = Policy{Name: "login", Window: 15 * time.Minute, MaxRequests: 5}
	AdminPolicy = Policy{Name: "admin", Window: 5 * time.Minute, MaxRequests: 50}
)

// Limiter tracks request timestamps per IP. State is in-process only:
// each instance enforces its own budget and everything resets on
// restart.
type Limiter struct {
	mu     sync.Mutex
	policy Policy
	hits   map[string][]time.Time

	now func() time.Time
}

func NewLimiter(p Policy) *Limiter {
	return &Limiter{policy: p, hits: map[string][]time.Time{}, now: time.Now}
}

// Allow prunes timestamps outside the window and admits the request if
// the remaining count is under the budget. On rejection it returns the
// seconds a client should wait before retrying.
func (l *Limiter) Allow(ip string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.policy.Window)
	recent := l.hits[ip][:0]
	for _, t := range l.hits[ip] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	l.hits[ip] = recent

	if len(recent) >= l.policy.MaxRequests {
		retry := l.policy.Window - now.Sub(recent[0])
		metrics.RateLimitRejections.WithLabelValues(l.policy.Name).Inc()
		return false, int(math.Ceil(retry.Seconds()))
	}
	l.hits[ip] = append(recent, now)
	return true, 0
}

// Sweep drops IPs whose every timestamp has aged out of the window so
// the map does not grow without bound.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.policy.Window)
	for ip, ts := range l.hits {
		alive := false
		for _, t := range ts {
			if t.After(cutoff) {
				alive = true
				break
			}
		}
		if !alive {
			delete(l.hits, ip)
		}
	}
}

func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Sweep()
			}
		}
	}()
}
