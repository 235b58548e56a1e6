// Package ratelimiter provides keyed token bucket rate limiting.
//
// The control plane uses it to throttle login attempts per client address,
// so a credential stuffing run against one address cannot lock honest
// clients out and cannot hammer the password hash.
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PerKey tracks one token bucket per key, typically a client address.
//
// Buckets are created on first use and evicted once idle long enough that
// a fresh bucket would behave identically, so the map stays bounded by the
// set of recently active clients.
//
// Thread safety:
// All methods are safe for concurrent use.
type PerKey struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit rate.Limit
	burst int

	// idleTTL is how long a bucket may go unused before eviction. It always
	// covers a full refill, so eviction never grants extra tokens.
	idleTTL   time.Duration
	lastSweep time.Time

	// now is replaced in tests to drive eviction deterministically.
	now func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// minIdleTTL keeps the sweep interval sane for very permissive limits.
const minIdleTTL = time.Minute

// NewPerKey creates a keyed limiter allowing a sustained perMinute rate with
// the given burst capacity per key.
//
// A perMinute of 0 disables limiting entirely: Allow always returns true and
// no state is kept. A burst below 1 is raised to 1 so the first request of
// a key always succeeds.
func NewPerKey(perMinute int, burst int) *PerKey {
	if perMinute <= 0 {
		return &PerKey{}
	}
	if burst < 1 {
		burst = 1
	}

	limit := rate.Limit(float64(perMinute) / 60.0)

	// A bucket refills completely after burst/limit seconds; twice that is
	// long enough that evicting and recreating it changes nothing.
	idle := 2 * time.Duration(float64(burst)/float64(limit)*float64(time.Second))
	if idle < minIdleTTL {
		idle = minIdleTTL
	}

	return &PerKey{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   burst,
		idleTTL: idle,
		now:     time.Now,
	}
}

// Allow reports whether the request identified by key may proceed, consuming
// one token from the key's bucket when it does.
func (p *PerKey) Allow(key string) bool {
	if p.buckets == nil {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()

	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.buckets[key] = b
	}
	b.lastSeen = now

	p.sweepLocked(now)

	return b.limiter.AllowN(now, 1)
}

// sweepLocked evicts buckets that have been idle past the TTL. It runs at
// most once per TTL so Allow stays cheap on the hot path.
func (p *PerKey) sweepLocked(now time.Time) {
	if now.Sub(p.lastSweep) < p.idleTTL {
		return
	}
	p.lastSweep = now

	for key, b := range p.buckets {
		if now.Sub(b.lastSeen) >= p.idleTTL {
			delete(p.buckets, key)
		}
	}
}

// Len returns the number of tracked keys. Useful for monitoring and tests.
func (p *PerKey) Len() int {
	if p.buckets == nil {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets)
}
