package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sourceLimiter pairs a token-bucket limiter with the last time it was
// touched, so RateLimiter can evict the least-recently-used entries once the
// map grows past maxEntries.
type sourceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter bounds how often datagrams from a single source address are
// allowed through to the decoder, guarding against a misbehaving or hostile
// peer flooding the receive loop. It tracks one golang.org/x/time/rate
// token bucket per source IP, in a map capped at maxEntries to bound memory
// under a spoofed-source-address flood.
type RateLimiter struct {
	mu         sync.Mutex
	perSecond  rate.Limit
	burst      int
	maxEntries int
	sources    map[string]*sourceLimiter
}

// NewRateLimiter creates a limiter allowing qps sustained queries per second
// per source IP, with a burst of burst, tracking at most maxEntries distinct
// sources.
func NewRateLimiter(qps int, burst int, maxEntries int) *RateLimiter {
	return &RateLimiter{
		perSecond:  rate.Limit(qps),
		burst:      burst,
		maxEntries: maxEntries,
		sources:    make(map[string]*sourceLimiter),
	}
}

// Allow reports whether a datagram from sourceIP should be processed.
func (rl *RateLimiter) Allow(sourceIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.sources[sourceIP]
	if !exists {
		if len(rl.sources) >= rl.maxEntries {
			rl.evictOldest()
		}
		entry = &sourceLimiter{limiter: rate.NewLimiter(rl.perSecond, rl.burst)}
		rl.sources[sourceIP] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// evictOldest drops the least-recently-seen source. Must be called with
// rl.mu held.
func (rl *RateLimiter) evictOldest() {
	var oldestIP string
	var oldestTime time.Time
	for ip, entry := range rl.sources {
		if oldestIP == "" || entry.lastSeen.Before(oldestTime) {
			oldestIP = ip
			oldestTime = entry.lastSeen
		}
	}
	if oldestIP != "" {
		delete(rl.sources, oldestIP)
	}
}

// Cleanup removes sources not seen within staleAfter, bounding memory growth
// between floods. Callers run this periodically (e.g. every few minutes).
func (rl *RateLimiter) Cleanup(staleAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-staleAfter)
	for ip, entry := range rl.sources {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.sources, ip)
		}
	}
}
