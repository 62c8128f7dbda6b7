package dht

import (
	"sync"
	"time"
)

// tokenBucket throttles inbound DHT requests per source destination, a
// defensive measure the reference protocol does not specify. It never
// changes protocol semantics; a throttled request is simply dropped
// before it reaches a handler.
type tokenBucket struct {
	tokens float64
	last   time.Time
}

func (b *tokenBucket) allow(now time.Time, rate float64, burst float64, cost float64) bool {
	if b.last.IsZero() {
		b.last = now
		b.tokens = burst
	}
	elapsed := now.Sub(b.last).Seconds()
	b.last = now

	// refill
	b.tokens += elapsed * rate
	if b.tokens > burst {
		b.tokens = burst
	}
	if b.tokens < cost {
		return false
	}
	b.tokens -= cost
	return true
}

// InboundLimiter throttles inbound requests per source destination
// string. A zero value is usable but rejects nothing until configured
// with Rate/Burst.
type InboundLimiter struct {
	Rate  float64 // tokens per second
	Burst float64

	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

// NewInboundLimiter returns a limiter admitting up to burst requests
// instantly per source and refilling at rate tokens/second thereafter.
func NewInboundLimiter(rate, burst float64) *InboundLimiter {
	return &InboundLimiter{Rate: rate, Burst: burst, buckets: make(map[string]*tokenBucket)}
}

// Allow reports whether a request from src may proceed now, consuming
// one token if so.
func (l *InboundLimiter) Allow(src string) bool {
	if l == nil || l.Rate <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buckets == nil {
		l.buckets = make(map[string]*tokenBucket)
	}
	b := l.buckets[src]
	if b == nil {
		b = &tokenBucket{}
		l.buckets[src] = b
	}
	return b.allow(time.Now(), l.Rate, l.Burst, 1)
}
