package throttle

import (
	"time"

	"golang.org/x/time/rate"
)

// Gate is a minimum-interval filter for high-volume callbacks. Callers feed
// every event through Allow and only publish the ones that pass; dropped
// events carry no information the next allowed one doesn't.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate builds a gate that lets at most one event through per interval.
func NewGate(minInterval time.Duration) *Gate {
	if minInterval <= 0 {
		minInterval = 100 * time.Millisecond
	}
	return &Gate{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Allow reports whether the caller may publish this event.
func (g *Gate) Allow() bool {
	return g.limiter.Allow()
}
