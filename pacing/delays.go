// Package pacing decides how long the scraper waits between browser actions.
package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Span is an inclusive range of wait durations
type Span struct {
	Min time.Duration
	Max time.Duration
}

// Fixed returns a span that always waits exactly d.
func Fixed(d time.Duration) Span {
	return Span{Min: d, Max: d}
}

// Common spans used throughout a run
var (
	// PageSettle waits for a freshly loaded page to render
	PageSettle = Span{Min: 5 * time.Second, Max: 10 * time.Second}

	// Keystroke is the pause between focusing a field and typing into it
	Keystroke = Span{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}

	// AfterNavigate waits after a direct URL load during pagination
	AfterNavigate = Fixed(5 * time.Second)

	// AfterClick waits after activating a pagination control
	AfterClick = Fixed(3 * time.Second)
)

// Policy governs inter-action delays
type Policy interface {
	// Pause blocks for a duration drawn from span, or until ctx is done.
	Pause(ctx context.Context, span Span) error
}

// Random draws a uniform duration from each span
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a Random policy. A zero seed uses the current time.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Duration picks a wait inside span
func (r *Random) Duration(span Span) time.Duration {
	if span.Max <= span.Min {
		return span.Min
	}
	r.mu.Lock()
	n := r.rng.Int63n(int64(span.Max-span.Min) + 1)
	r.mu.Unlock()
	return span.Min + time.Duration(n)
}

func (r *Random) Pause(ctx context.Context, span Span) error {
	return sleep(ctx, r.Duration(span))
}

// None never waits. Tests use it to run the pipeline at full speed.
type None struct{}

func (None) Pause(ctx context.Context, _ Span) error {
	return ctx.Err()
}

// Scaled shrinks or stretches every span of an inner policy by Factor.
type Scaled struct {
	Inner  Policy
	Factor float64
}

func (s Scaled) Pause(ctx context.Context, span Span) error {
	scaled := Span{
		Min: time.Duration(float64(span.Min) * s.Factor),
		Max: time.Duration(float64(span.Max) * s.Factor),
	}
	return s.Inner.Pause(ctx, scaled)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
