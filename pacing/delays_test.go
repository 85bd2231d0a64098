package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDuration_WithinSpan(t *testing.T) {
	r := NewRandom(42)
	span := Span{Min: 10 * time.Millisecond, Max: 20 * time.Millisecond}

	for i := 0; i < 200; i++ {
		d := r.Duration(span)
		assert.GreaterOrEqual(t, d, span.Min)
		assert.LessOrEqual(t, d, span.Max)
	}
}

func TestRandomDuration_DegenerateSpan(t *testing.T) {
	r := NewRandom(1)
	assert.Equal(t, 3*time.Second, r.Duration(Fixed(3*time.Second)))
	assert.Equal(t, 2*time.Second, r.Duration(Span{Min: 2 * time.Second, Max: time.Second}))
}

func TestRandomPause_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := NewRandom(7).Pause(ctx, Fixed(time.Minute))
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNone(t *testing.T) {
	require.NoError(t, None{}.Pause(context.Background(), PageSettle))
}

type recorder struct{ spans []Span }

func (r *recorder) Pause(_ context.Context, s Span) error {
	r.spans = append(r.spans, s)
	return nil
}

func TestScaled(t *testing.T) {
	rec := &recorder{}
	p := Scaled{Inner: rec, Factor: 0.5}

	require.NoError(t, p.Pause(context.Background(), PageSettle))
	require.Len(t, rec.spans, 1)
	assert.Equal(t, 2500*time.Millisecond, rec.spans[0].Min)
	assert.Equal(t, 5*time.Second, rec.spans[0].Max)
}
