package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	values []float64
}

func (r *recordingSink) Progress(percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, percent)
}

func (r *recordingSink) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

func TestSteps(t *testing.T) {
	s := NewSimulator(&recordingSink{})

	tests := []struct {
		estimate time.Duration
		want     int
	}{
		{60 * time.Second, 300},
		{25 * time.Second, 125},
		{10 * time.Second, 50},
		{time.Second, 5},
		{300 * time.Millisecond, 1},
		{100 * time.Millisecond, 0},
		{0, 0},
		{-time.Second, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Steps(tt.estimate), "Steps(%v)", tt.estimate)
	}
}

func TestSimulateEmitsMonotonicRamp(t *testing.T) {
	sink := &recordingSink{}
	s := NewSimulator(sink, WithInterval(2*time.Millisecond))

	s.Clear()
	s.Simulate(20 * time.Millisecond)

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 10
	}, time.Second, time.Millisecond)

	values := sink.snapshot()
	assert.Equal(t, 0.0, values[0])
	for i := 1; i < len(values); i++ {
		assert.Greater(t, values[i], values[i-1], "value %d not increasing", i)
	}
	assert.InDelta(t, 90.0, values[len(values)-1], 0.0001)

	// Let the ramp finish; nothing beyond the computed step count.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sink.snapshot(), 10)
}

func TestClearStopsEmission(t *testing.T) {
	sink := &recordingSink{}
	s := NewSimulator(sink, WithInterval(5*time.Millisecond))

	s.Simulate(10 * time.Second)
	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= 2
	}, time.Second, time.Millisecond)

	s.Clear()
	n := len(sink.snapshot())

	time.Sleep(30 * time.Millisecond)
	assert.Len(t, sink.snapshot(), n, "no values after Clear")

	// Idempotent.
	s.Clear()
	s.Clear()
}

func TestSimulateReplacesPreviousRamp(t *testing.T) {
	sink := &recordingSink{}
	s := NewSimulator(sink, WithInterval(5*time.Millisecond))

	s.Simulate(10 * time.Second)
	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= 3
	}, time.Second, time.Millisecond)

	s.Simulate(10 * time.Millisecond)

	require.Eventually(t, func() bool {
		values := sink.snapshot()
		return values[len(values)-1] == 50.0
	}, time.Second, time.Millisecond)

	values := sink.snapshot()
	assert.Equal(t, 0.0, values[len(values)-2], "new ramp starts at zero")

	time.Sleep(30 * time.Millisecond)
	assert.Len(t, sink.snapshot(), len(values), "old ramp is gone")
}
