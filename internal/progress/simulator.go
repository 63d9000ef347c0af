// Package progress emits a simulated percentage ramp while a long VM
// operation runs without a progress signal of its own.
package progress

import (
	"sync"
	"time"
)

// DefaultInterval is the cadence of a ramp.
const DefaultInterval = 200 * time.Millisecond

// Sink receives ramp values in the range [0, 100).
type Sink interface {
	Progress(percent float64)
}

// Simulator runs at most one ramp at a time.
type Simulator struct {
	sink     Sink
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithInterval overrides the emission cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewSimulator creates a simulator that reports to sink.
func NewSimulator(sink Sink, opts ...Option) *Simulator {
	s := &Simulator{
		sink:     sink,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Steps returns how many values a ramp of the given estimate emits.
func (s *Simulator) Steps(estimate time.Duration) int {
	if estimate <= 0 {
		return 0
	}
	return int(estimate / s.interval)
}

// Simulate clears any running ramp and starts a new one. Value i is emitted
// at i*interval and reports 100*i*interval/estimate.
func (s *Simulator) Simulate(estimate time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()

	steps := s.Steps(estimate)
	if steps == 0 {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go s.run(estimate, steps, stop, done)
}

// Clear cancels the running ramp. After Clear returns no further value is
// emitted. Safe to call when nothing runs.
func (s *Simulator) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Simulator) clearLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
}

func (s *Simulator) run(estimate time.Duration, steps int, stop, done chan struct{}) {
	defer close(done)

	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for i := 0; i < steps; i++ {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		// Re-check so a Clear racing the timer wins.
		select {
		case <-stop:
			return
		default:
		}

		elapsed := time.Duration(i) * s.interval
		s.sink.Progress(100 * float64(elapsed) / float64(estimate))

		next := time.Duration(i+1) * s.interval
		timer.Reset(time.Until(start.Add(next)))
	}
}
