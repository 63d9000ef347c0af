// Package timing records how long each phase of a setup run takes.
package timing

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Timer tracks durations of named phases.
type Timer struct {
	mu     sync.Mutex
	start  time.Time
	last   time.Time
	phases []Phase
}

// Phase represents a timed phase with name and duration.
type Phase struct {
	Name     string
	Duration time.Duration
}

// New creates a new Timer starting from now.
func New() *Timer {
	now := time.Now()
	return &Timer{start: now, last: now}
}

// Reset drops recorded phases and restarts the clock.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.start, t.last = now, now
	t.phases = nil
}

// Mark records a named phase ending now. Duration is time since the last
// mark (or since start if first mark). Marking the same name again, as a
// retried phase does, accumulates into the existing entry.
func (t *Timer) Mark(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	d := now.Sub(t.last)
	t.last = now

	for i := range t.phases {
		if t.phases[i].Name == name {
			t.phases[i].Duration += d
			return
		}
	}
	t.phases = append(t.phases, Phase{Name: name, Duration: d})
}

// Total returns the total elapsed time since the timer started.
func (t *Timer) Total() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Since(t.start)
}

// Phases returns a copy of the recorded phases.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Phase, len(t.phases))
	copy(out, t.phases)
	return out
}

// Fields renders the phases for a structured log entry.
func (t *Timer) Fields() logrus.Fields {
	f := logrus.Fields{"total": FormatDuration(t.Total())}
	for _, p := range t.Phases() {
		f["phase_"+p.Name] = FormatDuration(p.Duration)
	}
	return f
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
