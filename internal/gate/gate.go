// Package gate provides a single-slot suspension that blocks the setup loop
// until an operator decides how to continue.
package gate

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrAlreadyPaused is returned when a suspension is requested while
	// another one is still pending.
	ErrAlreadyPaused = errors.New("gate: already paused")

	// ErrNotPaused is returned by Claim when there is nothing to resume.
	ErrNotPaused = errors.New("gate: not paused")
)

// Gate holds at most one pending suspension.
// The zero value is ready to use.
type Gate struct {
	mu      sync.Mutex
	pending *Suspension
}

// Suspension is one pause. It is released exactly once.
type Suspension struct {
	gate *Gate
	done chan struct{}
	once sync.Once
}

func (s *Suspension) release() {
	s.once.Do(func() { close(s.done) })
}

// Pause registers a new suspension. It fails with ErrAlreadyPaused instead
// of replacing one that nobody has claimed yet.
func (g *Gate) Pause() (*Suspension, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending != nil {
		return nil, ErrAlreadyPaused
	}
	s := &Suspension{gate: g, done: make(chan struct{})}
	g.pending = s
	return s, nil
}

// Wait blocks until the suspension is released or ctx is cancelled. A
// cancelled wait drops the suspension so the gate can pause again.
func (s *Suspension) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.gate.mu.Lock()
		if s.gate.pending == s {
			s.gate.pending = nil
		}
		s.gate.mu.Unlock()
		return ctx.Err()
	}
}

// Wait pauses and blocks in one step.
func (g *Gate) Wait(ctx context.Context) error {
	s, err := g.Pause()
	if err != nil {
		return err
	}
	return s.Wait(ctx)
}

// Claim takes ownership of the pending suspension and returns the function
// that releases it. Only the first caller gets a release func; everyone else
// sees ErrNotPaused. The release may run after slow work (such as removing
// a VM) without a second resume slipping in.
func (g *Gate) Claim() (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.pending
	if s == nil {
		return nil, ErrNotPaused
	}
	g.pending = nil
	return s.release, nil
}

// Pending reports whether a suspension is waiting to be claimed.
func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}
