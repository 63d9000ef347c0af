// Package console presents setup in a terminal and asks the operator how to
// recover when setup suspends.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/javanstorm/dockhand/internal/gate"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "console")

// Actions are the recovery actions offered at the prompt.
type Actions interface {
	RetryPlain() error
	RetryWithVMRemoval(ctx context.Context) error
	SwitchBackend() error
}

// Console implements setup.Reporter and setup.Navigator on a terminal.
type Console struct {
	out  io.Writer
	in   *bufio.Reader
	quit func()

	mu      sync.Mutex
	actions Actions
	native  bool
	percent int
	started bool
}

// New returns a Console that reads choices from in and writes to out. quit
// is called when the operator gives up.
func New(in io.Reader, out io.Writer, quit func()) *Console {
	return &Console{
		out:     out,
		in:      bufio.NewReader(in),
		quit:    quit,
		percent: -1,
	}
}

// Attach sets the recovery actions the prompt dispatches to.
func (c *Console) Attach(a Actions) {
	c.mu.Lock()
	c.actions = a
	c.mu.Unlock()
}

// Progress redraws the progress line when the whole percentage changes.
func (c *Console) Progress(percent float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := int(percent)
	if p == c.percent {
		return
	}
	c.percent = p
	fmt.Fprintf(c.out, "\r  %3d%% %s", p, bar(p, 30))
}

func (c *Console) Started(started bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if started && !c.started {
		fmt.Fprintln(c.out, "Starting Docker Machine VM...")
	}
	c.started = started
}

func (c *Console) Error(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.endProgressLine()
	fmt.Fprintf(c.out, "Error: %v\n", err)
}

// GoTo tracks the screen the orchestrator asked for. The setup screen's
// "native" parameter decides which recovery choices are offered.
func (c *Console) GoTo(screen setup.Screen, params map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if native, ok := params["native"].(bool); ok {
		c.native = native
	}
	if screen == setup.ScreenLoading {
		c.endProgressLine()
		fmt.Fprintln(c.out, "Retrying setup...")
	}
	log.WithField("screen", screen).Debug("navigate")
}

// StateChanged is the orchestrator's state hook. It opens the prompt when
// setup suspends and tracks the backend of the attempt in progress.
func (c *Console) StateChanged(ctx context.Context) func(from, to setup.State) {
	return func(from, to setup.State) {
		switch to {
		case setup.StateNativeAttempt:
			c.setNative(true)
		case setup.StateVirtualAttempt:
			c.setNative(false)
		case setup.StateAwaitingOperator:
			go c.Prompt(ctx)
		case setup.StateReady:
			c.mu.Lock()
			c.endProgressLine()
			c.mu.Unlock()
		}
	}
}

func (c *Console) setNative(native bool) {
	c.mu.Lock()
	c.native = native
	c.mu.Unlock()
}

// choice is one prompt entry.
type choice struct {
	key   string
	label string
	run   func(ctx context.Context, a Actions) error
}

func (c *Console) choices() []choice {
	c.mu.Lock()
	native := c.native
	c.mu.Unlock()

	out := []choice{{"r", "retry", func(_ context.Context, a Actions) error { return a.RetryPlain() }}}
	if native {
		out = append(out, choice{"v", "use a VirtualBox VM instead", func(_ context.Context, a Actions) error {
			return a.SwitchBackend()
		}})
	} else {
		out = append(out, choice{"d", "remove the VM and retry", func(ctx context.Context, a Actions) error {
			return a.RetryWithVMRemoval(ctx)
		}})
	}
	return out
}

// Prompt asks until the operator picks a valid action, quits, or input ends.
func (c *Console) Prompt(ctx context.Context) {
	c.mu.Lock()
	actions := c.actions
	c.mu.Unlock()
	if actions == nil {
		log.Warn("no recovery actions attached")
		return
	}

	for {
		choices := c.choices()
		c.printMenu(choices)

		line, err := c.in.ReadString('\n')
		key := strings.ToLower(strings.TrimSpace(line))
		if err != nil && key == "" {
			log.WithError(err).Debug("operator input closed")
			c.quit()
			return
		}
		if key == "q" {
			c.quit()
			return
		}

		picked := false
		for _, ch := range choices {
			if ch.key != key {
				continue
			}
			picked = true
			if err := ch.run(ctx, actions); err != nil && !errors.Is(err, gate.ErrNotPaused) {
				fmt.Fprintf(c.out, "Error: %v\n", err)
			}
		}
		if picked {
			return
		}
		fmt.Fprintf(c.out, "Unknown choice %q\n", key)
	}
}

func (c *Console) printMenu(choices []choice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out, "\nSetup is paused. Choose how to continue:")
	for _, ch := range choices {
		fmt.Fprintf(c.out, "  [%s] %s\n", ch.key, ch.label)
	}
	fmt.Fprintln(c.out, "  [q] quit")
	fmt.Fprint(c.out, "> ")
}

// endProgressLine finishes an open progress line. Callers hold mu.
func (c *Console) endProgressLine() {
	if c.percent >= 0 {
		fmt.Fprintln(c.out)
	}
	c.percent = -1
}

func bar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	_ setup.Reporter  = (*Console)(nil)
	_ setup.Navigator = (*Console)(nil)
)
