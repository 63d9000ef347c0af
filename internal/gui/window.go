// Package gui provides the setup window for dockhand.
package gui

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/javanstorm/dockhand/internal/gate"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/sirupsen/logrus"
)

const appID = "io.github.javanstorm.dockhand"

var log = logrus.WithField("component", "gui")

// Actions are the recovery actions behind the window's buttons.
type Actions interface {
	RetryPlain() error
	RetryWithVMRemoval(ctx context.Context) error
	SwitchBackend() error
}

// Window is the setup window. It implements setup.Reporter and
// setup.Navigator; every widget update is marshalled onto the fyne thread.
type Window struct {
	app fyne.App
	win fyne.Window

	status   *widget.Label
	progress *widget.ProgressBar
	errLabel *widget.Label

	retry    *widget.Button
	removeVM *widget.Button
	useVBox  *widget.Button
	recovery *fyne.Container

	ctx     context.Context
	actions Actions
}

// New builds the window on a. The window is not shown until Run.
func New(ctx context.Context, a fyne.App, title string) *Window {
	w := &Window{
		app:      a,
		win:      a.NewWindow(title),
		status:   widget.NewLabel("Checking setup..."),
		progress: widget.NewProgressBar(),
		errLabel: widget.NewLabel(""),
		ctx:      ctx,
	}
	w.errLabel.Wrapping = fyne.TextWrapWord
	w.errLabel.Importance = widget.DangerImportance
	w.errLabel.Hide()
	w.progress.Hide()

	w.retry = widget.NewButton("Retry", func() {
		w.act(func(a Actions) error { return a.RetryPlain() })
	})
	w.removeVM = widget.NewButton("Delete VM & Retry", func() {
		w.act(func(a Actions) error { return a.RetryWithVMRemoval(w.ctx) })
	})
	w.useVBox = widget.NewButton("Use VirtualBox", func() {
		w.act(func(a Actions) error { return a.SwitchBackend() })
	})
	w.recovery = container.NewHBox(w.retry, w.removeVM, w.useVBox)
	w.recovery.Hide()

	w.win.SetContent(container.NewVBox(w.status, w.progress, w.errLabel, w.recovery))
	w.win.Resize(fyne.NewSize(480, 200))
	return w
}

// Attach sets the recovery actions behind the buttons.
func (w *Window) Attach(a Actions) {
	w.actions = a
}

// act disables the buttons and runs fn off the UI thread; removing a VM can
// take a while.
func (w *Window) act(fn func(Actions) error) {
	if w.actions == nil {
		return
	}
	w.setButtonsEnabled(false)
	go func() {
		err := fn(w.actions)
		if err != nil && !errors.Is(err, gate.ErrNotPaused) {
			log.WithError(err).Warn("recovery action failed")
		}
	}()
}

func (w *Window) setButtonsEnabled(enabled bool) {
	for _, b := range []*widget.Button{w.retry, w.removeVM, w.useVBox} {
		if enabled {
			b.Enable()
		} else {
			b.Disable()
		}
	}
}

func (w *Window) Progress(percent float64) {
	fyne.Do(func() {
		w.progress.Show()
		w.progress.SetValue(percent / 100)
	})
}

func (w *Window) Started(started bool) {
	fyne.Do(func() {
		if started {
			w.status.SetText("Starting Docker Machine VM...")
		}
	})
}

func (w *Window) Error(err error) {
	fyne.Do(func() {
		w.progress.Hide()
		w.errLabel.SetText(err.Error())
		w.errLabel.Show()
	})
}

// GoTo switches between the loading view and the setup view with its
// recovery buttons. On the setup view "native" selects which buttons apply.
func (w *Window) GoTo(screen setup.Screen, params map[string]any) {
	native, hasNative := params["native"].(bool)

	fyne.Do(func() {
		switch screen {
		case setup.ScreenLoading:
			w.status.SetText("Retrying setup...")
			w.errLabel.Hide()
			w.recovery.Hide()
		case setup.ScreenSetup:
			if hasNative {
				w.showNative(native)
			}
			w.setButtonsEnabled(true)
			w.recovery.Show()
		}
	})
}

// StateChanged keeps the offered buttons in line with the attempt in
// progress.
func (w *Window) StateChanged(from, to setup.State) {
	fyne.Do(func() {
		switch to {
		case setup.StateNativeAttempt:
			w.status.SetText("Connecting to the local Docker engine...")
			w.showNative(true)
		case setup.StateVirtualAttempt:
			w.status.SetText("Setting up Docker Machine...")
			w.showNative(false)
		case setup.StateAwaitingOperator:
			w.setButtonsEnabled(true)
			w.recovery.Show()
		case setup.StateReady:
			w.status.SetText("Docker is ready.")
			w.progress.Hide()
			w.errLabel.Hide()
			w.recovery.Hide()
		}
	})
}

func (w *Window) showNative(native bool) {
	if native {
		w.useVBox.Show()
		w.removeVM.Hide()
	} else {
		w.useVBox.Hide()
		w.removeVM.Show()
	}
}

// Run shows the window and runs work until it returns or the window is
// closed. Closing the window or SIGINT/SIGTERM cancels work's context.
func (w *Window) Run(work func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(w.ctx)
	defer cancel()
	w.ctx = ctx

	w.win.SetCloseIntercept(func() {
		cancel()
		w.app.Quit()
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
			fyne.Do(w.app.Quit)
		case <-ctx.Done():
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- work(ctx)
		fyne.Do(w.app.Quit)
	}()

	w.win.Show()
	w.app.Run()

	cancel()
	return <-done
}

// NewApp returns the desktop application the window runs in.
func NewApp() fyne.App {
	return app.NewWithID(appID)
}

var (
	_ setup.Reporter  = (*Window)(nil)
	_ setup.Navigator = (*Window)(nil)
)
