package gui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActions struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeActions) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeActions) RetryPlain() error                        { return f.record("retry") }
func (f *fakeActions) RetryWithVMRemoval(context.Context) error { return f.record("remove") }
func (f *fakeActions) SwitchBackend() error                     { return f.record("switch") }

func (f *fakeActions) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestWindow(t *testing.T) (*Window, *fakeActions) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	w := New(context.Background(), a, "dockhand")
	actions := &fakeActions{}
	w.Attach(actions)
	return w, actions
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

func TestSetupScreenNative(t *testing.T) {
	w, actions := newTestWindow(t)

	w.GoTo(setup.ScreenSetup, map[string]any{"native": true})
	eventually(t, func() bool { return w.recovery.Visible() })
	assert.True(t, w.useVBox.Visible())
	assert.False(t, w.removeVM.Visible())

	test.Tap(w.useVBox)
	eventually(t, func() bool { return len(actions.Calls()) == 1 })
	assert.Equal(t, []string{"switch"}, actions.Calls())
	assert.True(t, w.retry.Disabled(), "buttons lock until the next pause")
}

func TestSetupScreenVirtualized(t *testing.T) {
	w, actions := newTestWindow(t)

	w.StateChanged(setup.StateProbing, setup.StateVirtualAttempt)
	w.GoTo(setup.ScreenSetup, nil)
	eventually(t, func() bool { return w.recovery.Visible() })
	assert.True(t, w.removeVM.Visible())
	assert.False(t, w.useVBox.Visible())

	test.Tap(w.removeVM)
	eventually(t, func() bool { return len(actions.Calls()) == 1 })
	assert.Equal(t, []string{"remove"}, actions.Calls())

	w.StateChanged(setup.StateVirtualAttempt, setup.StateAwaitingOperator)
	eventually(t, func() bool { return !w.retry.Disabled() })
}

func TestLoadingHidesRecovery(t *testing.T) {
	w, _ := newTestWindow(t)

	w.Error(errors.New("VirtualBox is not installed. Please install it via the Docker Toolbox."))
	w.GoTo(setup.ScreenSetup, nil)
	eventually(t, func() bool { return w.errLabel.Visible() && w.recovery.Visible() })
	assert.Contains(t, w.errLabel.Text, "VirtualBox is not installed")

	w.GoTo(setup.ScreenLoading, nil)
	eventually(t, func() bool { return !w.recovery.Visible() })
	assert.False(t, w.errLabel.Visible())
	assert.Equal(t, "Retrying setup...", w.status.Text)
}

func TestProgressAndReady(t *testing.T) {
	w, _ := newTestWindow(t)

	w.Started(true)
	w.Progress(40)
	eventually(t, func() bool { return w.progress.Visible() })
	assert.InDelta(t, 0.4, w.progress.Value, 1e-9)
	assert.Equal(t, "Starting Docker Machine VM...", w.status.Text)

	w.StateChanged(setup.StateVirtualAttempt, setup.StateReady)
	eventually(t, func() bool { return !w.progress.Visible() })
	assert.Equal(t, "Docker is ready.", w.status.Text)
}
