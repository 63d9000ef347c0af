package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// event is one observable call made by the orchestrator.
type event struct {
	kind string
	name string
	data any
}

// recorder implements every presentation and reporting collaborator and
// keeps calls in order.
type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(kind, name string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: kind, name: name, data: data})
}

func (r *recorder) all() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) of(kind string) []event {
	var out []event
	for _, e := range r.all() {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) names(kind string) []string {
	var out []string
	for _, e := range r.of(kind) {
		out = append(out, e.name)
	}
	return out
}

// index returns the position of the first event matching kind and name.
func (r *recorder) index(kind, name string) int {
	for i, e := range r.all() {
		if e.kind == kind && e.name == name {
			return i
		}
	}
	return -1
}

func (r *recorder) errors() []error {
	var out []error
	for _, e := range r.of("error") {
		out = append(out, e.data.(error))
	}
	return out
}

func (r *recorder) Progress(percent float64) { r.add("progress", "", percent) }
func (r *recorder) Started(started bool) { r.add("started", fmt.Sprint(started), started) }
func (r *recorder) Error(err error) { r.add("error", err.Error(), err) }

func (r *recorder) GoTo(screen Screen, params map[string]any) {
	r.add("nav", string(screen), params)
}

func (r *recorder) Track(name string, props map[string]any) { r.add("track", name, props) }

func (r *recorder) Notify(title, summary string, details map[string]any, severity Severity) {
	r.add("notify", title, notification{summary: summary, details: details, severity: severity})
}

func (r *recorder) Set(key string, value any) error {
	r.add("pref", key, value)
	return nil
}

func (r *recorder) Simulate(estimate time.Duration) { r.add("ramp", estimate.String(), estimate) }
func (r *recorder) Clear() { r.add("clear", "", nil) }

type notification struct {
	summary  string
	details  map[string]any
	severity Severity
}

type fakeProbe struct {
	linux   bool
	sockErr error
}

func (p *fakeProbe) IsNativeCapable() bool { return p.sockErr == nil }
func (p *fakeProbe) IsLinux() bool { return p.linux }
func (p *fakeProbe) StatSocket(string) error { return p.sockErr }

type fakeHypervisor struct {
	rec       *recorder
	installed bool
	version   string
	exists    bool
	existsErr error
}

func (h *fakeHypervisor) Installed() bool { return h.installed }

func (h *fakeHypervisor) Version(context.Context) (string, error) {
	return h.version, nil
}

func (h *fakeHypervisor) VMExists(_ context.Context, name string) (bool, error) {
	h.rec.add("vm-exists", name, nil)
	return h.exists, h.existsErr
}

type fakeMachine struct {
	rec       *recorder
	name      string
	storePath string
	installed bool
	version   string
	status    MachineState
	createErr error
	startErr  error
	removeErr error
	logs      string

	// removeHook runs inside Remove, before it returns.
	removeHook func()
	// ipFunc answers IP calls; n counts from 1.
	ipFunc func(n int) (string, error)

	mu      sync.Mutex
	ipCalls int
}

func (m *fakeMachine) Name() string { return m.name }
func (m *fakeMachine) Installed() bool { return m.installed }
func (m *fakeMachine) StorePath() string { return m.storePath }

func (m *fakeMachine) VirtualBoxLogs() string {
	m.rec.add("machine", "logs", nil)
	return m.logs
}

func (m *fakeMachine) Version(context.Context) (string, error) { return m.version, nil }

func (m *fakeMachine) Status(context.Context) (MachineState, error) {
	m.rec.add("machine", "status", nil)
	return m.status, nil
}

func (m *fakeMachine) Create(context.Context) error {
	m.rec.add("machine", "create", nil)
	return m.createErr
}

func (m *fakeMachine) Start(context.Context) error {
	m.rec.add("machine", "start", nil)
	return m.startErr
}

func (m *fakeMachine) Remove(context.Context) error {
	m.rec.add("machine", "remove", nil)
	if m.removeHook != nil {
		m.removeHook()
	}
	return m.removeErr
}

func (m *fakeMachine) IP(context.Context) (string, error) {
	m.mu.Lock()
	m.ipCalls++
	n := m.ipCalls
	m.mu.Unlock()

	m.rec.add("machine", "ip", nil)
	if m.ipFunc == nil {
		return "192.168.99.100", nil
	}
	return m.ipFunc(n)
}

func (m *fakeMachine) IPCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ipCalls
}

// materialize creates the on-disk machine record.
func (m *fakeMachine) materialize(t *testing.T) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(m.storePath, "machines", m.name), 0755))
}

type fakeEngine struct {
	rec *recorder
	// bindFunc answers Bind calls; n counts from 1.
	bindFunc func(n int, host string) error

	mu    sync.Mutex
	binds int
}

func (e *fakeEngine) Bind(_ context.Context, host, machineName string) error {
	e.mu.Lock()
	e.binds++
	n := e.binds
	e.mu.Unlock()

	e.rec.add("bind", host, machineName)
	if e.bindFunc == nil {
		return nil
	}
	return e.bindFunc(n, host)
}

// harness wires an Orchestrator to fakes. Defaults describe a healthy host
// with a running VM.
type harness struct {
	rec        *recorder
	probe      *fakeProbe
	hypervisor *fakeHypervisor
	machine    *fakeMachine
	engine     *fakeEngine
	backend    Backend

	orch     *Orchestrator
	cancel   context.CancelFunc
	finished chan struct{}
	result   error
}

func newHarness(t *testing.T, backend Backend) *harness {
	t.Helper()

	rec := &recorder{}
	h := &harness{
		rec:     rec,
		backend: backend,
		probe:   &fakeProbe{linux: true},
		hypervisor: &fakeHypervisor{
			rec:       rec,
			installed: true,
			version:   "5.0.10",
			exists:    true,
		},
		machine: &fakeMachine{
			rec:       rec,
			name:      "default",
			storePath: t.TempDir(),
			installed: true,
			version:   "0.6.0",
			status:    MachineRunning,
			logs:      "VBox.log contents",
		},
		engine: &fakeEngine{rec: rec},
	}
	h.machine.materialize(t)
	return h
}

// build creates the orchestrator without running it.
func (h *harness) build(t *testing.T) *Orchestrator {
	t.Helper()

	orch, err := New(Config{
		Probe:          h.probe,
		Machine:        h.machine,
		Hypervisor:     h.hypervisor,
		Engine:         h.engine,
		Reporter:       h.rec,
		Navigator:      h.rec,
		Telemetry:      h.rec,
		Diagnostics:    h.rec,
		Preferences:    h.rec,
		Ramp:           h.rec,
		Backend:        h.backend,
		IPPollAttempts: DefaultIPPollAttempts,
		IPPollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	h.orch = orch
	return orch
}

// start builds the orchestrator and runs it in the background.
func (h *harness) start(t *testing.T) {
	t.Helper()

	orch := h.build(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.finished = make(chan struct{})
	go func() {
		h.result = orch.Run(ctx)
		close(h.finished)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.finished:
		case <-time.After(2 * time.Second):
		}
	})
}

// waitPaused blocks until the orchestrator is suspended on the gate.
func (h *harness) waitPaused(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.orch.gate.Pending() && h.orch.State() == StateAwaitingOperator
	}, 5*time.Second, time.Millisecond, "orchestrator never paused")
}

// waitDone returns Run's result.
func (h *harness) waitDone(t *testing.T) error {
	t.Helper()
	select {
	case <-h.finished:
		return h.result
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}
