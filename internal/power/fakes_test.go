package power

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/powerhintd/internal/metrics"
)

type call struct {
	op       string
	name     string
	duration time.Duration
}

// fakeBackend records every call and keeps an in-memory active set.
type fakeBackend struct {
	mu       sync.Mutex
	calls    []call
	active   map[string]bool
	hints    map[string]bool
	profiles map[string]bool
	sessions bool
	rate     time.Duration
	running  bool
	failWith error
	dumpErr  error

	// forbid makes every capability query fail the test.
	forbid *testing.T
}

func newFakeBackend(hints ...string) *fakeBackend {
	b := &fakeBackend{
		active:   map[string]bool{},
		hints:    map[string]bool{},
		profiles: map[string]bool{},
		running:  true,
	}
	for _, h := range hints {
		b.hints[h] = true
	}

	return b
}

func (b *fakeBackend) Activate(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call{op: "activate", name: name})
	b.active[name] = true

	return b.failWith
}

func (b *fakeBackend) ActivateFor(name string, d time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call{op: "activate", name: name, duration: d})
	b.active[name] = true

	return b.failWith
}

func (b *fakeBackend) Deactivate(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call{op: "deactivate", name: name})
	delete(b.active, name)

	return b.failWith
}

func (b *fakeBackend) ActiveHints() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.active))
	for n := range b.active {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

func (b *fakeBackend) IsHintSupported(name string) bool {
	if b.forbid != nil {
		b.forbid.Errorf("IsHintSupported(%q) must not be called", name)
	}
	return b.hints[name]
}

func (b *fakeBackend) IsProfileSupported(name string) bool {
	if b.forbid != nil {
		b.forbid.Errorf("IsProfileSupported(%q) must not be called", name)
	}
	return b.profiles[name]
}

func (b *fakeBackend) IsSessionSupported() bool          { return b.sessions }
func (b *fakeBackend) ReportingRateLimit() time.Duration { return b.rate }
func (b *fakeBackend) IsRunning() bool                   { return b.running }

func (b *fakeBackend) Dump(w io.Writer) error {
	if b.dumpErr != nil {
		return b.dumpErr
	}
	_, err := fmt.Fprintf(w, "active: %v\n", b.ActiveHints())
	return err
}

func (b *fakeBackend) takeCalls() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	calls := b.calls
	b.calls = nil

	return calls
}

type fakeHook struct {
	handled   map[Mode]bool
	support   map[Mode]bool
	handleLog []Mode
}

func (h *fakeHook) HandleMode(mode Mode, _ bool) bool {
	h.handleLog = append(h.handleLog, mode)
	return h.handled[mode]
}

func (h *fakeHook) ModeSupport(mode Mode) (bool, bool) {
	s, ok := h.support[mode]
	return s, ok
}

type modeChange struct {
	mode    string
	enabled bool
}

type fakeRegistry struct {
	changes []modeChange
	opened  []SessionConfig
	closed  []string
	dumpErr error
}

func (r *fakeRegistry) OnModeChanged(mode string, enabled bool) {
	r.changes = append(r.changes, modeChange{mode, enabled})
}

func (r *fakeRegistry) Open(cfg SessionConfig) (SessionInfo, error) {
	r.opened = append(r.opened, cfg)
	return SessionInfo{ID: int64(len(r.opened)), Handle: fmt.Sprintf("h%d", len(r.opened))}, nil
}

func (r *fakeRegistry) Close(handle string) error {
	r.closed = append(r.closed, handle)
	return nil
}

func (r *fakeRegistry) Dump(w io.Writer) error {
	if r.dumpErr != nil {
		return r.dumpErr
	}
	_, err := io.WriteString(w, "sessions: 0\n")
	return err
}

type fakeActivity struct {
	durations []time.Duration
}

func (a *fakeActivity) OnUserInteraction(d time.Duration) {
	a.durations = append(a.durations, d)
}

// dumpingActivity is an activity detector that can also dump itself.
type dumpingActivity struct {
	fakeActivity
}

func (a *dumpingActivity) Dump(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Interactions: %d\n", len(a.durations))
	return err
}

type fakeRecorder struct {
	events []*metrics.Event
}

func (r *fakeRecorder) Record(_ context.Context, ev *metrics.Event) error {
	r.events = append(r.events, ev)
	return nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, fmt.Errorf("broken pipe") }
