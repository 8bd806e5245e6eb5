// Package hint implements the named-hint backend: hints request values on
// nodes, the highest-priority request per node wins, and timed activations
// expire on their own.
package hint

import (
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/logger"
)

type activation struct {
	gen   uint64
	timer *time.Timer
	until time.Time // zero without expiry
}

// Manager is the hint backend.
type Manager struct {
	mu       sync.Mutex
	nodes    map[string]*node
	hints    map[string]HintSpec
	profiles []ProfileSpec
	active   map[string]*activation
	gen      uint64
	running  bool
	log      logger.Logger
}

type managerOptions struct {
	factories map[string]WriterFactory
	log       logger.Logger
}

// Option configures a Manager.
type Option func(*managerOptions)

// WithWriterFactory registers the writer used for nodes of nodeType.
func WithWriterFactory(nodeType string, f WriterFactory) Option {
	return func(o *managerOptions) { o.factories[nodeType] = f }
}

// WithLogger overrides the process logger.
func WithLogger(l logger.Logger) Option {
	return func(o *managerOptions) { o.log = l }
}

// NewManager builds a Manager for cat. Call Start before use.
func NewManager(cat *Catalog, opts ...Option) (*Manager, error) {
	errFactory := errors.New()

	o := &managerOptions{
		factories: map[string]WriterFactory{NodeTypeFile: newFileWriter},
		log:       logger.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	m := &Manager{
		nodes:    make(map[string]*node, len(cat.Nodes)),
		hints:    make(map[string]HintSpec, len(cat.Hints)),
		profiles: cat.Profiles,
		active:   map[string]*activation{},
		log:      o.log.With("hint"),
	}

	for _, spec := range cat.Nodes {
		nodeType := spec.Type
		if nodeType == "" {
			nodeType = NodeTypeFile
		}
		factory, ok := o.factories[nodeType]
		if !ok {
			return nil, errFactory.WithData(ErrNodeType, fmt.Sprintf("node %q: %s", spec.Name, nodeType))
		}
		w, err := factory(spec)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrInitFailed, err)
		}
		m.nodes[spec.Name] = newNode(spec, w)
	}
	for _, h := range cat.Hints {
		m.hints[h.Name] = h
	}

	return m, nil
}

// Start writes defaults to nodes marked reset_on_init and begins accepting
// hints.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, name := range m.sortedNodeNames() {
		n := m.nodes[name]
		if !n.spec.ResetOnInit {
			continue
		}
		if err := n.reset(); err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", name, err))
		}
	}
	m.running = true

	m.log.Info().Int("nodes", len(m.nodes)).Int("hints", len(m.hints)).Msg("Hint manager started")

	if len(errs) > 0 {
		return errors.New().Wrap(ErrNodeWrite, stderrors.Join(errs...))
	}

	return nil
}

// Stop ends every hint and restores node defaults.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, name := range m.sortedActive() {
		if err := m.endLocked(name); err != nil {
			errs = append(errs, err)
		}
	}
	m.running = false

	if len(errs) > 0 {
		return errors.New().Wrap(ErrNodeWrite, stderrors.Join(errs...))
	}

	return nil
}

// Activate starts name with no expiry, cancelling any pending expiry.
func (m *Manager) Activate(name string) error {
	return m.activate(name, 0)
}

// ActivateFor starts name and ends it after d unless re-activated first.
func (m *Manager) ActivateFor(name string, d time.Duration) error {
	return m.activate(name, d)
}

func (m *Manager) activate(name string, d time.Duration) error {
	errFactory := errors.New()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return errFactory.WithData(ErrNotRunning, name)
	}
	spec, ok := m.hints[name]
	if !ok {
		return errFactory.WithData(ErrUnknownHint, name)
	}

	a, ok := m.active[name]
	if !ok {
		a = &activation{}
		m.active[name] = a
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	m.gen++
	a.gen = m.gen
	a.until = time.Time{}

	if d > 0 {
		gen := a.gen
		a.until = time.Now().Add(d)
		a.timer = time.AfterFunc(d, func() { m.expire(name, gen) })
	}

	var errs []error
	for _, act := range spec.Actions {
		n := m.nodes[act.Node]
		n.requests[name] = act.ValueIndex
		if err := n.apply(); err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", act.Node, err))
		}
	}

	m.log.Debug().Str("hint", name).Dur("duration", d).Msg("Hint activated")

	if len(errs) > 0 {
		return errFactory.Wrap(ErrNodeWrite, stderrors.Join(errs...))
	}

	return nil
}

// expire ends name if it has not been re-activated since gen was issued.
func (m *Manager) expire(name string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.active[name]
	if !ok || a.gen != gen {
		return
	}
	if err := m.endLocked(name); err != nil {
		m.log.Warn().Err(err).Str("hint", name).Msg("Failed to expire hint")
		return
	}
	m.log.Debug().Str("hint", name).Msg("Hint expired")
}

// Deactivate ends name. Ending an inactive hint is a no-op.
func (m *Manager) Deactivate(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.hints[name]; !ok {
		return errors.New().WithData(ErrUnknownHint, name)
	}

	return m.endLocked(name)
}

func (m *Manager) endLocked(name string) error {
	a, ok := m.active[name]
	if !ok {
		return nil
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	delete(m.active, name)

	var errs []error
	for _, act := range m.hints[name].Actions {
		n := m.nodes[act.Node]
		delete(n.requests, name)
		if err := n.apply(); err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", act.Node, err))
		}
	}

	m.log.Debug().Str("hint", name).Msg("Hint ended")

	if len(errs) > 0 {
		return errors.New().Wrap(ErrNodeWrite, stderrors.Join(errs...))
	}

	return nil
}

// ActiveHints returns the names of active hints, sorted.
func (m *Manager) ActiveHints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sortedActive()
}

func (m *Manager) IsHintSupported(name string) bool {
	_, ok := m.hints[name]
	return ok
}

func (m *Manager) IsProfileSupported(name string) bool {
	for _, p := range m.profiles {
		if p.Name == name {
			return true
		}
	}

	return false
}

// IsSessionSupported reports whether any session profile is configured.
func (m *Manager) IsSessionSupported() bool {
	return len(m.profiles) > 0
}

// ReportingRateLimit is the rate limit of the first session profile.
func (m *Manager) ReportingRateLimit() time.Duration {
	if len(m.profiles) == 0 {
		return 0
	}

	return time.Duration(m.profiles[0].ReportingRateLimitNs)
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.running
}

// NodeValue returns the value last written to node.
func (m *Manager) NodeValue(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[name]
	if !ok || n.current < 0 {
		return "", false
	}

	return n.spec.Values[n.current], true
}

// Dump writes node values and active hints to w.
func (m *Manager) Dump(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := fmt.Fprintf(w, "Nodes:\n"); err != nil {
		return err
	}
	for _, name := range m.sortedNodeNames() {
		n := m.nodes[name]
		if _, err := fmt.Fprintf(w, "  %s\t%s\t[%s]\n", name, n.value(), n.requesters()); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "Active hints:\n"); err != nil {
		return err
	}
	now := time.Now()
	for _, name := range m.sortedActive() {
		remaining := "-"
		if until := m.active[name].until; !until.IsZero() {
			remaining = until.Sub(now).Round(time.Millisecond).String()
		}
		if _, err := fmt.Fprintf(w, "  %s\t%s\n", name, remaining); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) sortedActive() []string {
	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (m *Manager) sortedNodeNames() []string {
	names := make([]string, 0, len(m.nodes))
	for name := range m.nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
