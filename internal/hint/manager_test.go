package hint

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
[[nodes]]
name = "cpu_min_freq"
type = "memory"
values = ["2000000", "1500000", "300000"]
default_index = 2
reset_on_init = true

[[nodes]]
name = "gpu_boost"
type = "memory"
values = ["1", "0"]
default_index = 1

[[hints]]
name = "LAUNCH"
actions = [
  { node = "cpu_min_freq", value_index = 0 },
  { node = "gpu_boost", value_index = 0 },
]

[[hints]]
name = "INTERACTION"
actions = [{ node = "cpu_min_freq", value_index = 1 }]

[[hints]]
name = "DISPLAY_INACTIVE"

[[profiles]]
name = "SF"
reporting_rate_limit_ns = 16666666
`

type memoryWriter struct {
	mu     sync.Mutex
	writes []string
	err    error
}

func (w *memoryWriter) Write(value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.writes = append(w.writes, value)

	return nil
}

func (w *memoryWriter) last() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.writes) == 0 {
		return ""
	}

	return w.writes[len(w.writes)-1]
}

func newTestManager(t *testing.T) (*Manager, map[string]*memoryWriter) {
	t.Helper()

	cat, err := ParseCatalog(testCatalog)
	require.NoError(t, err)

	writers := map[string]*memoryWriter{}
	factory := func(spec NodeSpec) (Writer, error) {
		w := &memoryWriter{}
		writers[spec.Name] = w
		return w, nil
	}

	m, err := NewManager(cat, WithWriterFactory("memory", factory), WithLogger(logger.Nop()))
	require.NoError(t, err)
	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Stop() })

	return m, writers
}

func TestManagerStartResetsNodes(t *testing.T) {
	m, writers := newTestManager(t)

	assert.True(t, m.IsRunning())
	assert.Equal(t, []string{"300000"}, writers["cpu_min_freq"].writes)
	assert.Empty(t, writers["gpu_boost"].writes)
}

func TestManagerPriority(t *testing.T) {
	m, writers := newTestManager(t)

	require.NoError(t, m.Activate("INTERACTION"))
	assert.Equal(t, "1500000", writers["cpu_min_freq"].last())

	require.NoError(t, m.Activate("LAUNCH"))
	assert.Equal(t, "2000000", writers["cpu_min_freq"].last())
	assert.Equal(t, "1", writers["gpu_boost"].last())

	require.NoError(t, m.Deactivate("LAUNCH"))
	assert.Equal(t, "1500000", writers["cpu_min_freq"].last())
	assert.Equal(t, "0", writers["gpu_boost"].last())

	require.NoError(t, m.Deactivate("INTERACTION"))
	assert.Equal(t, "300000", writers["cpu_min_freq"].last())
	assert.Empty(t, m.ActiveHints())

	value, ok := m.NodeValue("gpu_boost")
	assert.True(t, ok)
	assert.Equal(t, "0", value)
	_, ok = m.NodeValue("missing")
	assert.False(t, ok)
}

func TestManagerSkipsRedundantWrites(t *testing.T) {
	m, writers := newTestManager(t)

	require.NoError(t, m.Activate("LAUNCH"))
	require.NoError(t, m.Activate("LAUNCH"))
	require.NoError(t, m.Activate("INTERACTION"))

	assert.Equal(t, []string{"300000", "2000000"}, writers["cpu_min_freq"].writes)
}

func TestManagerActivateFor(t *testing.T) {
	m, writers := newTestManager(t)

	require.NoError(t, m.ActivateFor("INTERACTION", 20*time.Millisecond))
	assert.Equal(t, []string{"INTERACTION"}, m.ActiveHints())

	assert.Eventually(t, func() bool {
		return len(m.ActiveHints()) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "300000", writers["cpu_min_freq"].last())
}

func TestManagerActivateCancelsExpiry(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.ActivateFor("LAUNCH", 20*time.Millisecond))
	require.NoError(t, m.Activate("LAUNCH"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"LAUNCH"}, m.ActiveHints())
}

func TestManagerRenewExtendsExpiry(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.ActivateFor("LAUNCH", 30*time.Millisecond))
	require.NoError(t, m.ActivateFor("LAUNCH", time.Second))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"LAUNCH"}, m.ActiveHints())
}

func TestManagerUnknownHint(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.Activate("NOPE")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrUnknownHint))

	err = m.Deactivate("NOPE")
	assert.True(t, errors.HasCode(err, ErrUnknownHint))
}

func TestManagerDeactivateInactive(t *testing.T) {
	m, _ := newTestManager(t)

	assert.NoError(t, m.Deactivate("LAUNCH"))
}

func TestManagerHintWithoutActions(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.Activate("DISPLAY_INACTIVE"))
	assert.Equal(t, []string{"DISPLAY_INACTIVE"}, m.ActiveHints())
}

func TestManagerWriteFailure(t *testing.T) {
	m, writers := newTestManager(t)
	writers["gpu_boost"].err = assert.AnError

	err := m.Activate("LAUNCH")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrNodeWrite))
	assert.Equal(t, "2000000", writers["cpu_min_freq"].last())
	assert.Equal(t, []string{"LAUNCH"}, m.ActiveHints())
}

func TestManagerNotRunning(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Stop())

	assert.False(t, m.IsRunning())
	assert.True(t, errors.HasCode(m.Activate("LAUNCH"), ErrNotRunning))
}

func TestManagerStopEndsHints(t *testing.T) {
	m, writers := newTestManager(t)

	require.NoError(t, m.ActivateFor("LAUNCH", time.Hour))
	require.NoError(t, m.Stop())

	assert.Empty(t, m.ActiveHints())
	assert.Equal(t, "300000", writers["cpu_min_freq"].last())
}

func TestManagerCapabilities(t *testing.T) {
	m, _ := newTestManager(t)

	assert.True(t, m.IsHintSupported("LAUNCH"))
	assert.False(t, m.IsHintSupported("VR"))
	assert.True(t, m.IsProfileSupported("SF"))
	assert.False(t, m.IsProfileSupported("LAUNCH"))
	assert.True(t, m.IsSessionSupported())
	assert.Equal(t, 16666666*time.Nanosecond, m.ReportingRateLimit())
}

func TestManagerUnknownNodeType(t *testing.T) {
	cat, err := ParseCatalog(testCatalog)
	require.NoError(t, err)

	_, err = NewManager(cat, WithLogger(logger.Nop()))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrNodeType))
}

func TestManagerDump(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Activate("LAUNCH"))

	var buf bytes.Buffer
	require.NoError(t, m.Dump(&buf))

	out := buf.String()
	assert.Contains(t, out, "cpu_min_freq\t2000000\t[LAUNCH]")
	assert.Contains(t, out, "gpu_boost\t1\t[LAUNCH]")
	assert.Contains(t, out, "  LAUNCH\t-\n")
}
