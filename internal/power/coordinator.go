// Package power coordinates mode and boost requests against a hint backend,
// enforcing the global power-state exclusivity rules and version-gated
// capability negotiation.
package power

import (
	"context"
	"fmt"
	"io"
	"time"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/logger"
	"codeberg.org/mutker/powerhintd/internal/metrics"
)

// Persisted property keys and the values that seed startup state.
const (
	PropState     = "vendor.powerhal.state"
	PropAudio     = "vendor.powerhal.audio"
	PropRendering = "vendor.powerhal.rendering"
)

// DefaultInterfaceVersion is the interface version implemented when none is
// configured.
const DefaultInterfaceVersion = 5

// Coordinator is the request-facing façade. It owns the negotiated version
// and the global flags.
type Coordinator struct {
	backend  HintBackend
	sessions SessionRegistry
	activity ActivityDetector
	recorder Recorder
	log      logger.Logger

	configuredVersion int
	version           int
	flags             globalFlags

	modes  *modeDispatcher
	boosts *boostDispatcher
	caps   *capabilityResolver
}

type options struct {
	hook       DeviceHook
	sessions   SessionRegistry
	activity   ActivityDetector
	properties Properties
	recorder   Recorder
	log        logger.Logger
	version    int
}

// Option configures a Coordinator.
type Option func(*options)

// WithDeviceHook installs a per-platform override hook.
func WithDeviceHook(h DeviceHook) Option {
	return func(o *options) { o.hook = h }
}

// WithSessionRegistry installs the session registry.
func WithSessionRegistry(r SessionRegistry) Option {
	return func(o *options) { o.sessions = r }
}

// WithActivityDetector installs the interaction detector.
func WithActivityDetector(a ActivityDetector) Option {
	return func(o *options) { o.activity = a }
}

// WithProperties sets the persisted properties used to seed startup state.
func WithProperties(p Properties) Option {
	return func(o *options) { o.properties = p }
}

// WithRecorder records every dispatch outcome.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithLogger overrides the process logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithInterfaceVersion sets the version the service reports implementing.
func WithInterfaceVersion(v int) Option {
	return func(o *options) { o.version = v }
}

// New builds a Coordinator over backend and applies persisted startup state.
func New(backend HintBackend, opts ...Option) *Coordinator {
	o := &options{
		log:     logger.Default(),
		version: DefaultInterfaceVersion,
	}
	for _, opt := range opts {
		opt(o)
	}
	log := o.log.With("power")

	c := &Coordinator{
		backend:           backend,
		sessions:          o.sessions,
		activity:          o.activity,
		recorder:          o.recorder,
		log:               log,
		configuredVersion: o.version,
	}

	c.modes = &modeDispatcher{
		backend:  backend,
		hook:     o.hook,
		sessions: o.sessions,
		flags:    &c.flags,
		record:   c.record,
		log:      log,
	}
	c.boosts = &boostDispatcher{
		backend:  backend,
		activity: o.activity,
		flags:    &c.flags,
		record:   c.record,
		log:      log,
	}

	if o.properties != nil {
		c.applyProperties(o.properties)
	} else {
		log.Info().Msg("Initialize power coordinator")
	}

	c.version = c.InterfaceVersion()
	log.Info().Int("interface_version", c.version).Msg("Interface version negotiated")

	c.caps = &capabilityResolver{
		version: c.version,
		backend: backend,
		hook:    o.hook,
		log:     log,
	}

	return c
}

func (c *Coordinator) applyProperties(props Properties) {
	if props.Get(PropState, "") == ModeSustainedPerformance.String() {
		c.log.Info().Msg("Initialize with SUSTAINED_PERFORMANCE on")
		c.modes.activate(ModeSustainedPerformance.String())
		c.flags.mu.Lock()
		c.flags.setSustainedPerformance(true)
		c.flags.mu.Unlock()
	} else {
		c.log.Info().Msg("Initialize power coordinator")
	}

	if props.Get(PropAudio, "") == ModeAudioStreamingLowLatency.String() {
		c.log.Info().Msg("Initialize with AUDIO_STREAMING_LOW_LATENCY on")
		c.modes.activate(ModeAudioStreamingLowLatency.String())
	}

	if props.Get(PropRendering, "") == ModeExpensiveRendering.String() {
		c.log.Info().Msg("Initialize with EXPENSIVE_RENDERING on")
		c.modes.activate(ModeExpensiveRendering.String())
	}
}

// InterfaceVersion returns the interface version this service implements.
func (c *Coordinator) InterfaceVersion() int {
	return c.configuredVersion
}

// NegotiatedVersion returns the version captured at construction.
func (c *Coordinator) NegotiatedVersion() int {
	return c.version
}

// Flags returns the current global flags.
func (c *Coordinator) Flags() FlagSnapshot {
	return c.flags.snapshot()
}

// SetMode enables or disables mode. Suppressed and overridden requests still
// succeed.
func (c *Coordinator) SetMode(mode Mode, enabled bool) error {
	c.log.Debug().Str("mode", mode.String()).Bool("enabled", enabled).Msg("Set mode")
	c.modes.setMode(mode, enabled)

	return nil
}

// SetBoost applies boost for durationMs: positive values expire, zero holds
// until ended, negative values end it.
func (c *Coordinator) SetBoost(boost Boost, durationMs int32) error {
	c.log.Debug().Str("boost", boost.String()).Int32("duration_ms", durationMs).Msg("Set boost")
	c.boosts.setBoost(boost, durationMs)

	return nil
}

// IsModeSupported reports whether mode can be requested.
func (c *Coordinator) IsModeSupported(mode Mode) bool {
	return c.caps.isModeSupported(mode)
}

// IsBoostSupported reports whether boost can be requested.
func (c *Coordinator) IsBoostSupported(boost Boost) bool {
	return c.caps.isBoostSupported(boost)
}

// HintSessionPreferredRate returns the preferred session reporting interval
// in nanoseconds.
func (c *Coordinator) HintSessionPreferredRate() (int64, error) {
	var rate time.Duration
	if c.backend.IsSessionSupported() {
		rate = c.backend.ReportingRateLimit()
	}
	if rate <= 0 {
		return 0, errors.New().New(errors.ErrUnsupportedOperation)
	}

	return rate.Nanoseconds(), nil
}

// CreateHintSession opens a performance session for cfg.ThreadIDs.
func (c *Coordinator) CreateHintSession(cfg SessionConfig) (SessionInfo, error) {
	errFactory := errors.New()

	if !c.backend.IsSessionSupported() || c.sessions == nil {
		return SessionInfo{}, errFactory.WithData(errors.ErrUnsupportedOperation, "hint sessions")
	}
	if len(cfg.ThreadIDs) == 0 {
		c.log.Error().Int32("tgid", cfg.TGID).Msg("Session requested with no threads")
		return SessionInfo{}, errFactory.WithData(errors.ErrIllegalArgument, "thread ids must not be empty")
	}
	if cfg.Tag == "" {
		cfg.Tag = SessionTagOther
	}

	info, err := c.sessions.Open(cfg)
	if err != nil {
		return SessionInfo{}, err
	}

	c.log.Debug().Int64("session_id", info.ID).Int32("tgid", cfg.TGID).Int("threads", len(cfg.ThreadIDs)).Msg("Hint session created")

	return info, nil
}

// CloseHintSession closes the session identified by handle.
func (c *Coordinator) CloseHintSession(handle string) error {
	if c.sessions == nil {
		return errors.New().WithData(errors.ErrUnsupportedOperation, "hint sessions")
	}

	return c.sessions.Close(handle)
}

// Dump writes backend, session and flag state to w, followed by the activity
// detector's state when it can dump itself. Write failures are logged and
// never returned.
func (c *Coordinator) Dump(w io.Writer) error {
	flags := c.flags.snapshot()
	state := fmt.Sprintf(
		"HintManager Running: %t\nSustainedPerformanceMode: %t\nBatterySaverMode: %t\n",
		c.backend.IsRunning(), flags.SustainedPerformance, flags.BatterySaver)

	if err := c.backend.Dump(w); err != nil {
		c.log.Error().Err(err).Msg("Failed to dump hint backend")
	}
	if c.sessions != nil {
		if err := c.sessions.Dump(w); err != nil {
			c.log.Error().Err(err).Msg("Failed to dump session registry")
		}
	}
	if _, err := io.WriteString(w, state); err != nil {
		c.log.Error().Err(err).Msg("Failed to dump state")
	}
	if d, ok := c.activity.(dumper); ok {
		if err := d.Dump(w); err != nil {
			c.log.Error().Err(err).Msg("Failed to dump activity")
		}
	}

	return nil
}

func (c *Coordinator) record(ev *metrics.Event) {
	if c.recorder == nil {
		return
	}
	ev.Timestamp = time.Now()
	if err := c.recorder.Record(context.Background(), ev); err != nil {
		c.log.Debug().Err(err).Str("name", ev.Name).Msg("Failed to record dispatch event")
	}
}
