package power

import (
	"codeberg.org/mutker/powerhintd/internal/logger"
	"codeberg.org/mutker/powerhintd/internal/metrics"
)

// exclusiveModes are the suppression triggers themselves. Enabling one ends
// every non-exempt hint and sets its flag; they are never suppressed.
var exclusiveModes = map[Mode]func(*globalFlags, bool){
	ModeSustainedPerformance: (*globalFlags).setSustainedPerformance,
	ModeLowPower:             (*globalFlags).setBatterySaver,
}

type modeDispatcher struct {
	backend  HintBackend
	hook     DeviceHook
	sessions SessionRegistry
	flags    *globalFlags
	record   func(*metrics.Event)
	log      logger.Logger
}

func (d *modeDispatcher) setMode(mode Mode, enabled bool) {
	name := mode.String()

	// Sessions observe every transition, including overridden and
	// suppressed ones.
	if d.sessions != nil && d.backend.IsSessionSupported() {
		d.sessions.OnModeChanged(name, enabled)
	}

	if d.hook != nil && d.hook.HandleMode(mode, enabled) {
		d.log.Debug().Str("mode", name).Bool("enabled", enabled).Msg("Mode handled by device hook")
		d.record(modeEvent(name, enabled, metrics.OutcomeOverridden))
		return
	}

	outcome := d.apply(mode, enabled)
	d.record(modeEvent(name, enabled, outcome))
}

// apply runs the flag-dependent part of a mode request under the flags lock
// and reports what happened. Recording happens after the lock is released.
func (d *modeDispatcher) apply(mode Mode, enabled bool) metrics.Outcome {
	name := mode.String()

	d.flags.mu.Lock()
	defer d.flags.mu.Unlock()

	if setFlag, ok := exclusiveModes[mode]; ok {
		if enabled {
			d.endAllHints()
			d.activate(name)
		} else {
			d.deactivate(name)
		}
		setFlag(d.flags, enabled)
		return metrics.OutcomeApplied
	}

	if d.flags.suppressingLocked() && !mode.AlwaysAllowed() {
		d.log.Debug().Str("mode", name).Bool("enabled", enabled).Msg("Mode suppressed by global power state")
		return metrics.OutcomeSuppressed
	}

	if enabled {
		d.activate(name)
	} else {
		d.deactivate(name)
	}

	return metrics.OutcomeApplied
}

// endAllHints deactivates every active hint that does not belong to an
// always-allowed mode.
func (d *modeDispatcher) endAllHints() {
	for _, hint := range d.backend.ActiveHints() {
		if isAlwaysAllowedHint(hint) {
			continue
		}
		d.deactivate(hint)
	}
}

func (d *modeDispatcher) activate(name string) {
	if err := d.backend.Activate(name); err != nil {
		d.log.Warn().Err(err).Str("hint", name).Msg("Failed to activate hint")
	}
}

func (d *modeDispatcher) deactivate(name string) {
	if err := d.backend.Deactivate(name); err != nil {
		d.log.Warn().Err(err).Str("hint", name).Msg("Failed to deactivate hint")
	}
}

func modeEvent(name string, enabled bool, outcome metrics.Outcome) *metrics.Event {
	return &metrics.Event{
		Kind:    metrics.KindMode,
		Name:    name,
		Enabled: enabled,
		Outcome: outcome,
	}
}
