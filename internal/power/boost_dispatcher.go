package power

import (
	"time"

	"codeberg.org/mutker/powerhintd/internal/logger"
	"codeberg.org/mutker/powerhintd/internal/metrics"
)

type boostDispatcher struct {
	backend  HintBackend
	activity ActivityDetector
	flags    *globalFlags
	record   func(*metrics.Event)
	log      logger.Logger
}

func (d *boostDispatcher) setBoost(boost Boost, durationMs int32) {
	name := boost.String()

	// Boosts have no allow-list.
	if d.flags.snapshot().Suppressing() {
		d.log.Debug().Str("boost", name).Int32("duration_ms", durationMs).Msg("Boost suppressed by global power state")
		d.record(boostEvent(name, durationMs, metrics.OutcomeSuppressed))
		return
	}

	if boost == BoostInteraction && d.activity != nil {
		d.activity.OnUserInteraction(time.Duration(durationMs) * time.Millisecond)
	}

	var err error
	switch {
	case durationMs > 0:
		err = d.backend.ActivateFor(name, time.Duration(durationMs)*time.Millisecond)
	case durationMs == 0:
		err = d.backend.Activate(name)
	default:
		err = d.backend.Deactivate(name)
	}
	if err != nil {
		d.log.Warn().Err(err).Str("boost", name).Int32("duration_ms", durationMs).Msg("Failed to apply boost")
	}

	d.record(boostEvent(name, durationMs, metrics.OutcomeApplied))
}

func boostEvent(name string, durationMs int32, outcome metrics.Outcome) *metrics.Event {
	return &metrics.Event{
		Kind:       metrics.KindBoost,
		Name:       name,
		Enabled:    durationMs >= 0,
		DurationMs: durationMs,
		Outcome:    outcome,
	}
}
