// Package activity tracks user interaction windows reported by INTERACTION
// boosts.
package activity

import (
	"fmt"
	"io"
	"sync"
	"time"

	"codeberg.org/mutker/powerhintd/internal/logger"
)

// Detector records the most recent interaction window.
type Detector struct {
	mu          sync.RWMutex
	minDuration time.Duration
	maxDuration time.Duration
	lastStart   time.Time
	lastEnd     time.Time
	count       uint64
	now         func() time.Time
	log         logger.Logger
}

// NewDetector creates a detector clamping windows to [minDuration, maxDuration].
// A zero maxDuration leaves windows unbounded above.
func NewDetector(minDuration, maxDuration time.Duration, log logger.Logger) *Detector {
	return &Detector{
		minDuration: minDuration,
		maxDuration: maxDuration,
		now:         time.Now,
		log:         log.With("activity"),
	}
}

// OnUserInteraction opens an interaction window of d, clamped. A zero or
// negative d uses the minimum window.
func (d *Detector) OnUserInteraction(dur time.Duration) {
	dur = d.clamp(dur)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	end := now.Add(dur)
	if !d.lastEnd.After(now) {
		d.lastStart = now
	}
	if end.After(d.lastEnd) {
		d.lastEnd = end
	}
	d.count++

	d.log.Debug().Dur("duration", dur).Msg("User interaction")
}

func (d *Detector) clamp(dur time.Duration) time.Duration {
	if dur < d.minDuration {
		return d.minDuration
	}
	if d.maxDuration > 0 && dur > d.maxDuration {
		return d.maxDuration
	}

	return dur
}

// Interacting reports whether an interaction window is open.
func (d *Detector) Interacting() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastEnd.After(d.now())
}

// LastInteraction returns the start of the latest interaction window.
func (d *Detector) LastInteraction() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastStart
}

// IdleDuration is the time since the last window closed.
func (d *Detector) IdleDuration() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.lastEnd.IsZero() {
		return 0
	}
	idle := d.now().Sub(d.lastEnd)
	if idle < 0 {
		return 0
	}

	return idle
}

// Dump writes the interaction count and current window state to w.
func (d *Detector) Dump(w io.Writer) error {
	d.mu.RLock()
	count := d.count
	d.mu.RUnlock()

	last := "never"
	if t := d.LastInteraction(); !t.IsZero() {
		last = t.Format(time.RFC3339)
	}

	_, err := fmt.Fprintf(w, "Interactions: %d\nInteracting: %t\nLastInteraction: %s\nIdle: %s\n",
		count, d.Interacting(), last, d.IdleDuration().Round(time.Millisecond))
	return err
}
