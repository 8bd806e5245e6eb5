// Package override implements per-device mode overrides read from
// configuration.
package override

import (
	"codeberg.org/mutker/powerhintd/internal/config"
	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/logger"
	"codeberg.org/mutker/powerhintd/internal/power"
)

// Table is a DeviceHook driven by static mode lists.
type Table struct {
	handled map[power.Mode]bool
	support map[power.Mode]bool
	log     logger.Logger
}

// New builds a Table from cfg. Unknown mode names are rejected.
func New(cfg config.DeviceConfig, log logger.Logger) (*Table, error) {
	t := &Table{
		handled: map[power.Mode]bool{},
		support: map[power.Mode]bool{},
		log:     log.With("override"),
	}

	if err := t.fill(cfg.HandledModes, func(m power.Mode) { t.handled[m] = true }); err != nil {
		return nil, err
	}
	if err := t.fill(cfg.SupportedModes, func(m power.Mode) { t.support[m] = true }); err != nil {
		return nil, err
	}
	if err := t.fill(cfg.UnsupportedModes, func(m power.Mode) { t.support[m] = false }); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Table) fill(names []string, set func(power.Mode)) error {
	for _, name := range names {
		m, ok := power.ParseMode(name)
		if !ok {
			return errors.New().WithData(errors.ErrInvalidConfig, "unknown mode in device overrides: "+name)
		}
		set(m)
	}

	return nil
}

// HandleMode claims the request when mode is listed as handled.
func (t *Table) HandleMode(mode power.Mode, enabled bool) bool {
	if !t.handled[mode] {
		return false
	}
	t.log.Debug().Str("mode", mode.String()).Bool("enabled", enabled).Msg("Mode handled by device override")

	return true
}

// ModeSupport answers only for modes listed as supported or unsupported.
func (t *Table) ModeSupport(mode power.Mode) (supported, ok bool) {
	supported, ok = t.support[mode]
	return supported, ok
}

// Nop is a DeviceHook that never intervenes.
type Nop struct{}

func (Nop) HandleMode(power.Mode, bool) bool { return false }

func (Nop) ModeSupport(power.Mode) (supported, ok bool) { return false, false }
