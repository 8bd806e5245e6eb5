package power

import "codeberg.org/mutker/powerhintd/internal/logger"

// capabilityResolver answers support queries. Its answer depends only on
// the negotiated version, the device hook and the backend's catalog.
type capabilityResolver struct {
	version int
	backend HintBackend
	hook    DeviceHook
	log     logger.Logger
}

func (r *capabilityResolver) isModeSupported(mode Mode) bool {
	if !modeAvailable(r.version, mode) {
		return false
	}

	if r.hook != nil {
		if supported, ok := r.hook.ModeSupport(mode); ok {
			return supported
		}
	}

	// LOW_POWER is a local flag with no hint of its own.
	supported := mode == ModeLowPower || r.backendKnows(mode.String())
	r.log.Info().Str("mode", mode.String()).Bool("supported", supported).Msg("Mode support queried")

	return supported
}

func (r *capabilityResolver) isBoostSupported(boost Boost) bool {
	if !boostAvailable(r.version, boost) {
		return false
	}

	supported := r.backendKnows(boost.String())
	r.log.Info().Str("boost", boost.String()).Bool("supported", supported).Msg("Boost support queried")

	return supported
}

func (r *capabilityResolver) backendKnows(name string) bool {
	return r.backend.IsHintSupported(name) || r.backend.IsProfileSupported(name)
}
