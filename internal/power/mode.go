package power

import (
	"strconv"
	"strings"
)

// Mode is a persistent, togglable operating state. Its integral value is the
// interface rank and is only ever compared for version gating.
type Mode int32

const (
	ModeDoubleTapToWake Mode = iota
	ModeLowPower
	ModeSustainedPerformance
	ModeFixedPerformance
	ModeVR
	ModeLaunch
	ModeExpensiveRendering
	ModeInteractive
	ModeDeviceIdle
	ModeDisplayInactive
	ModeAudioStreamingLowLatency
	ModeCameraStreamingSecure
	ModeCameraStreamingLow
	ModeCameraStreamingMid
	ModeCameraStreamingHigh
	ModeGame
	ModeGameLoading
	ModeDisplayChange
	ModeAutomotiveProjection
)

var modeNames = map[Mode]string{
	ModeDoubleTapToWake:          "DOUBLE_TAP_TO_WAKE",
	ModeLowPower:                 "LOW_POWER",
	ModeSustainedPerformance:     "SUSTAINED_PERFORMANCE",
	ModeFixedPerformance:         "FIXED_PERFORMANCE",
	ModeVR:                       "VR",
	ModeLaunch:                   "LAUNCH",
	ModeExpensiveRendering:       "EXPENSIVE_RENDERING",
	ModeInteractive:              "INTERACTIVE",
	ModeDeviceIdle:               "DEVICE_IDLE",
	ModeDisplayInactive:          "DISPLAY_INACTIVE",
	ModeAudioStreamingLowLatency: "AUDIO_STREAMING_LOW_LATENCY",
	ModeCameraStreamingSecure:    "CAMERA_STREAMING_SECURE",
	ModeCameraStreamingLow:       "CAMERA_STREAMING_LOW",
	ModeCameraStreamingMid:       "CAMERA_STREAMING_MID",
	ModeCameraStreamingHigh:      "CAMERA_STREAMING_HIGH",
	ModeGame:                     "GAME",
	ModeGameLoading:              "GAME_LOADING",
	ModeDisplayChange:            "DISPLAY_CHANGE",
	ModeAutomotiveProjection:     "AUTOMOTIVE_PROJECTION",
}

// alwaysAllowedModes are never suppressed by the global flags.
var alwaysAllowedModes = map[Mode]bool{
	ModeDoubleTapToWake: true,
	ModeDeviceIdle:      true,
	ModeDisplayInactive: true,
}

// String returns the display name, which doubles as the backend hint name.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}

	return strconv.Itoa(int(m))
}

// AlwaysAllowed reports whether m is exempt from flag suppression.
func (m Mode) AlwaysAllowed() bool {
	return alwaysAllowedModes[m]
}

// Modes returns every known mode in rank order.
func Modes() []Mode {
	modes := make([]Mode, 0, len(modeNames))
	for m := ModeDoubleTapToWake; m <= ModeAutomotiveProjection; m++ {
		modes = append(modes, m)
	}

	return modes
}

// ParseMode resolves a mode from its display name, case-insensitively.
func ParseMode(name string) (Mode, bool) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for m, n := range modeNames {
		if n == want {
			return m, true
		}
	}

	return 0, false
}

// isAlwaysAllowedHint reports whether a backend hint name belongs to an
// always-allowed mode.
func isAlwaysAllowedHint(hint string) bool {
	for m := range alwaysAllowedModes {
		if m.String() == hint {
			return true
		}
	}

	return false
}
