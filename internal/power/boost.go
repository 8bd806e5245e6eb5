package power

import (
	"strconv"
	"strings"
)

// Boost is a transient, duration-scoped performance request.
type Boost int32

const (
	BoostInteraction Boost = iota
	BoostDisplayUpdateImminent
	BoostMLAcc
	BoostAudioLaunch
	BoostCameraLaunch
	BoostCameraShot
)

var boostNames = map[Boost]string{
	BoostInteraction:           "INTERACTION",
	BoostDisplayUpdateImminent: "DISPLAY_UPDATE_IMMINENT",
	BoostMLAcc:                 "ML_ACC",
	BoostAudioLaunch:           "AUDIO_LAUNCH",
	BoostCameraLaunch:          "CAMERA_LAUNCH",
	BoostCameraShot:            "CAMERA_SHOT",
}

func (b Boost) String() string {
	if name, ok := boostNames[b]; ok {
		return name
	}

	return strconv.Itoa(int(b))
}

// Boosts returns every known boost in rank order.
func Boosts() []Boost {
	boosts := make([]Boost, 0, len(boostNames))
	for b := BoostInteraction; b <= BoostCameraShot; b++ {
		boosts = append(boosts, b)
	}

	return boosts
}

// ParseBoost resolves a boost from its display name, case-insensitively.
func ParseBoost(name string) (Boost, bool) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for b, n := range boostNames {
		if n == want {
			return b, true
		}
	}

	return 0, false
}
