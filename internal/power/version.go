package power

// modeCutoffs maps a negotiated interface version to the highest mode rank
// that version defines. Versions 2 and 4 added no modes.
var modeCutoffs = map[int]Mode{
	1: ModeCameraStreamingHigh,
	2: ModeCameraStreamingHigh,
	3: ModeGameLoading,
	4: ModeGameLoading,
	5: ModeAutomotiveProjection,
}

// boostCutoffs is the boost counterpart of modeCutoffs.
var boostCutoffs = map[int]Boost{
	1: BoostCameraShot,
	2: BoostCameraShot,
	3: BoostCameraShot,
	4: BoostCameraShot,
	5: BoostCameraShot,
}

// modeAvailable reports whether version defines mode. Versions missing from
// the table define nothing.
func modeAvailable(version int, mode Mode) bool {
	cutoff, ok := modeCutoffs[version]
	return ok && mode >= 0 && mode <= cutoff
}

func boostAvailable(version int, boost Boost) bool {
	cutoff, ok := boostCutoffs[version]
	return ok && boost >= 0 && boost <= cutoff
}
