package power

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeCutoffTable(t *testing.T) {
	tests := []struct {
		version int
		mode    Mode
		want    bool
	}{
		{0, ModeDoubleTapToWake, false},
		{1, ModeCameraStreamingHigh, true},
		{1, ModeGame, false},
		{2, ModeCameraStreamingHigh, true},
		{2, ModeGameLoading, false},
		{3, ModeGameLoading, true},
		{3, ModeDisplayChange, false},
		{4, ModeGameLoading, true},
		{4, ModeAutomotiveProjection, false},
		{5, ModeAutomotiveProjection, true},
		{5, Mode(19), false},
		{6, ModeLaunch, false},
		{-1, ModeLaunch, false},
		{5, Mode(-1), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, modeAvailable(tt.version, tt.mode), "version %d mode %v", tt.version, tt.mode)
	}
}

func TestBoostCutoffTable(t *testing.T) {
	for v := 1; v <= 5; v++ {
		assert.True(t, boostAvailable(v, BoostCameraShot), "version %d", v)
		assert.False(t, boostAvailable(v, Boost(6)), "version %d", v)
	}
	assert.False(t, boostAvailable(0, BoostInteraction))
}

func TestModeSupportVersionGateSkipsBackend(t *testing.T) {
	backend := newFakeBackend("GAME_LOADING", "DISPLAY_CHANGE")
	c := newTestCoordinator(t, backend, WithInterfaceVersion(3))
	backend.forbid = t

	assert.False(t, c.IsModeSupported(ModeDisplayChange))
	assert.False(t, c.IsModeSupported(ModeAutomotiveProjection))
}

func TestBoostUnsupportedAtVersionZero(t *testing.T) {
	backend := newFakeBackend("CAMERA_SHOT")
	c := newTestCoordinator(t, backend, WithInterfaceVersion(0))
	backend.forbid = t

	assert.False(t, c.IsBoostSupported(BoostCameraShot))
}

func TestModeSupportBackendQuery(t *testing.T) {
	backend := newFakeBackend("LAUNCH", "INTERACTIVE")
	backend.profiles["GAME"] = true
	c := newTestCoordinator(t, backend)

	assert.True(t, c.IsModeSupported(ModeLaunch), "named hint")
	assert.True(t, c.IsModeSupported(ModeGame), "session profile")
	assert.True(t, c.IsModeSupported(ModeLowPower), "local flag")
	assert.False(t, c.IsModeSupported(ModeVR))
}

func TestBoostSupportBackendQuery(t *testing.T) {
	backend := newFakeBackend("INTERACTION")
	backend.profiles["ML_ACC"] = true
	c := newTestCoordinator(t, backend)

	assert.True(t, c.IsBoostSupported(BoostInteraction))
	assert.True(t, c.IsBoostSupported(BoostMLAcc))
	assert.False(t, c.IsBoostSupported(BoostCameraShot))
}

func TestDeviceHookSupportIsAuthoritative(t *testing.T) {
	backend := newFakeBackend("LAUNCH")
	hook := &fakeHook{support: map[Mode]bool{ModeLaunch: false, ModeVR: true}}
	c := newTestCoordinator(t, backend, WithDeviceHook(hook))

	assert.False(t, c.IsModeSupported(ModeLaunch))
	assert.True(t, c.IsModeSupported(ModeVR))
}

func TestDeviceHookStillVersionGated(t *testing.T) {
	hook := &fakeHook{support: map[Mode]bool{ModeAutomotiveProjection: true}}
	c := newTestCoordinator(t, newFakeBackend(), WithDeviceHook(hook), WithInterfaceVersion(4))

	assert.False(t, c.IsModeSupported(ModeAutomotiveProjection))
}

func TestLowPowerSupportStillVersionGated(t *testing.T) {
	c := newTestCoordinator(t, newFakeBackend(), WithInterfaceVersion(0))
	assert.False(t, c.IsModeSupported(ModeLowPower))
}

func TestSupportDeterministic(t *testing.T) {
	backend := newFakeBackend("LAUNCH")
	c := newTestCoordinator(t, backend)

	first := c.IsModeSupported(ModeLaunch)
	_ = c.SetMode(ModeSustainedPerformance, true)
	assert.Equal(t, first, c.IsModeSupported(ModeLaunch), "flags do not influence support")
}
