// Package gpu exposes NVIDIA power-limit and fan controls as hint nodes.
package gpu

import (
	"fmt"
	"sync"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const milliWattsToWatts = 1000

// GPU controls one NVML device.
type GPU struct {
	dev       device
	name      string
	power     PowerLimits
	fanCount  int
	fanLimits FanSpeedLimits
	autoFan   bool
	shutdown  func() nvml.Return
	mu        sync.Mutex
	log       logger.Logger
}

// Open initializes NVML and binds the device at index.
func Open(index int, log logger.Logger) (*GPU, error) {
	errFactory := errors.New()

	if ret := nvml.Init(); !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrInitFailed, newNVMLError(ret))
	}

	dev, ret := nvml.DeviceGetHandleByIndex(index)
	if !IsNVMLSuccess(ret) {
		nvml.Shutdown()
		return nil, errFactory.Wrap(ErrDeviceNotFound, newNVMLError(ret))
	}

	g, err := newGPU(dev, log)
	if err != nil {
		nvml.Shutdown()
		return nil, err
	}
	g.shutdown = nvml.Shutdown

	return g, nil
}

func newGPU(dev device, log logger.Logger) (*GPU, error) {
	errFactory := errors.New()
	g := &GPU{
		dev:     dev,
		autoFan: true,
		log:     log.With("gpu"),
	}

	if name, ret := dev.GetName(); IsNVMLSuccess(ret) {
		g.name = name
	}

	minLimit, maxLimit, ret := dev.GetPowerManagementLimitConstraints()
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrPowerLimitsFailed, newNVMLError(ret))
	}
	defaultLimit, ret := dev.GetPowerManagementDefaultLimit()
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrPowerLimitsFailed, newNVMLError(ret))
	}
	g.power = PowerLimits{
		Min:     PowerLimit(minLimit / milliWattsToWatts),
		Max:     PowerLimit(maxLimit / milliWattsToWatts),
		Default: PowerLimit(defaultLimit / milliWattsToWatts),
	}

	count, ret := dev.GetNumFans()
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrFanCountFailed, newNVMLError(ret))
	}
	g.fanCount = count

	if count > 0 {
		minSpeed, maxSpeed, ret := dev.GetMinMaxFanSpeed()
		if !IsNVMLSuccess(ret) {
			return nil, errFactory.Wrap(ErrGetFanLimitsFailed, newNVMLError(ret))
		}
		g.fanLimits = FanSpeedLimits{Min: FanSpeed(minSpeed), Max: FanSpeed(maxSpeed)}
	}

	g.log.Info().
		Str("name", g.name).
		Int("powerMin", int(g.power.Min)).
		Int("powerMax", int(g.power.Max)).
		Int("fans", g.fanCount).
		Msg("GPU detected")

	return g, nil
}

// Close restores the default power limit and automatic fan control, then
// releases NVML.
func (g *GPU) Close() error {
	errFactory := errors.New()

	var firstErr error
	if err := g.SetPowerLimit(g.power.Default); err != nil {
		firstErr = err
	}
	if err := g.EnableAutoFan(); err != nil && firstErr == nil {
		firstErr = err
	}

	if g.shutdown != nil {
		if ret := g.shutdown(); !IsNVMLSuccess(ret) && firstErr == nil {
			firstErr = errFactory.Wrap(ErrShutdownFailed, newNVMLError(ret))
		}
	}

	return firstErr
}

func (g *GPU) PowerLimits() PowerLimits {
	return g.power
}

func (g *GPU) FanSpeedLimits() FanSpeedLimits {
	return g.fanLimits
}

// SetPowerLimit sets the board power limit in watts.
func (g *GPU) SetPowerLimit(limit PowerLimit) error {
	errFactory := errors.New()
	g.mu.Lock()
	defer g.mu.Unlock()

	if limit < g.power.Min || limit > g.power.Max {
		return errFactory.WithData(errors.ErrInvalidArgument, fmt.Sprintf("power limit %dW out of range", limit))
	}

	if ret := g.dev.SetPowerManagementLimit(uint32(limit) * milliWattsToWatts); !IsNVMLSuccess(ret) {
		return errFactory.Wrap(ErrSetPowerLimit, newNVMLError(ret))
	}

	g.log.Debug().Int("powerLimit", int(limit)).Msg("Power limit set")

	return nil
}

// CurrentPowerLimit reads the active power limit in watts.
func (g *GPU) CurrentPowerLimit() (PowerLimit, error) {
	limit, ret := g.dev.GetPowerManagementLimit()
	if !IsNVMLSuccess(ret) {
		return 0, errors.New().Wrap(ErrPowerLimitsFailed, newNVMLError(ret))
	}

	return PowerLimit(limit / milliWattsToWatts), nil
}

// SetFanSpeed pins every fan to speed percent.
func (g *GPU) SetFanSpeed(speed FanSpeed) error {
	errFactory := errors.New()
	g.mu.Lock()
	defer g.mu.Unlock()

	if speed < g.fanLimits.Min || speed > g.fanLimits.Max {
		return errFactory.WithData(errors.ErrInvalidArgument, fmt.Sprintf("fan speed %d%% out of range", speed))
	}

	for i := 0; i < g.fanCount; i++ {
		if ret := g.dev.SetFanSpeed_v2(i, int(speed)); !IsNVMLSuccess(ret) {
			return errFactory.Wrap(ErrSetFanSpeed, newNVMLError(ret))
		}
	}
	g.autoFan = false

	g.log.Debug().Int("fanSpeed", int(speed)).Msg("Fan speed set")

	return nil
}

// EnableAutoFan hands every fan back to the driver.
func (g *GPU) EnableAutoFan() error {
	errFactory := errors.New()
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := 0; i < g.fanCount; i++ {
		if ret := g.dev.SetDefaultFanSpeed_v2(i); !IsNVMLSuccess(ret) {
			return errFactory.Wrap(ErrEnableAutoFan, newNVMLError(ret))
		}
	}
	g.autoFan = true

	return nil
}

func (g *GPU) IsAutoFan() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.autoFan
}
