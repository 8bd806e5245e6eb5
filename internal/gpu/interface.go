package gpu

import "github.com/NVIDIA/go-nvml/pkg/nvml"

// device is the subset of nvml.Device the hint nodes drive.
type device interface {
	GetName() (string, nvml.Return)

	GetPowerManagementLimitConstraints() (uint32, uint32, nvml.Return)
	GetPowerManagementDefaultLimit() (uint32, nvml.Return)
	GetPowerManagementLimit() (uint32, nvml.Return)
	SetPowerManagementLimit(limit uint32) nvml.Return

	GetNumFans() (int, nvml.Return)
	GetMinMaxFanSpeed() (int, int, nvml.Return)
	SetFanSpeed_v2(fan int, speed int) nvml.Return
	SetDefaultFanSpeed_v2(fan int) nvml.Return
}

// Domain types for type safety and validation
type (
	FanSpeed   int
	PowerLimit int

	FanSpeedLimits struct {
		Min, Max FanSpeed
	}

	PowerLimits struct {
		Min, Max, Default PowerLimit
	}
)
