package gpu

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/powerhintd/internal/errors"
)

// Node types handled by this package.
const (
	NodeTypePower = "gpu_power"
	NodeTypeFan   = "gpu_fan"
)

// PowerNode writes power-limit values: "min", "max", "default" or watts.
type PowerNode struct {
	gpu *GPU
}

// FanNode writes fan values: "auto" or a speed percent.
type FanNode struct {
	gpu *GPU
}

func (g *GPU) PowerNode() *PowerNode {
	return &PowerNode{gpu: g}
}

func (g *GPU) FanNode() *FanNode {
	return &FanNode{gpu: g}
}

func (n *PowerNode) Write(value string) error {
	limit, err := ParsePowerValue(value, n.gpu.PowerLimits())
	if err != nil {
		return err
	}

	return n.gpu.SetPowerLimit(limit)
}

func (n *FanNode) Write(value string) error {
	speed, auto, err := ParseFanValue(value)
	if err != nil {
		return err
	}
	if auto {
		return n.gpu.EnableAutoFan()
	}

	return n.gpu.SetFanSpeed(speed)
}

// ParsePowerValue resolves a power node value against limits.
func ParsePowerValue(value string, limits PowerLimits) (PowerLimit, error) {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "min":
		return limits.Min, nil
	case "max":
		return limits.Max, nil
	case "default":
		return limits.Default, nil
	default:
		watts, err := strconv.Atoi(strings.TrimSuffix(v, "w"))
		if err != nil {
			return 0, errors.New().WithData(ErrInvalidNodeValue, fmt.Sprintf("power value %q", value))
		}
		return PowerLimit(watts), nil
	}
}

// ParseFanValue parses a fan node value; auto is true for "auto".
func ParseFanValue(value string) (speed FanSpeed, auto bool, err error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "auto" {
		return 0, true, nil
	}

	pct, convErr := strconv.Atoi(strings.TrimSuffix(v, "%"))
	if convErr != nil {
		return 0, false, errors.New().WithData(ErrInvalidNodeValue, fmt.Sprintf("fan value %q", value))
	}

	return FanSpeed(pct), false, nil
}
