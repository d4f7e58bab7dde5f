package hardware

import (
	"errors"
)

// ErrUnsupported is returned by a Device when the requested reading does not
// apply to that device. It is the only error that is not a sign of trouble.
var ErrUnsupported = errors.New("not supported by this device")

// Threshold selects one of the temperature thresholds a device reports
type Threshold int

const (
	ThresholdSlowdown Threshold = iota
	ThresholdShutdown
)

// ClockDomain selects which clock a device reports
type ClockDomain int

const (
	ClockGraphics ClockDomain = iota
	ClockSM
	ClockMemory
	ClockVideo
)

// MemoryInfo is the device frame buffer usage in bytes
type MemoryInfo struct {
	Total uint64 `yaml:"total"`
	Used  uint64 `yaml:"used"`
	Free  uint64 `yaml:"free"`
}

// UtilizationInfo is the device utilization over the last sample period, in
// percent
type UtilizationInfo struct {
	GPU    uint32 `yaml:"gpu"`
	Memory uint32 `yaml:"memory"`
}

// Layer is the hardware query library. Device indices are only stable while
// DeviceCount stays the same.
type Layer interface {
	DeviceCount() (uint32, error)
	Device(index uint32) (Device, error)
	Close() error
}

// Device exposes the raw readings of one physical device. Every call blocks
// until the underlying library answers.
type Device interface {
	// Name is the product name of the device
	Name() (string, error)

	// Temperature of the GPU die in degrees Celsius
	Temperature() (uint32, error)

	// TemperatureThreshold in degrees Celsius
	TemperatureThreshold(threshold Threshold) (uint32, error)

	// FanCount is the number of fans the device can report on
	FanCount() (int, error)

	// FanSpeed of the given fan, in percent of its maximum speed
	FanSpeed(fan int) (uint32, error)

	// PowerUsage in milliwatts
	PowerUsage() (uint32, error)

	// PowerLimit is the enforced power limit in milliwatts
	PowerLimit() (uint32, error)

	// TotalEnergy consumed since the driver was loaded, in millijoules
	TotalEnergy() (uint64, error)

	// Clock of the given domain in MHz
	Clock(domain ClockDomain) (uint32, error)

	Memory() (MemoryInfo, error)
	Utilization() (UtilizationInfo, error)

	// PerformanceState is the current P-state, 0 being the highest
	PerformanceState() (int, error)
}
