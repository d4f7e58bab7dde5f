package hardware

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// NVML is a Layer backed by the NVIDIA Management Library
type NVML struct{}

var _ Layer = (*NVML)(nil)

// NewNVML initializes the NVIDIA Management Library. The returned layer must
// be closed to shut the library down again.
func NewNVML() (*NVML, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, fmt.Errorf("initializing NVML: %s", nvml.ErrorString(ret))
	}
	return &NVML{}, nil
}

// nvmlError converts an NVML return code into an error, mapping
// ERROR_NOT_SUPPORTED onto ErrUnsupported
func nvmlError(call string, ret nvml.Return) error {
	switch ret {
	case nvml.SUCCESS:
		return nil
	case nvml.ERROR_NOT_SUPPORTED:
		return fmt.Errorf("%s: %w", call, ErrUnsupported)
	default:
		return fmt.Errorf("%s: %s", call, nvml.ErrorString(ret))
	}
}

func (n *NVML) DeviceCount() (uint32, error) {
	count, ret := nvml.DeviceGetCount()
	if err := nvmlError("DeviceGetCount", ret); err != nil {
		return 0, err
	}
	return uint32(count), nil
}

func (n *NVML) Device(index uint32) (Device, error) {
	device, ret := nvml.DeviceGetHandleByIndex(int(index))
	if err := nvmlError("DeviceGetHandleByIndex", ret); err != nil {
		return nil, err
	}
	return &nvmlDevice{device: device}, nil
}

func (n *NVML) Close() error {
	return nvmlError("Shutdown", nvml.Shutdown())
}

type nvmlDevice struct {
	device nvml.Device
}

func (d *nvmlDevice) Name() (string, error) {
	name, ret := d.device.GetName()
	return name, nvmlError("GetName", ret)
}

func (d *nvmlDevice) Temperature() (uint32, error) {
	temp, ret := d.device.GetTemperature(nvml.TEMPERATURE_GPU)
	return temp, nvmlError("GetTemperature", ret)
}

func (d *nvmlDevice) TemperatureThreshold(threshold Threshold) (uint32, error) {
	var t nvml.TemperatureThresholds
	switch threshold {
	case ThresholdSlowdown:
		t = nvml.TEMPERATURE_THRESHOLD_SLOWDOWN
	case ThresholdShutdown:
		t = nvml.TEMPERATURE_THRESHOLD_SHUTDOWN
	default:
		return 0, fmt.Errorf("threshold %d: %w", threshold, ErrUnsupported)
	}
	temp, ret := d.device.GetTemperatureThreshold(t)
	return temp, nvmlError("GetTemperatureThreshold", ret)
}

func (d *nvmlDevice) FanCount() (int, error) {
	fans, ret := d.device.GetNumFans()
	return fans, nvmlError("GetNumFans", ret)
}

func (d *nvmlDevice) FanSpeed(fan int) (uint32, error) {
	speed, ret := d.device.GetFanSpeed_v2(fan)
	return speed, nvmlError("GetFanSpeed_v2", ret)
}

func (d *nvmlDevice) PowerUsage() (uint32, error) {
	power, ret := d.device.GetPowerUsage()
	return power, nvmlError("GetPowerUsage", ret)
}

func (d *nvmlDevice) PowerLimit() (uint32, error) {
	limit, ret := d.device.GetEnforcedPowerLimit()
	return limit, nvmlError("GetEnforcedPowerLimit", ret)
}

func (d *nvmlDevice) TotalEnergy() (uint64, error) {
	energy, ret := d.device.GetTotalEnergyConsumption()
	return energy, nvmlError("GetTotalEnergyConsumption", ret)
}

func (d *nvmlDevice) Clock(domain ClockDomain) (uint32, error) {
	var clock nvml.ClockType
	switch domain {
	case ClockGraphics:
		clock = nvml.CLOCK_GRAPHICS
	case ClockSM:
		clock = nvml.CLOCK_SM
	case ClockMemory:
		clock = nvml.CLOCK_MEM
	case ClockVideo:
		clock = nvml.CLOCK_VIDEO
	default:
		return 0, fmt.Errorf("clock domain %d: %w", domain, ErrUnsupported)
	}
	mhz, ret := d.device.GetClockInfo(clock)
	return mhz, nvmlError("GetClockInfo", ret)
}

func (d *nvmlDevice) Memory() (MemoryInfo, error) {
	mem, ret := d.device.GetMemoryInfo()
	if err := nvmlError("GetMemoryInfo", ret); err != nil {
		return MemoryInfo{}, err
	}
	return MemoryInfo{Total: mem.Total, Used: mem.Used, Free: mem.Free}, nil
}

func (d *nvmlDevice) Utilization() (UtilizationInfo, error) {
	util, ret := d.device.GetUtilizationRates()
	if err := nvmlError("GetUtilizationRates", ret); err != nil {
		return UtilizationInfo{}, err
	}
	return UtilizationInfo{GPU: util.Gpu, Memory: util.Memory}, nil
}

func (d *nvmlDevice) PerformanceState() (int, error) {
	state, ret := d.device.GetPerformanceState()
	if err := nvmlError("GetPerformanceState", ret); err != nil {
		return 0, err
	}
	if state == nvml.PSTATE_UNKNOWN {
		return 0, fmt.Errorf("GetPerformanceState: %w", ErrUnsupported)
	}
	return int(state), nil
}
