package sensors

import (
	"errors"
	"fmt"
	"strconv"

	common "github.com/404wolf/gpusensorfs/common"
	"github.com/404wolf/gpusensorfs/hardware"
)

// Unavailable is the content of a sensor file whose value could not be read
const Unavailable = "N/A"

const (
	milli = 1000
	mega  = 1000 * 1000
)

// Catalog knows which sensors a device has and how to read them
type Catalog struct {
	layer hardware.Layer
}

// NewCatalog returns a catalog of the devices of the given layer
func NewCatalog(layer hardware.Layer) *Catalog {
	return &Catalog{layer: layer}
}

// Enumerate lists the sensors the device supports, in Kinds order with one
// fan speed sensor per fan. Every kind is probed once; only kinds reporting
// hardware.ErrUnsupported are left out. A device that cannot be queried has no
// sensors.
func (c *Catalog) Enumerate(device uint32) []Sensor {
	dev, err := c.layer.Device(device)
	if err != nil {
		common.Logger.Warnw("Device could not be queried, exposing no sensors",
			"device", device, "error", err)
		return nil
	}

	sensors := []Sensor{}
	for _, kind := range Kinds {
		if kind.Indexed() {
			sensors = append(sensors, c.enumerateFans(device, dev)...)
			continue
		}

		sensor := Of(kind)
		_, err := read(dev, sensor)
		if errors.Is(err, hardware.ErrUnsupported) {
			continue
		}
		if err != nil {
			common.Logger.Debugw("Sensor probe failed, keeping sensor",
				"device", device, "sensor", sensor, "error", err)
		}
		sensors = append(sensors, sensor)
	}
	return sensors
}

func (c *Catalog) enumerateFans(device uint32, dev hardware.Device) []Sensor {
	count, err := dev.FanCount()
	if err != nil {
		if !errors.Is(err, hardware.ErrUnsupported) {
			common.Logger.Warnw("Fan count could not be queried",
				"device", device, "error", err)
		}
		return nil
	}

	fans := make([]Sensor, 0, count)
	for i := 0; i < count; i++ {
		fans = append(fans, Fan(i))
	}
	return fans
}

// Sample reads the current value of a sensor in its canonical text form
func (c *Catalog) Sample(device uint32, sensor Sensor) (string, error) {
	dev, err := c.layer.Device(device)
	if err != nil {
		return "", err
	}
	return read(dev, sensor)
}

// read samples a sensor and scales the raw reading. Temperatures are in
// millidegrees Celsius, power in microwatts, energy in microjoules, clocks in
// Hz, memory in bytes and utilization in percent.
func read(dev hardware.Device, sensor Sensor) (string, error) {
	switch sensor.Kind {
	case KindTemperature:
		temp, err := dev.Temperature()
		return scaled(uint64(temp), milli, err)
	case KindTemperatureSlowdown:
		temp, err := dev.TemperatureThreshold(hardware.ThresholdSlowdown)
		return scaled(uint64(temp), milli, err)
	case KindTemperatureShutdown:
		temp, err := dev.TemperatureThreshold(hardware.ThresholdShutdown)
		return scaled(uint64(temp), milli, err)
	case KindFanSpeed:
		speed, err := dev.FanSpeed(sensor.Index)
		return scaled(uint64(speed), 1, err)
	case KindPowerUsage:
		power, err := dev.PowerUsage()
		return scaled(uint64(power), milli, err)
	case KindPowerLimit:
		power, err := dev.PowerLimit()
		return scaled(uint64(power), milli, err)
	case KindEnergy:
		energy, err := dev.TotalEnergy()
		return scaled(energy, milli, err)
	case KindClockGraphics:
		clock, err := dev.Clock(hardware.ClockGraphics)
		return scaled(uint64(clock), mega, err)
	case KindClockSM:
		clock, err := dev.Clock(hardware.ClockSM)
		return scaled(uint64(clock), mega, err)
	case KindClockMemory:
		clock, err := dev.Clock(hardware.ClockMemory)
		return scaled(uint64(clock), mega, err)
	case KindClockVideo:
		clock, err := dev.Clock(hardware.ClockVideo)
		return scaled(uint64(clock), mega, err)
	case KindMemoryTotal:
		mem, err := dev.Memory()
		return scaled(mem.Total, 1, err)
	case KindMemoryUsed:
		mem, err := dev.Memory()
		return scaled(mem.Used, 1, err)
	case KindMemoryFree:
		mem, err := dev.Memory()
		return scaled(mem.Free, 1, err)
	case KindUtilizationGPU:
		util, err := dev.Utilization()
		return scaled(uint64(util.GPU), 1, err)
	case KindUtilizationMemory:
		util, err := dev.Utilization()
		return scaled(uint64(util.Memory), 1, err)
	case KindPerformanceState:
		state, err := dev.PerformanceState()
		if err != nil {
			return "", err
		}
		return "P" + strconv.Itoa(state), nil
	case KindName:
		return dev.Name()
	}
	return "", fmt.Errorf("sensor %s: %w", sensor, hardware.ErrUnsupported)
}

func scaled(raw uint64, factor uint64, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(raw*factor, 10), nil
}

// Render turns a sample into file content. Any error renders as N/A; transient
// reports whether the error was something other than hardware.ErrUnsupported.
func Render(value string, err error) (content []byte, transient bool) {
	if err != nil {
		return []byte(Unavailable + "\n"), !errors.Is(err, hardware.ErrUnsupported)
	}
	return []byte(value + "\n"), false
}
