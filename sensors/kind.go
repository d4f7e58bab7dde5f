package sensors

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is a measurable quantity a device may expose
type Kind int

const (
	KindTemperature Kind = iota
	KindTemperatureSlowdown
	KindTemperatureShutdown
	KindFanSpeed
	KindPowerUsage
	KindPowerLimit
	KindEnergy
	KindClockGraphics
	KindClockSM
	KindClockMemory
	KindClockVideo
	KindMemoryTotal
	KindMemoryUsed
	KindMemoryFree
	KindUtilizationGPU
	KindUtilizationMemory
	KindPerformanceState
	KindName
	kindCount
)

// Kinds lists every kind in the order sensors are enumerated
var Kinds = func() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := KindTemperature; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}()

var kindNames = [kindCount]string{
	KindTemperature:         "temperature",
	KindTemperatureSlowdown: "temperature_slowdown",
	KindTemperatureShutdown: "temperature_shutdown",
	KindFanSpeed:            "fan_speed",
	KindPowerUsage:          "power_usage",
	KindPowerLimit:          "power_limit",
	KindEnergy:              "energy",
	KindClockGraphics:       "clock_graphics",
	KindClockSM:             "clock_sm",
	KindClockMemory:         "clock_memory",
	KindClockVideo:          "clock_video",
	KindMemoryTotal:         "memory_total",
	KindMemoryUsed:          "memory_used",
	KindMemoryFree:          "memory_free",
	KindUtilizationGPU:      "utilization_gpu",
	KindUtilizationMemory:   "utilization_memory",
	KindPerformanceState:    "pstate",
	KindName:                "name",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Indexed reports whether a device can expose several instances of the kind
func (k Kind) Indexed() bool {
	return k == KindFanSpeed
}

// Sensor is one sensor of a device. Index is the instance ordinal and is only
// meaningful for indexed kinds; it is always zero otherwise.
type Sensor struct {
	Kind  Kind
	Index int
}

// Of returns the sensor of a kind that is not indexed
func Of(kind Kind) Sensor {
	return Sensor{Kind: kind}
}

// Fan returns the fan speed sensor of the given fan
func Fan(index int) Sensor {
	return Sensor{Kind: KindFanSpeed, Index: index}
}

// Name is the file name of the sensor inside its device directory
func (s Sensor) Name() string {
	if s.Kind.Indexed() {
		return s.Kind.String() + "_" + strconv.Itoa(s.Index)
	}
	return s.Kind.String()
}

func (s Sensor) String() string {
	return s.Name()
}

// ParseName is the inverse of Sensor.Name
func ParseName(name string) (Sensor, bool) {
	for _, kind := range Kinds {
		base := kind.String()
		if !kind.Indexed() {
			if name == base {
				return Of(kind), true
			}
			continue
		}

		suffix, ok := strings.CutPrefix(name, base+"_")
		if !ok || suffix == "" {
			continue
		}
		index, err := strconv.Atoi(suffix)
		if err != nil || index < 0 || strconv.Itoa(index) != suffix {
			continue
		}
		return Sensor{Kind: kind, Index: index}, true
	}
	return Sensor{}, false
}
