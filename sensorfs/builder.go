package sensorfs

import (
	mapset "github.com/deckarep/golang-set/v2"

	common "github.com/404wolf/gpusensorfs/common"
	"github.com/404wolf/gpusensorfs/sensors"
)

// DeviceSensors is one device directory of a snapshot
type DeviceSensors struct {
	Index   uint32
	Sensors []sensors.Sensor
}

// Snapshot is the complete set of devices and sensors a namespace is built
// from
type Snapshot struct {
	Devices []DeviceSensors
}

// Enumerator lists the sensors of a device
type Enumerator interface {
	Enumerate(device uint32) []sensors.Sensor
}

// Builder walks all devices and collects their sensors into a snapshot
type Builder struct {
	catalog Enumerator
}

func NewBuilder(catalog Enumerator) *Builder {
	return &Builder{catalog: catalog}
}

// Build enumerates devices 0 to count-1. Sensors whose name a device already
// exposes, or whose name does not identify the sensor again, are dropped, so
// every snapshot has unique and parsable names per device.
func (b *Builder) Build(count uint32) Snapshot {
	snapshot := Snapshot{Devices: make([]DeviceSensors, 0, count)}
	for device := uint32(0); device < count; device++ {
		seen := mapset.NewThreadUnsafeSet[string]()
		var unique []sensors.Sensor
		for _, sensor := range b.catalog.Enumerate(device) {
			name := sensor.Name()
			if parsed, ok := sensors.ParseName(name); !ok || parsed != sensor {
				common.Logger.Warnw("Dropping sensor with an invalid name", "device", device, "sensor", name)
				continue
			}
			if !seen.Add(name) {
				common.Logger.Warnw("Dropping duplicate sensor", "device", device, "sensor", sensor)
				continue
			}
			unique = append(unique, sensor)
		}
		snapshot.Devices = append(snapshot.Devices, DeviceSensors{Index: device, Sensors: unique})
	}
	return snapshot
}
