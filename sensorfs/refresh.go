package sensorfs

import (
	"time"

	common "github.com/404wolf/gpusensorfs/common"
	"github.com/404wolf/gpusensorfs/sensors"
)

// DeviceCounter reports how many devices the hardware currently has
type DeviceCounter interface {
	DeviceCount() (uint32, error)
}

// Policy rebuilds the namespace when the number of devices changes. Device
// indices shift when a device goes away, so the namespace is always rebuilt
// as a whole.
type Policy struct {
	counter DeviceCounter
	builder *Builder
	store   *Store
	now     func() time.Time

	known uint32
	built bool
}

var _ common.Refresher = (*Policy)(nil)

func NewPolicy(counter DeviceCounter, builder *Builder, store *Store, now func() time.Time) *Policy {
	return &Policy{counter: counter, builder: builder, store: store, now: now}
}

// Refresh rebuilds the namespace if the device count differs from the one it
// was last built for, or if it was never built. A failing count is treated
// as zero devices.
func (p *Policy) Refresh() bool {
	count, err := p.counter.DeviceCount()
	if err != nil {
		common.Logger.Warnw("Device count could not be queried, assuming no devices", "error", err)
		count = 0
	}

	if p.built && count == p.known {
		return false
	}

	common.Logger.Infow("Number of known devices changed, rebuilding namespace",
		"from", p.known, "to", count)
	p.store.Rebuild(p.builder.Build(count), p.now())
	p.known = count
	p.built = true

	rebuildsTotal.Inc()
	devicesGauge.Set(float64(count))
	return true
}

// SampleFailed records a failed sample that was not ErrUnsupported. Such a
// failure may mean a device went away, so the device count is checked again
// right away.
func (p *Policy) SampleFailed(device uint32, sensor sensors.Sensor, err error) bool {
	common.Logger.Warnw("Error while retrieving sensor value",
		"device", device, "sensor", sensor, "error", err)
	sampleErrorsTotal.WithLabelValues(sampleTransient).Inc()
	return p.Refresh()
}

// Devices is the device count the namespace was last built for
func (p *Policy) Devices() uint32 {
	return p.known
}
