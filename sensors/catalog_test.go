package sensors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/404wolf/gpusensorfs/hardware"
	"github.com/404wolf/gpusensorfs/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestEnumerate(t *testing.T) {
	t.Run("Only supported kinds are listed, in order", func(t *testing.T) {
		layer := hardware.NewSimulated(
			hardware.SimulatedDevice{Temperature: ptr(uint32(45))},
			hardware.SimulatedDevice{Temperature: ptr(uint32(50)), Fans: []uint32{30}},
		)
		catalog := sensors.NewCatalog(layer)

		assert.Equal(t, []sensors.Sensor{sensors.Of(sensors.KindTemperature)}, catalog.Enumerate(0))
		assert.Equal(t, []sensors.Sensor{
			sensors.Of(sensors.KindTemperature),
			sensors.Fan(0),
		}, catalog.Enumerate(1))
	})

	t.Run("One fan sensor per fan", func(t *testing.T) {
		layer := hardware.NewSimulated(hardware.SimulatedDevice{Fans: []uint32{10, 20, 30}})
		catalog := sensors.NewCatalog(layer)

		assert.Equal(t, []sensors.Sensor{sensors.Fan(0), sensors.Fan(1), sensors.Fan(2)}, catalog.Enumerate(0))
	})

	t.Run("Memory and utilization expose all of their fields", func(t *testing.T) {
		layer := hardware.NewSimulated(hardware.SimulatedDevice{
			Memory:      &hardware.MemoryInfo{Total: 8, Used: 3, Free: 5},
			Utilization: &hardware.UtilizationInfo{GPU: 40, Memory: 10},
		})
		catalog := sensors.NewCatalog(layer)

		assert.Equal(t, []sensors.Sensor{
			sensors.Of(sensors.KindMemoryTotal),
			sensors.Of(sensors.KindMemoryUsed),
			sensors.Of(sensors.KindMemoryFree),
			sensors.Of(sensors.KindUtilizationGPU),
			sensors.Of(sensors.KindUtilizationMemory),
		}, catalog.Enumerate(0))
	})

	t.Run("Failing probes keep the sensor", func(t *testing.T) {
		layer := hardware.NewSimulated(hardware.SimulatedDevice{
			Failures: map[string]string{"powerUsage": "GPU is lost"},
		})
		catalog := sensors.NewCatalog(layer)

		assert.Equal(t, []sensors.Sensor{sensors.Of(sensors.KindPowerUsage)}, catalog.Enumerate(0))
	})

	t.Run("A device that cannot be queried has no sensors", func(t *testing.T) {
		layer := hardware.NewSimulated(hardware.SimulatedDevice{Temperature: ptr(uint32(45))})
		catalog := sensors.NewCatalog(layer)

		assert.Empty(t, catalog.Enumerate(7))
	})
}

func TestSample(t *testing.T) {
	layer := hardware.NewSimulated(hardware.SimulatedDevice{
		Name:             ptr("NVIDIA GeForce RTX 4090"),
		Temperature:      ptr(uint32(45)),
		Fans:             []uint32{0, 65},
		PowerUsage:       ptr(uint32(120500)),
		TotalEnergy:      ptr(uint64(7)),
		ClockGraphics:    ptr(uint32(1500)),
		Memory:           &hardware.MemoryInfo{Total: 25757220864, Used: 1048576, Free: 25756172288},
		PerformanceState: ptr(2),
		Failures:         map[string]string{"powerLimit": "GPU is lost"},
	})
	catalog := sensors.NewCatalog(layer)

	t.Run("Readings are scaled per kind", func(t *testing.T) {
		expected := map[sensors.Sensor]string{
			sensors.Of(sensors.KindTemperature):      "45000",
			sensors.Fan(1):                           "65",
			sensors.Of(sensors.KindPowerUsage):       "120500000",
			sensors.Of(sensors.KindEnergy):           "7000",
			sensors.Of(sensors.KindClockGraphics):    "1500000000",
			sensors.Of(sensors.KindMemoryTotal):      "25757220864",
			sensors.Of(sensors.KindPerformanceState): "P2",
			sensors.Of(sensors.KindName):             "NVIDIA GeForce RTX 4090",
		}
		for sensor, want := range expected {
			value, err := catalog.Sample(0, sensor)
			require.NoError(t, err, "sampling %s", sensor)
			assert.Equal(t, want, value, "sampling %s", sensor)
		}
	})

	t.Run("Missing readings are unsupported", func(t *testing.T) {
		_, err := catalog.Sample(0, sensors.Of(sensors.KindClockVideo))
		assert.ErrorIs(t, err, hardware.ErrUnsupported)

		_, err = catalog.Sample(0, sensors.Fan(5))
		assert.ErrorIs(t, err, hardware.ErrUnsupported)
	})

	t.Run("Failures are not unsupported", func(t *testing.T) {
		_, err := catalog.Sample(0, sensors.Of(sensors.KindPowerLimit))
		require.Error(t, err)
		assert.NotErrorIs(t, err, hardware.ErrUnsupported)
	})

	t.Run("Unknown devices fail", func(t *testing.T) {
		_, err := catalog.Sample(3, sensors.Of(sensors.KindTemperature))
		require.Error(t, err)
		assert.NotErrorIs(t, err, hardware.ErrUnsupported)
	})
}

func TestRender(t *testing.T) {
	t.Run("Values end with a newline", func(t *testing.T) {
		content, transient := sensors.Render("45000", nil)
		assert.Equal(t, "45000\n", string(content))
		assert.False(t, transient)
	})

	t.Run("Unsupported renders as N/A", func(t *testing.T) {
		content, transient := sensors.Render("", fmt.Errorf("GetFanSpeed: %w", hardware.ErrUnsupported))
		assert.Equal(t, "N/A\n", string(content))
		assert.False(t, transient)
	})

	t.Run("Other errors render as N/A and are transient", func(t *testing.T) {
		content, transient := sensors.Render("", errors.New("GPU is lost"))
		assert.Equal(t, "N/A\n", string(content))
		assert.True(t, transient)
	})
}
