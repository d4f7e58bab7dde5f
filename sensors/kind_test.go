package sensors_test

import (
	"testing"

	"github.com/404wolf/gpusensorfs/sensors"
	"github.com/stretchr/testify/assert"
)

func TestSensorNames(t *testing.T) {
	t.Run("Plain kinds use the kind name", func(t *testing.T) {
		assert.Equal(t, "temperature", sensors.Of(sensors.KindTemperature).Name())
		assert.Equal(t, "clock_memory", sensors.Of(sensors.KindClockMemory).Name())
		assert.Equal(t, "pstate", sensors.Of(sensors.KindPerformanceState).Name())
	})

	t.Run("Fans carry their ordinal", func(t *testing.T) {
		assert.Equal(t, "fan_speed_0", sensors.Fan(0).Name())
		assert.Equal(t, "fan_speed_12", sensors.Fan(12).Name())
	})

	t.Run("Every kind has a distinct name", func(t *testing.T) {
		seen := map[string]bool{}
		for _, kind := range sensors.Kinds {
			name := kind.String()
			assert.NotContains(t, seen, name)
			seen[name] = true
		}
	})
}

func TestParseName(t *testing.T) {
	t.Run("Names parse back to their sensor", func(t *testing.T) {
		for _, kind := range sensors.Kinds {
			sensor := sensors.Of(kind)
			if kind.Indexed() {
				sensor = sensors.Sensor{Kind: kind, Index: 3}
			}
			parsed, ok := sensors.ParseName(sensor.Name())
			assert.True(t, ok, "name %s should parse", sensor.Name())
			assert.Equal(t, sensor, parsed)
		}
	})

	t.Run("Malformed names are rejected", func(t *testing.T) {
		for _, name := range []string{"", "temp1_input", "fan_speed", "fan_speed_", "fan_speed_01", "fan_speed_-1", "Temperature"} {
			_, ok := sensors.ParseName(name)
			assert.False(t, ok, "name %q should not parse", name)
		}
	})
}
