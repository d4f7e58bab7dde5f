package sensorfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/404wolf/gpusensorfs/hardware"
)

func TestTree(t *testing.T) {
	f := newTestFS(t, scenarioDevices()...)

	t.Run("Names only", func(t *testing.T) {
		tree, err := f.Tree(false)
		require.NoError(t, err)
		assert.Equal(t, []TreeDevice{
			{Device: "0", Files: []TreeFile{{Name: "temperature"}}},
			{Device: "1", Files: []TreeFile{{Name: "temperature"}, {Name: "fan_speed_0"}}},
		}, tree)
	})

	t.Run("With values", func(t *testing.T) {
		tree, err := f.Tree(true)
		require.NoError(t, err)
		require.Len(t, tree, 2)
		assert.Equal(t, []TreeFile{
			{Name: "temperature", Value: "50000"},
			{Name: "fan_speed_0", Value: "30"},
		}, tree[1].Files)
		assert.Zero(t, f.Sessions())
	})

	t.Run("Unavailable values", func(t *testing.T) {
		f.layer.SetDevices(hardware.SimulatedDevice{}, scenarioDevices()[1])
		tree, err := f.Tree(true)
		require.NoError(t, err)
		assert.Equal(t, "N/A", tree[0].Files[0].Value)
	})

	t.Run("No devices", func(t *testing.T) {
		f.layer.SetDevices()
		tree, err := f.Tree(true)
		require.NoError(t, err)
		assert.Empty(t, tree)
	})
}
