package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	common "github.com/404wolf/gpusensorfs/common"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
mountPoint: /mnt/gpus
backend: simulated
simulatedFile: devices.yaml
allowOther: false
attrTimeout: 2s
uid: 42
gid: 43
`)

	config, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/gpus", config.MountPoint)
	assert.Equal(t, common.BackendSimulated, config.Backend)
	assert.Equal(t, "devices.yaml", config.SimulatedFile)
	assert.False(t, config.AllowOther)
	assert.Equal(t, 2*time.Second, config.AttrTimeout)
	assert.Equal(t, time.Second, config.EntryTimeout)
	assert.Equal(t, uint32(42), config.UID)
	assert.Equal(t, uint32(43), config.GID)
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfig(t, "backend: simulated\nsimulatedFile: from-file.yaml\n")

	t.Run("Environment beats the file", func(t *testing.T) {
		t.Setenv("GPUSENSORFS_SIMULATEDFILE", "from-env.yaml")
		config, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "from-env.yaml", config.SimulatedFile)
	})

	t.Run("Flags beat the environment", func(t *testing.T) {
		t.Setenv("GPUSENSORFS_SIMULATEDFILE", "from-env.yaml")
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		addHardwareFlags(flags)
		require.NoError(t, flags.Parse([]string{"--simulated-file", "from-flag.yaml"}))

		config, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "from-flag.yaml", config.SimulatedFile)
		assert.Equal(t, common.BackendSimulated, config.Backend, "unset flags keep the file value")
	})
}

func TestLoadConfigErrors(t *testing.T) {
	cases := map[string]string{
		"Unknown backend":           "backend: cuda\n",
		"Simulated without devices": "backend: simulated\n",
		"Negative timeout":          "attrTimeout: -1s\n",
		"Negative entry timeout":    "entryTimeout: -5s\n",
		"Malformed yaml":            "backend: [\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, contents), nil)
			assert.Error(t, err)
		})
	}

	t.Run("Missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
		assert.Error(t, err)
	})
}

func TestDefaultConfigText(t *testing.T) {
	contents, err := DefaultConfigText()
	require.NoError(t, err)
	assert.Contains(t, string(contents), "mountPoint")
	assert.Contains(t, string(contents), "(nvml|simulated)")

	config, err := LoadConfig(writeConfig(t, string(contents)), nil)
	require.NoError(t, err)
	assert.Equal(t, common.DefaultConfig(), *config)
}

func TestOpenLayer(t *testing.T) {
	devices := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(devices, []byte("devices:\n  - name: fake\n"), 0o644))

	layer, err := openLayer(&common.SensorFSConfig{Backend: common.BackendSimulated, SimulatedFile: devices})
	require.NoError(t, err)
	defer layer.Close()

	count, err := layer.DeviceCount()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)
}
