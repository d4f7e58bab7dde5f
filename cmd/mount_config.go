package cmd

import (
	"errors"
	"fmt"

	common "github.com/404wolf/gpusensorfs/common"
	"github.com/404wolf/gpusensorfs/hardware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// newViper returns a viper instance seeded with the default configuration and
// reading GPUSENSORFS_* environment variables
func newViper() *viper.Viper {
	defaults := common.DefaultConfig()

	v := viper.New()
	v.SetDefault("mountPoint", defaults.MountPoint)
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("simulatedFile", defaults.SimulatedFile)
	v.SetDefault("allowOther", defaults.AllowOther)
	v.SetDefault("autoUnmount", defaults.AutoUnmount)
	v.SetDefault("fuseDebug", defaults.GoFuseDebug)
	v.SetDefault("attrTimeout", defaults.AttrTimeout)
	v.SetDefault("entryTimeout", defaults.EntryTimeout)
	v.SetDefault("metricsAddr", defaults.MetricsAddr)
	v.SetDefault("uid", defaults.UID)
	v.SetDefault("gid", defaults.GID)

	v.SetEnvPrefix("GPUSENSORFS")
	v.AutomaticEnv()
	return v
}

// LoadConfig resolves the configuration from, in increasing precedence,
// defaults, the config file, the environment and the given flags. An explicit
// config file must exist; the default locations are optional.
func LoadConfig(file string, flags *pflag.FlagSet) (*common.SensorFSConfig, error) {
	v := newViper()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/gpusensorfs")
		v.AddConfigPath("/etc/gpusensorfs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if flags != nil {
		for key, flag := range flagKeys {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	config := &common.SensorFSConfig{
		MountPoint:    v.GetString("mountPoint"),
		Backend:       v.GetString("backend"),
		SimulatedFile: v.GetString("simulatedFile"),
		AllowOther:    v.GetBool("allowOther"),
		AutoUnmount:   v.GetBool("autoUnmount"),
		GoFuseDebug:   v.GetBool("fuseDebug"),
		AttrTimeout:   v.GetDuration("attrTimeout"),
		EntryTimeout:  v.GetDuration("entryTimeout"),
		MetricsAddr:   v.GetString("metricsAddr"),
		UID:           v.GetUint32("uid"),
		GID:           v.GetUint32("gid"),
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// flagKeys maps config keys to the flags that override them
var flagKeys = map[string]string{
	"backend":       "backend",
	"simulatedFile": "simulated-file",
	"allowOther":    "allow-other",
	"autoUnmount":   "auto-unmount",
	"fuseDebug":     "fuse-debug",
	"attrTimeout":   "attr-timeout",
	"entryTimeout":  "entry-timeout",
	"metricsAddr":   "metrics-addr",
	"uid":           "uid",
	"gid":           "gid",
}

func validateConfig(config *common.SensorFSConfig) error {
	switch config.Backend {
	case common.BackendNVML:
	case common.BackendSimulated:
		if config.SimulatedFile == "" {
			return errors.New("the simulated backend needs simulatedFile")
		}
	default:
		return fmt.Errorf("unknown backend %q, expected %s or %s",
			config.Backend, common.BackendNVML, common.BackendSimulated)
	}
	if config.AttrTimeout < 0 || config.EntryTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// openLayer initializes the configured hardware backend
func openLayer(config *common.SensorFSConfig) (hardware.Layer, error) {
	switch config.Backend {
	case common.BackendSimulated:
		return hardware.LoadSimulated(config.SimulatedFile)
	default:
		return hardware.NewNVML()
	}
}

// addHardwareFlags registers the flags every command touching hardware
// shares
func addHardwareFlags(flags *pflag.FlagSet) {
	flags.String("backend", common.BackendNVML, "hardware backend (nvml, simulated)")
	flags.String("simulated-file", "", "yaml description of fake devices for the simulated backend")
}
