package common

import (
	"os"
	"time"
)

const (
	BackendNVML      = "nvml"
	BackendSimulated = "simulated"

	DefaultMountPoint = "/var/lib/gpusensorfs"
)

type SensorFSConfig struct {
	// Directory the filesystem is mounted on
	MountPoint string `yaml:"mountPoint" lc:"created when it is the default and missing"`

	// Hardware backend, nvml or simulated
	Backend string `yaml:"backend" lc:"(nvml|simulated)"`

	// Yaml description of fake devices for the simulated backend
	SimulatedFile string `yaml:"simulatedFile" lc:"only used by the simulated backend"`

	// Let users other than the mounting one read the filesystem
	AllowOther bool `yaml:"allowOther" lc:"requires user_allow_other in /etc/fuse.conf when not root"`

	// Unmount when the process dies, including on SIGKILL
	AutoUnmount bool `yaml:"autoUnmount" lc:"handled by fusermount, which must support auto_unmount"`

	// Whether to enable go fuse's debug mode
	GoFuseDebug bool `yaml:"fuseDebug"`

	// How long the kernel may cache attributes and names
	AttrTimeout  time.Duration `yaml:"attrTimeout"`
	EntryTimeout time.Duration `yaml:"entryTimeout"`

	// Address to serve prometheus metrics on, empty to disable
	MetricsAddr string `yaml:"metricsAddr" lc:"e.g. :9400, empty disables metrics"`

	// Owner reported for every file
	UID uint32 `yaml:"uid"`
	GID uint32 `yaml:"gid"`
}

// DefaultConfig is the configuration used when nothing overrides it
func DefaultConfig() SensorFSConfig {
	return SensorFSConfig{
		MountPoint:   DefaultMountPoint,
		Backend:      BackendNVML,
		AllowOther:   true,
		AutoUnmount:  true,
		AttrTimeout:  time.Second,
		EntryTimeout: time.Second,
		UID:          uint32(os.Getuid()),
		GID:          uint32(os.Getgid()),
	}
}
