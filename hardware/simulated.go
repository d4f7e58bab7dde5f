package hardware

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
)

// SimulatedDevice describes one fake device. A nil reading is reported as
// ErrUnsupported. Failures maps a reading name (the yaml key) to an error
// message that is returned instead of the reading.
type SimulatedDevice struct {
	Name                *string           `yaml:"name,omitempty"`
	Temperature         *uint32           `yaml:"temperature,omitempty"`
	TemperatureSlowdown *uint32           `yaml:"temperatureSlowdown,omitempty"`
	TemperatureShutdown *uint32           `yaml:"temperatureShutdown,omitempty"`
	Fans                []uint32          `yaml:"fans,omitempty"`
	PowerUsage          *uint32           `yaml:"powerUsage,omitempty"`
	PowerLimit          *uint32           `yaml:"powerLimit,omitempty"`
	TotalEnergy         *uint64           `yaml:"totalEnergy,omitempty"`
	ClockGraphics       *uint32           `yaml:"clockGraphics,omitempty"`
	ClockSM             *uint32           `yaml:"clockSM,omitempty"`
	ClockMemory         *uint32           `yaml:"clockMemory,omitempty"`
	ClockVideo          *uint32           `yaml:"clockVideo,omitempty"`
	Memory              *MemoryInfo       `yaml:"memory,omitempty"`
	Utilization         *UtilizationInfo  `yaml:"utilization,omitempty"`
	PerformanceState    *int              `yaml:"performanceState,omitempty"`
	Failures            map[string]string `yaml:"failures,omitempty"`
}

// SimulatedFile is the layout of a simulated hardware description file
type SimulatedFile struct {
	Devices []SimulatedDevice `yaml:"devices"`

	// Fail every DeviceCount call with this message when set
	CountFailure string `yaml:"countFailure,omitempty"`
}

// Simulated is a Layer serving readings from memory or from a yaml file. When
// backed by a file, the file is parsed again whenever its modification time
// changes, so editing it behaves like hot-plugging devices.
type Simulated struct {
	mu      sync.Mutex
	state   SimulatedFile
	path    string
	modTime time.Time
}

var _ Layer = (*Simulated)(nil)

// NewSimulated returns a layer serving the given devices
func NewSimulated(devices ...SimulatedDevice) *Simulated {
	return &Simulated{state: SimulatedFile{Devices: devices}}
}

// LoadSimulated returns a layer serving the devices described in the yaml file
// at path
func LoadSimulated(path string) (*Simulated, error) {
	s := &Simulated{path: path}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseSimulated decodes a simulated hardware description
func ParseSimulated(data []byte) (SimulatedFile, error) {
	var file SimulatedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return SimulatedFile{}, fmt.Errorf("parsing simulated hardware: %w", err)
	}
	return file, nil
}

// SetDevices replaces the simulated devices
func (s *Simulated) SetDevices(devices ...SimulatedDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Devices = devices
}

// SetCountFailure makes DeviceCount fail with the given message, or succeed
// again when message is empty
func (s *Simulated) SetCountFailure(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CountFailure = message
}

// reload parses the backing file if it changed since the last parse. Caller
// holds no lock.
func (s *Simulated) reload() error {
	if s.path == "" {
		return nil
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("reading simulated hardware %s: %w", s.path, err)
	}

	s.mu.Lock()
	unchanged := info.ModTime().Equal(s.modTime)
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading simulated hardware %s: %w", s.path, err)
	}
	file, err := ParseSimulated(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = file
	s.modTime = info.ModTime()
	s.mu.Unlock()
	return nil
}

func (s *Simulated) DeviceCount() (uint32, error) {
	if err := s.reload(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CountFailure != "" {
		return 0, errors.New(s.state.CountFailure)
	}
	return uint32(len(s.state.Devices)), nil
}

func (s *Simulated) Device(index uint32) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(index) >= len(s.state.Devices) {
		return nil, fmt.Errorf("device %d: no such device", index)
	}
	return &simulatedDevice{sim: s.state.Devices[index]}, nil
}

func (s *Simulated) Close() error {
	return nil
}

type simulatedDevice struct {
	sim SimulatedDevice
}

func reading[T any](d *simulatedDevice, name string, v *T) (T, error) {
	var zero T
	if message, ok := d.sim.Failures[name]; ok {
		return zero, fmt.Errorf("%s: %s", name, message)
	}
	if v == nil {
		return zero, fmt.Errorf("%s: %w", name, ErrUnsupported)
	}
	return *v, nil
}

func (d *simulatedDevice) Name() (string, error) {
	return reading(d, "name", d.sim.Name)
}

func (d *simulatedDevice) Temperature() (uint32, error) {
	return reading(d, "temperature", d.sim.Temperature)
}

func (d *simulatedDevice) TemperatureThreshold(threshold Threshold) (uint32, error) {
	switch threshold {
	case ThresholdSlowdown:
		return reading(d, "temperatureSlowdown", d.sim.TemperatureSlowdown)
	case ThresholdShutdown:
		return reading(d, "temperatureShutdown", d.sim.TemperatureShutdown)
	}
	return 0, fmt.Errorf("threshold %d: %w", threshold, ErrUnsupported)
}

func (d *simulatedDevice) FanCount() (int, error) {
	count := len(d.sim.Fans)
	return reading(d, "fans", &count)
}

func (d *simulatedDevice) FanSpeed(fan int) (uint32, error) {
	if fan < 0 || fan >= len(d.sim.Fans) {
		return reading[uint32](d, "fans", nil)
	}
	return reading(d, "fans", &d.sim.Fans[fan])
}

func (d *simulatedDevice) PowerUsage() (uint32, error) {
	return reading(d, "powerUsage", d.sim.PowerUsage)
}

func (d *simulatedDevice) PowerLimit() (uint32, error) {
	return reading(d, "powerLimit", d.sim.PowerLimit)
}

func (d *simulatedDevice) TotalEnergy() (uint64, error) {
	return reading(d, "totalEnergy", d.sim.TotalEnergy)
}

func (d *simulatedDevice) Clock(domain ClockDomain) (uint32, error) {
	switch domain {
	case ClockGraphics:
		return reading(d, "clockGraphics", d.sim.ClockGraphics)
	case ClockSM:
		return reading(d, "clockSM", d.sim.ClockSM)
	case ClockMemory:
		return reading(d, "clockMemory", d.sim.ClockMemory)
	case ClockVideo:
		return reading(d, "clockVideo", d.sim.ClockVideo)
	}
	return 0, fmt.Errorf("clock domain %d: %w", domain, ErrUnsupported)
}

func (d *simulatedDevice) Memory() (MemoryInfo, error) {
	return reading(d, "memory", d.sim.Memory)
}

func (d *simulatedDevice) Utilization() (UtilizationInfo, error) {
	return reading(d, "utilization", d.sim.Utilization)
}

func (d *simulatedDevice) PerformanceState() (int, error) {
	return reading(d, "performanceState", d.sim.PerformanceState)
}
