package sensorfs

import (
	"errors"
	"sort"
	"strconv"
	"syscall"
	"time"

	common "github.com/404wolf/gpusensorfs/common"
	"github.com/404wolf/gpusensorfs/sensors"
)

// RootID is the identifier the protocol reserves for the root directory
const RootID uint64 = 1

const (
	// DirPerms are the permissions of the root and the device directories
	DirPerms = 0o555

	// SensorFilePerms are the permissions of every sensor file
	SensorFilePerms = 0o444

	// NominalFileSize is the size reported for sensor files. The real length
	// is only known once the file is opened.
	NominalFileSize = 4096

	// BlockSize reported for every entry
	BlockSize = 4096
)

var (
	ErrNotFound  = errors.New("no such entry")
	ErrNotDir    = errors.New("not a directory")
	ErrNotSensor = errors.New("not a sensor file")
)

// Owner is reported as the uid and gid of every entry
type Owner struct {
	UID uint32
	GID uint32
}

// Attr is the fixed metadata of a namespace entry
type Attr struct {
	ID    uint64
	Mode  uint32
	Size  uint64
	Nlink uint32
	Owner Owner
	Time  time.Time
}

// IsDir reports whether the attributes describe a directory
func (a Attr) IsDir() bool {
	return a.Mode&syscall.S_IFMT == syscall.S_IFDIR
}

// Entry is a directory or a sensor file. Device and Sensor are only set for
// sensor files; Children only for directories.
type Entry struct {
	ID       uint64
	Parent   uint64
	Name     string
	Attr     Attr
	Device   uint32
	Sensor   sensors.Sensor
	Children []uint64
}

func (e *Entry) IsDir() bool {
	return e.Attr.IsDir()
}

// DirEntry is one line of a directory listing. NextOffset is the position to
// resume listing from after this entry.
type DirEntry struct {
	ID         uint64
	NextOffset uint64
	Dir        bool
	Name       string
}

type nameKey struct {
	parent uint64
	name   string
}

// Store is the inode table and name index of the current namespace. All
// entries are replaced together by Rebuild; an identifier only resolves
// within the epoch it was allocated in. Identifiers are never handed out
// twice, so an identifier from an older epoch can only fail with ErrNotFound.
type Store struct {
	entries map[uint64]*Entry
	names   map[nameKey]uint64
	lastID  uint64
	epoch   uint64
	owner   Owner
}

// NewStore returns a store holding only an empty root directory
func NewStore(owner Owner, now time.Time) *Store {
	s := &Store{owner: owner, lastID: RootID}
	s.reset(now)
	return s
}

func (s *Store) reset(now time.Time) *Entry {
	root := &Entry{
		ID:     RootID,
		Parent: RootID,
		Attr:   s.dirAttr(RootID, now),
	}
	s.entries = map[uint64]*Entry{RootID: root}
	s.names = map[nameKey]uint64{}
	return root
}

func (s *Store) dirAttr(id uint64, now time.Time) Attr {
	return Attr{
		ID:    id,
		Mode:  syscall.S_IFDIR | DirPerms,
		Nlink: 2,
		Owner: s.owner,
		Time:  now,
	}
}

func (s *Store) fileAttr(id uint64, now time.Time) Attr {
	return Attr{
		ID:    id,
		Mode:  syscall.S_IFREG | SensorFilePerms,
		Size:  NominalFileSize,
		Nlink: 1,
		Owner: s.owner,
		Time:  now,
	}
}

func (s *Store) allocate() uint64 {
	s.lastID++
	return s.lastID
}

// insert adds the entry under its parent. It reports false and leaves the
// store untouched if the name is already taken.
func (s *Store) insert(parent *Entry, entry *Entry) bool {
	key := nameKey{parent: parent.ID, name: entry.Name}
	if _, exists := s.names[key]; exists {
		return false
	}
	s.entries[entry.ID] = entry
	s.names[key] = entry.ID
	parent.Children = append(parent.Children, entry.ID)
	if entry.IsDir() {
		parent.Attr.Nlink++
	}
	return true
}

// Rebuild replaces the whole namespace with the snapshot. Devices become
// directories under the root named by their ordinal, in ascending order, and
// each of their sensors a file named after the sensor. Snapshots from Build
// never repeat a name; a repeated device or sensor is skipped with a warning.
func (s *Store) Rebuild(snapshot Snapshot, now time.Time) {
	devices := append([]DeviceSensors(nil), snapshot.Devices...)
	sort.SliceStable(devices, func(i, j int) bool { return devices[i].Index < devices[j].Index })

	s.epoch++
	root := s.reset(now)

	for _, device := range devices {
		name := strconv.FormatUint(uint64(device.Index), 10)
		if _, exists := s.names[nameKey{parent: RootID, name: name}]; exists {
			common.Logger.Warnw("Duplicate device in snapshot", "device", device.Index)
			continue
		}

		dirID := s.allocate()
		dir := &Entry{ID: dirID, Parent: RootID, Name: name, Attr: s.dirAttr(dirID, now)}
		s.insert(root, dir)

		for _, sensor := range device.Sensors {
			if _, exists := s.names[nameKey{parent: dirID, name: sensor.Name()}]; exists {
				common.Logger.Warnw("Duplicate sensor in snapshot", "device", device.Index, "sensor", sensor)
				continue
			}
			fileID := s.allocate()
			s.insert(dir, &Entry{
				ID:     fileID,
				Parent: dirID,
				Name:   sensor.Name(),
				Attr:   s.fileAttr(fileID, now),
				Device: device.Index,
				Sensor: sensor,
			})
		}
	}

	common.Logger.Debugw("Namespace rebuilt",
		"epoch", s.epoch, "devices", len(root.Children), "entries", len(s.entries))
}

// Epoch counts rebuilds. It is reported as the generation of every entry.
func (s *Store) Epoch() uint64 {
	return s.epoch
}

// Len is the number of entries including the root
func (s *Store) Len() int {
	return len(s.entries)
}

// Resolve finds the child of parent with exactly the given name
func (s *Store) Resolve(parent uint64, name string) (uint64, error) {
	id, ok := s.names[nameKey{parent: parent, name: name}]
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

// Entry returns the entry with the given identifier
func (s *Store) Entry(id uint64) (*Entry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Attributes returns the metadata of the entry with the given identifier
func (s *Store) Attributes(id uint64) (Attr, error) {
	entry, err := s.Entry(id)
	if err != nil {
		return Attr{}, err
	}
	return entry.Attr, nil
}

// Children lists the directory from position start onwards. A start past the
// end yields an empty listing.
func (s *Store) Children(id uint64, start uint64) ([]DirEntry, error) {
	dir, err := s.Entry(id)
	if err != nil {
		return nil, err
	}
	if !dir.IsDir() {
		return nil, ErrNotDir
	}
	if start >= uint64(len(dir.Children)) {
		return []DirEntry{}, nil
	}

	listing := make([]DirEntry, 0, uint64(len(dir.Children))-start)
	for i := start; i < uint64(len(dir.Children)); i++ {
		child := s.entries[dir.Children[i]]
		listing = append(listing, DirEntry{
			ID:         child.ID,
			NextOffset: i + 1,
			Dir:        child.IsDir(),
			Name:       child.Name,
		})
	}
	return listing, nil
}
