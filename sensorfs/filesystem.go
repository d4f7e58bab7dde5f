package sensorfs

import (
	"errors"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"

	common "github.com/404wolf/gpusensorfs/common"
	"github.com/404wolf/gpusensorfs/hardware"
	"github.com/404wolf/gpusensorfs/sensors"
)

const fsName = "gpusensorfs"

var (
	statusNotDir = fuse.Status(syscall.ENOTDIR)
	statusIsDir  = fuse.Status(syscall.EISDIR)
	statusAccess = fuse.Status(syscall.EACCES)
)

// Options tune a FileSystem
type Options struct {
	AttrTimeout  time.Duration
	EntryTimeout time.Duration
	Owner        Owner

	// Now stamps entries on rebuild, time.Now when nil
	Now func() time.Time
}

// Sampler reads the current value of a sensor
type Sampler interface {
	Sample(device uint32, sensor sensors.Sensor) (string, error)
}

// FileSystem answers raw FUSE requests from the namespace store and the open
// file registry. It expects requests one at a time and does no locking of its
// own, so it must be served single threaded.
type FileSystem struct {
	fuse.RawFileSystem

	store    *Store
	registry *Registry
	sampler  Sampler
	options  Options

	// refresher runs before structural requests, policy is told about
	// failed samples
	refresher common.Refresher
	policy    *Policy
}

var _ fuse.RawFileSystem = (*FileSystem)(nil)

// New returns a filesystem exposing the devices of layer. The namespace is
// built on Init or on the first structural request.
func New(layer hardware.Layer, options Options) *FileSystem {
	if options.Now == nil {
		options.Now = time.Now
	}

	catalog := sensors.NewCatalog(layer)
	store := NewStore(options.Owner, options.Now())
	registry := NewRegistry()
	registerSessionGauge(registry)
	policy := NewPolicy(layer, NewBuilder(catalog), store, options.Now)

	return &FileSystem{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		store:         store,
		registry:      registry,
		sampler:       catalog,
		options:       options,
		refresher:     policy,
		policy:        policy,
	}
}

// Store is the namespace currently served
func (f *FileSystem) Store() *Store {
	return f.store
}

// Sessions is the number of open sensor files
func (f *FileSystem) Sessions() int {
	return f.registry.Len()
}

func (f *FileSystem) String() string {
	return fsName
}

func observe(op string, status *fuse.Status) {
	requestsTotal.WithLabelValues(op, status.String()).Inc()
}

func statusOf(err error) fuse.Status {
	switch {
	case err == nil:
		return fuse.OK
	case errors.Is(err, ErrNotDir):
		return statusNotDir
	case errors.Is(err, ErrNotSensor):
		return statusIsDir
	default:
		return fuse.ENOENT
	}
}

func (a Attr) fill(out *fuse.Attr) {
	out.Ino = a.ID
	out.Mode = a.Mode
	out.Size = a.Size
	out.Blocks = (a.Size + 511) / 512
	out.Blksize = BlockSize
	out.Nlink = a.Nlink
	out.Owner = fuse.Owner{Uid: a.Owner.UID, Gid: a.Owner.GID}
	out.SetTimes(&a.Time, &a.Time, &a.Time)
}

func (f *FileSystem) fillEntry(attr Attr, out *fuse.EntryOut) {
	out.NodeId = attr.ID
	out.Generation = f.store.Epoch()
	out.SetEntryTimeout(f.options.EntryTimeout)
	out.SetAttrTimeout(f.options.AttrTimeout)
	attr.fill(&out.Attr)
}

// Init builds the first namespace
func (f *FileSystem) Init(server *fuse.Server) {
	common.Logger.Info("Initializing FUSE file system")
	f.refresher.Refresh()
}

// Destroy drops every session still open when the filesystem goes away.
// There is nothing to persist.
func (f *FileSystem) Destroy() {
	common.Logger.Infow("Destroying FUSE file system", "openSessions", f.registry.Len())
	f.registry.Clear()
}

func (f *FileSystem) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) (status fuse.Status) {
	defer observe("lookup", &status)
	f.refresher.Refresh()

	id, err := f.store.Resolve(header.NodeId, name)
	if err != nil {
		common.Logger.Debugw("Unknown file name", "parent", header.NodeId, "name", name)
		return fuse.ENOENT
	}

	attr, err := f.store.Attributes(id)
	if err != nil {
		common.Logger.Errorw("Resolved entry has no attributes", "id", id, "name", name)
		return fuse.ENOENT
	}

	f.fillEntry(attr, out)
	return fuse.OK
}

func (f *FileSystem) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) (status fuse.Status) {
	defer observe("getattr", &status)

	attr, err := f.store.Attributes(input.NodeId)
	if err != nil {
		common.Logger.Debugw("Attributes of unknown entry requested", "id", input.NodeId)
		f.refresher.Refresh()
		return fuse.ENOENT
	}

	out.SetTimeout(f.options.AttrTimeout)
	attr.fill(&out.Attr)
	return fuse.OK
}

func (f *FileSystem) Access(cancel <-chan struct{}, input *fuse.AccessIn) (status fuse.Status) {
	defer observe("access", &status)

	if _, err := f.store.Attributes(input.NodeId); err != nil {
		return fuse.ENOENT
	}
	if input.Mask&2 != 0 {
		return statusAccess
	}
	return fuse.OK
}

// Open samples the sensor once and keeps the value for every read of the
// returned handle. Open flags are ignored, the mount is read-only.
func (f *FileSystem) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) (status fuse.Status) {
	defer observe("open", &status)

	entry, err := f.store.Entry(input.NodeId)
	if err != nil {
		common.Logger.Debugw("Open of unknown entry", "id", input.NodeId)
		return fuse.ENOENT
	}
	if entry.IsDir() {
		return statusOf(ErrNotSensor)
	}

	value, err := f.sampler.Sample(entry.Device, entry.Sensor)
	content, transient := sensors.Render(value, err)
	switch {
	case transient:
		f.policy.SampleFailed(entry.Device, entry.Sensor, err)
	case err != nil:
		common.Logger.Debugw("Unsupported sensor", "device", entry.Device, "sensor", entry.Sensor)
		sampleErrorsTotal.WithLabelValues(sampleUnsupported).Inc()
	}

	out.Fh = f.registry.Open(entry.ID, content)
	out.OpenFlags = fuse.FOPEN_DIRECT_IO
	common.Logger.Debugw("Opened sensor file",
		"device", entry.Device, "sensor", entry.Sensor, "fh", out.Fh)
	return fuse.OK
}

func (f *FileSystem) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (result fuse.ReadResult, status fuse.Status) {
	defer observe("read", &status)

	data, err := f.registry.Read(input.Fh, input.Offset, input.Size)
	if err != nil {
		common.Logger.Warnw("Read of unknown file handle", "fh", input.Fh)
		return nil, fuse.ENOENT
	}
	return fuse.ReadResultData(data), fuse.OK
}

func (f *FileSystem) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {
	status := fuse.OK
	defer observe("release", &status)

	if !f.registry.Release(input.Fh) {
		common.Logger.Warnw("Release of unknown file handle", "fh", input.Fh)
		status = fuse.ENOENT
	}
}

func (f *FileSystem) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) (status fuse.Status) {
	defer observe("opendir", &status)
	f.refresher.Refresh()

	attr, err := f.store.Attributes(input.NodeId)
	if err != nil {
		return fuse.ENOENT
	}
	if !attr.IsDir() {
		return statusNotDir
	}
	return fuse.OK
}

func (f *FileSystem) ReleaseDir(input *fuse.ReleaseIn) {}

func (f *FileSystem) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) (status fuse.Status) {
	defer observe("readdir", &status)
	return f.readDir(input.NodeId, input.Offset, func(entry DirEntry) bool {
		return out.AddDirEntry(protocolDirEntry(entry))
	})
}

func (f *FileSystem) ReadDirPlus(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) (status fuse.Status) {
	defer observe("readdirplus", &status)
	return f.readDir(input.NodeId, input.Offset, func(entry DirEntry) bool {
		entryOut := out.AddDirLookupEntry(protocolDirEntry(entry))
		if entryOut == nil {
			return false
		}
		if attr, err := f.store.Attributes(entry.ID); err == nil {
			f.fillEntry(attr, entryOut)
		}
		return true
	})
}

// protocolDirEntry converts a listing entry. The reply list numbers entries
// from the request offset, which matches NextOffset as long as entries are
// added in listing order without gaps.
func protocolDirEntry(entry DirEntry) fuse.DirEntry {
	mode := uint32(syscall.S_IFREG)
	if entry.Dir {
		mode = syscall.S_IFDIR
	}
	return fuse.DirEntry{Name: entry.Name, Ino: entry.ID, Mode: mode}
}

// readDir lists the directory from offset, handing entries to add until it
// reports the reply buffer is full
func (f *FileSystem) readDir(id uint64, offset uint64, add func(DirEntry) bool) fuse.Status {
	f.refresher.Refresh()

	listing, err := f.store.Children(id, offset)
	if err != nil {
		common.Logger.Debugw("Listing failed", "id", id, "error", err)
		return statusOf(err)
	}

	for _, entry := range listing {
		if !add(entry) {
			common.Logger.Debugw("Reply buffer filled", "id", id, "next", entry.NextOffset-1)
			break
		}
	}
	return fuse.OK
}

func (f *FileSystem) StatFs(cancel <-chan struct{}, input *fuse.InHeader, out *fuse.StatfsOut) (status fuse.Status) {
	defer observe("statfs", &status)

	out.Bsize = BlockSize
	out.Frsize = BlockSize
	out.NameLen = 255
	out.Files = uint64(f.store.Len())
	return fuse.OK
}
