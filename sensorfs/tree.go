package sensorfs

import (
	"github.com/hanwen/go-fuse/v2/fuse"
)

// TreeFile is a sensor file and, when read, its content without the trailing
// newline
type TreeFile struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// TreeDevice is a device directory and its files in listing order
type TreeDevice struct {
	Device string     `yaml:"device" json:"device"`
	Files  []TreeFile `yaml:"files" json:"files"`
}

// Tree walks the namespace the way a reader of the mount would. With values
// set every file is opened, read and released.
func (f *FileSystem) Tree(values bool) ([]TreeDevice, error) {
	f.refresher.Refresh()

	devices, err := f.store.Children(RootID, 0)
	if err != nil {
		return nil, err
	}

	tree := make([]TreeDevice, 0, len(devices))
	for _, device := range devices {
		files, err := f.store.Children(device.ID, 0)
		if err != nil {
			return nil, err
		}

		dir := TreeDevice{Device: device.Name, Files: make([]TreeFile, 0, len(files))}
		for _, file := range files {
			entry := TreeFile{Name: file.Name}
			if values {
				entry.Value = f.readAll(file.ID)
			}
			dir.Files = append(dir.Files, entry)
		}
		tree = append(tree, dir)
	}
	return tree, nil
}

func (f *FileSystem) readAll(id uint64) string {
	var opened fuse.OpenOut
	if status := f.Open(nil, &fuse.OpenIn{InHeader: fuse.InHeader{NodeId: id}}, &opened); !status.Ok() {
		return "error: " + status.String()
	}
	defer f.Release(nil, &fuse.ReleaseIn{Fh: opened.Fh})

	var content []byte
	for {
		data, err := f.registry.Read(opened.Fh, uint64(len(content)), 4096)
		if err != nil || len(data) == 0 {
			break
		}
		content = append(content, data...)
	}
	if n := len(content); n > 0 && content[n-1] == '\n' {
		content = content[:n-1]
	}
	return string(content)
}
