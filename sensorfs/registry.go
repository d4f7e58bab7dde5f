package sensorfs

import (
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// session is one open file: the content sampled when it was opened
type session struct {
	id      uint64
	content []byte
}

// Registry holds the content of every open sensor file, keyed by file handle.
// Sessions outlive namespace rebuilds: a handle keeps reading the value it
// captured even after its identifier stopped resolving.
type Registry struct {
	sessions cmap.ConcurrentMap[uint64, session]
	lastFh   atomic.Uint64
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: cmap.NewWithCustomShardingFunction[uint64, session](func(fh uint64) uint32 {
			return uint32(fh ^ fh>>32)
		}),
	}
}

// Open stores content for the entry id and returns a new file handle
func (r *Registry) Open(id uint64, content []byte) uint64 {
	fh := r.lastFh.Add(1)
	r.sessions.Set(fh, session{id: id, content: content})
	return fh
}

// Read returns at most size bytes of the session content starting at offset.
// Reading at or past the end returns nothing.
func (r *Registry) Read(fh uint64, offset uint64, size uint32) ([]byte, error) {
	s, ok := r.sessions.Get(fh)
	if !ok {
		return nil, ErrNotFound
	}

	length := uint64(len(s.content))
	start := min(offset, length)
	end := min(start+uint64(size), length)
	return s.content[start:end], nil
}

// Release forgets the session. It reports whether the handle was open.
func (r *Registry) Release(fh uint64) bool {
	_, ok := r.sessions.Pop(fh)
	return ok
}

// Len is the number of open sessions
func (r *Registry) Len() int {
	return r.sessions.Count()
}

// Clear drops every session
func (r *Registry) Clear() {
	r.sessions.Clear()
}
