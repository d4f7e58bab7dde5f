package common

// Refresher defines the interface for refreshing filesystem contents
type Refresher interface {
	// Refresh brings the filesystem contents up to date if they are stale
	// Returns whether anything was rebuilt
	Refresh() bool
}
