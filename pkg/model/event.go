package model

import "time"

// RawEvent is a filesystem notification as delivered by the watch
// source. Ephemeral; never persisted.
type RawEvent struct {
	Timestamp    time.Time
	Kind         EventKind
	AbsolutePath string
}

// ClassifiedEvent is a RawEvent that passed the path filters and, for
// modifications, the hash comparison. RelPath is the baseline key.
type ClassifiedEvent struct {
	RawEvent

	RelPath string

	// OldHash is the baseline hash before the event, if any.
	OldHash HashValue
	// NewHash is the current content hash. Empty when the target
	// no longer exists (deletes, vanished files).
	NewHash HashValue
}
