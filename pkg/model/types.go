package model

// HashValue is a SHA-256 content hash stored as a lowercase hex string.
type HashValue string

// EventKind identifies the integrity-relevant classification of a
// filesystem change.
type EventKind string

const (
	KindCreate   EventKind = "create"
	KindModify   EventKind = "modify"
	KindDelete   EventKind = "delete"
	KindMoveFrom EventKind = "move_from"
	KindMoveTo   EventKind = "move_to"
)

// IsMove reports whether the kind is either half of a rename.
func (k EventKind) IsMove() bool {
	return k == KindMoveFrom || k == KindMoveTo
}

// AttributionSource identifies how an attribution was derived.
type AttributionSource string

const (
	// SourceAuditLog means the actor was correlated from kernel audit
	// records within the lookback window.
	SourceAuditLog AttributionSource = "audit_log"
	// SourceFallback means the actor was inferred from coarse signals
	// (file ownership, login sessions, open handles).
	SourceFallback AttributionSource = "fallback"
)
