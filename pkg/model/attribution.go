package model

import (
	"fmt"
	"strings"
)

// Owner is the owning user and group of a file, recorded best-effort
// while the target still exists on disk.
type Owner struct {
	User  string `json:"user"`
	Group string `json:"group"`
}

// AttributionRecord is the best-effort answer to "who caused this
// event". Unresolved fields are empty, never fabricated; Summary
// renders explicit "unknown" values instead.
type AttributionRecord struct {
	FileOwner    *Owner            `json:"file_owner,omitempty"`
	ActorUser    string            `json:"actor_user,omitempty"`
	ActorProcess string            `json:"actor_process,omitempty"`
	ActorPID     int               `json:"actor_pid,omitempty"`
	Source       AttributionSource `json:"source"`
}

// Summary composes a non-empty human-readable attribution string from
// whichever fields were resolved.
func (a AttributionRecord) Summary() string {
	var parts []string

	actor := a.ActorUser
	if actor == "" {
		actor = "unknown"
	}
	switch a.Source {
	case SourceAuditLog:
		parts = append(parts, "user "+actor)
	default:
		parts = append(parts, "user "+actor+" (fallback)")
	}

	if a.ActorProcess != "" {
		if a.ActorPID > 0 {
			parts = append(parts, fmt.Sprintf("via %s[%d]", a.ActorProcess, a.ActorPID))
		} else {
			parts = append(parts, "via "+a.ActorProcess)
		}
	} else if a.ActorPID > 0 {
		parts = append(parts, fmt.Sprintf("via pid %d", a.ActorPID))
	}

	if a.FileOwner != nil {
		parts = append(parts, fmt.Sprintf("owner %s:%s", a.FileOwner.User, a.FileOwner.Group))
	}

	return strings.Join(parts, ", ")
}
