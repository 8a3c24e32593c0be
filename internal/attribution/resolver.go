// Package attribution resolves which user and process caused a
// filesystem event, correlating the kernel audit trail with coarse
// fallback signals.
package attribution

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vigil-project/vigil/internal/auditq"
	"github.com/vigil-project/vigil/internal/session"
	"github.com/vigil-project/vigil/pkg/logging"
	"github.com/vigil-project/vigil/pkg/model"
)

// Resolver produces a best-effort AttributionRecord per event. Errors
// inside resolution never escalate: the worst outcome is a degraded
// record whose Summary reads "unknown".
type Resolver struct {
	audit     auditq.Source
	inspector session.Inspector

	// window is the audit lookback ending at "now". Audit records may
	// flush after the filesystem event fires; races between flush
	// latency and the window edge are a known, accepted inaccuracy.
	window  time.Duration
	timeout time.Duration

	now       func() time.Time
	lookupUID func(uid int) (string, bool)
}

// NewResolver creates a Resolver with the given correlation window and
// per-query timeout.
func NewResolver(audit auditq.Source, inspector session.Inspector, window, timeout time.Duration) *Resolver {
	return &Resolver{
		audit:     audit,
		inspector: inspector,
		window:    window,
		timeout:   timeout,
		now:       time.Now,
		lookupUID: lookupUsername,
	}
}

// SetClock overrides the time source.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

func lookupUsername(uid int) (string, bool) {
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return "", false
	}
	return u.Username, true
}

// Resolve attributes the event at absPath. Always returns a record
// whose Summary is non-empty; never blocks longer than the audit query
// timeout plus the fallback inspection on the same deadline.
func (r *Resolver) Resolve(ctx context.Context, absPath string, kind model.EventKind) model.AttributionRecord {
	rec := model.AttributionRecord{Source: model.SourceFallback}

	// 1. File owner, while the target still exists.
	if owner := ownerOf(absPath); owner != nil {
		rec.FileOwner = owner
	}

	queryCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	// 2. Audit correlation over the lookback window.
	end := r.now()
	records, err := r.audit.Query(queryCtx, absPath, end.Add(-r.window), end)
	if err != nil {
		logging.WarnErr("audit query failed, falling back", err, map[string]any{"path": absPath})
	}
	for _, cand := range records {
		if cand.UID < 0 {
			continue
		}
		if name, ok := r.lookupUID(cand.UID); ok {
			rec.ActorUser = name
		} else {
			rec.ActorUser = fmt.Sprintf("uid:%d", cand.UID)
		}
		rec.ActorProcess = cand.Comm
		if cand.PID > 0 {
			rec.ActorPID = cand.PID
		}
		rec.Source = model.SourceAuditLog
		return rec
	}

	// 3. Fallback: login sessions, then open handles when the target
	// still exists.
	if users, err := r.inspector.LoggedInUsers(queryCtx); err == nil && len(users) > 0 {
		rec.ActorUser = strings.Join(users, ",")
	} else if err != nil {
		logging.WarnErr("session inspection failed", err)
	}

	if _, statErr := os.Stat(absPath); statErr == nil {
		if handles, err := r.inspector.OpenHandles(queryCtx, absPath); err == nil && len(handles) > 0 {
			h := handles[0]
			if h.User != "" {
				rec.ActorUser = h.User
			}
			rec.ActorProcess = h.Process
			rec.ActorPID = h.PID
		} else if err != nil {
			logging.WarnErr("open handle inspection failed", err, map[string]any{"path": absPath})
		}
	}

	return rec
}

// ownerOf records the owning user and group of path, best-effort.
// An absent file simply yields nil.
func ownerOf(path string) *model.Owner {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}

	owner := &model.Owner{
		User:  fmt.Sprintf("uid:%d", st.Uid),
		Group: fmt.Sprintf("gid:%d", st.Gid),
	}
	if u, err := user.LookupId(strconv.FormatUint(uint64(st.Uid), 10)); err == nil {
		owner.User = u.Username
	}
	if g, err := user.LookupGroupId(strconv.FormatUint(uint64(st.Gid), 10)); err == nil {
		owner.Group = g.Name
	}
	return owner
}
