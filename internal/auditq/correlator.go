// Package auditq correlates filesystem events with the kernel audit
// trail. The audit subsystem is reached through external tools
// (auditctl for rule management, ausearch for queries), each wrapped
// behind a narrow interface so the correlation logic is testable
// without a live audit daemon.
package auditq

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/vigil-project/vigil/pkg/errclass"
)

// Source answers "which actors touched this path in the window",
// most-relevant-first.
type Source interface {
	Query(ctx context.Context, path string, start, end time.Time) ([]Record, error)
}

// Rules manages the audit watch rule on the monitored root.
type Rules interface {
	Install(ctx context.Context, root string) error
	Remove(ctx context.Context, root string) error
}

// ausearch takes the timestamp as separate date and time arguments.
const (
	searchDateLayout = "01/02/2006"
	searchTimeLayout = "15:04:05"
)

// runner executes an external tool and returns its stdout. Swappable
// in tests.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ExecSource queries the audit log via ausearch, scoped to records
// tagged with the watch rule key.
type ExecSource struct {
	Key     string
	Timeout time.Duration

	run runner
}

// NewExecSource creates an ausearch-backed Source.
func NewExecSource(key string, timeout time.Duration) *ExecSource {
	return &ExecSource{Key: key, Timeout: timeout, run: runCommand}
}

// Query searches for records matching the path's basename within
// [start, end]. An unreadable or rotating audit log yields an empty
// list, never an error that escalates past attribution.
func (s *ExecSource) Query(ctx context.Context, path string, start, end time.Time) ([]Record, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	args := []string{
		"-k", s.Key,
		"-ts", start.Format(searchDateLayout), start.Format(searchTimeLayout),
		"-te", end.Format(searchDateLayout), end.Format(searchTimeLayout),
	}
	out, err := s.run(ctx, "ausearch", args...)
	if err != nil {
		// ausearch exits non-zero when nothing matched; with a
		// rotated or unreadable log the answer is the same: no
		// attribution candidates.
		return nil, nil
	}
	return ParseRecords(out, filepath.Base(path)), nil
}

// ExecRules installs and removes the watch rule via auditctl.
type ExecRules struct {
	Key     string
	Timeout time.Duration

	run runner
}

// NewExecRules creates an auditctl-backed Rules manager.
func NewExecRules(key string, timeout time.Duration) *ExecRules {
	return &ExecRules{Key: key, Timeout: timeout, run: runCommand}
}

// Install registers the watch rule on root. Idempotent: any existing
// rule for the same root/key is removed first so rules never
// accumulate across restarts.
func (r *ExecRules) Install(ctx context.Context, root string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	// Best-effort removal; fails harmlessly when no rule exists.
	r.run(ctx, "auditctl", "-W", root, "-p", "wa", "-k", r.Key)

	if _, err := r.run(ctx, "auditctl", "-w", root, "-p", "wa", "-k", r.Key); err != nil {
		return errclass.ErrAuditUnavailable.WithMessagef("install watch rule on %s: %v", root, err)
	}
	return nil
}

// Remove deregisters the watch rule on root.
func (r *ExecRules) Remove(ctx context.Context, root string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	if _, err := r.run(ctx, "auditctl", "-W", root, "-p", "wa", "-k", r.Key); err != nil {
		return errclass.ErrAuditUnavailable.WithMessagef("remove watch rule on %s: %v", root, err)
	}
	return nil
}
