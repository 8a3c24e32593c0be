// Package session inspects login sessions and open file handles for
// fallback attribution.
package session

import (
	"context"
	"sort"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
)

// Handle describes a process currently holding a file open.
type Handle struct {
	User    string
	Process string
	PID     int
}

// Inspector exposes the coarse signals the attribution fallback relies
// on. Faked in tests so resolution logic runs without a live system.
type Inspector interface {
	// LoggedInUsers returns the distinct usernames of active sessions.
	LoggedInUsers(ctx context.Context) ([]string, error)
	// OpenHandles returns processes holding the given path open.
	OpenHandles(ctx context.Context, path string) ([]Handle, error)
}

// SystemInspector reads the live process table and utmp sessions.
type SystemInspector struct{}

// NewSystemInspector creates a live Inspector.
func NewSystemInspector() *SystemInspector {
	return &SystemInspector{}
}

// LoggedInUsers returns the distinct usernames with active sessions,
// sorted for stable output.
func (s *SystemInspector) LoggedInUsers(ctx context.Context) ([]string, error) {
	stats, err := host.UsersWithContext(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var users []string
	for _, st := range stats {
		if st.User == "" || seen[st.User] {
			continue
		}
		seen[st.User] = true
		users = append(users, st.User)
	}
	sort.Strings(users)
	return users, nil
}

// OpenHandles walks the process table looking for open descriptors on
// path. Processes that vanish or deny inspection mid-walk are skipped.
func (s *SystemInspector) OpenHandles(ctx context.Context, path string) ([]Handle, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var handles []Handle
	for _, p := range procs {
		if ctx.Err() != nil {
			return handles, ctx.Err()
		}
		files, err := p.OpenFilesWithContext(ctx)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.Path != path {
				continue
			}
			h := Handle{PID: int(p.Pid)}
			if name, err := p.NameWithContext(ctx); err == nil {
				h.Process = name
			}
			if user, err := p.UsernameWithContext(ctx); err == nil {
				h.User = user
			}
			handles = append(handles, h)
			break
		}
	}
	return handles, nil
}
