// Package doctor diagnoses whether the host can run a full-fidelity
// monitor: privileges, audit tooling, notification tooling, and the
// health of an existing state directory.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/vigil-project/vigil/internal/baseline"
	"github.com/vigil-project/vigil/internal/journal"
	"github.com/vigil-project/vigil/internal/state"
)

// Finding represents a detected issue.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Path        string `json:"path,omitempty"`
}

// Result contains doctor check results.
type Result struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

// Doctor performs host and state directory health checks.
type Doctor struct {
	root string

	// injectable for tests
	euid     func() int
	lookPath func(string) (string, error)
}

// NewDoctor creates a doctor for the monitored root.
func NewDoctor(root string) *Doctor {
	return &Doctor{
		root:     root,
		euid:     os.Geteuid,
		lookPath: exec.LookPath,
	}
}

// Check runs all diagnostic checks. With strict set, the journal hash
// chain is verified end to end.
func (d *Doctor) Check(strict bool) (*Result, error) {
	result := &Result{Healthy: true}

	d.checkPrivileges(result)
	d.checkTool(result, "auditctl", "critical", "audit rule management unavailable; the monitor will refuse to start")
	d.checkTool(result, "ausearch", "critical", "audit queries unavailable; attribution degrades to fallback")
	d.checkTool(result, "notify-send", "warning", "desktop notifications unavailable")
	d.checkStateDir(result, strict)

	for _, f := range result.Findings {
		if f.Severity == "critical" || f.Severity == "error" {
			result.Healthy = false
		}
	}
	return result, nil
}

func (d *Doctor) checkPrivileges(result *Result) {
	if d.euid() != 0 {
		result.Findings = append(result.Findings, Finding{
			Category:    "privileges",
			Description: "not running as root; audit correlation requires root",
			Severity:    "critical",
		})
	}
}

func (d *Doctor) checkTool(result *Result, name, severity, consequence string) {
	if _, err := d.lookPath(name); err != nil {
		result.Findings = append(result.Findings, Finding{
			Category:    "tooling",
			Description: fmt.Sprintf("%s not found in PATH; %s", name, consequence),
			Severity:    severity,
		})
	}
}

func (d *Doctor) checkStateDir(result *Result, strict bool) {
	s, err := state.Open(d.root)
	if err != nil {
		// Not initialized yet. The monitor will create it on start.
		return
	}

	probe := filepath.Join(s.Dir(), ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		result.Findings = append(result.Findings, Finding{
			Category:    "state",
			Description: fmt.Sprintf("state directory not writable: %v", err),
			Severity:    "error",
			Path:        s.Dir(),
		})
	} else {
		os.Remove(probe)
	}

	if _, err := os.Stat(s.BaselinePath()); err == nil {
		dups, err := baseline.CountDuplicates(s.BaselinePath())
		if err != nil {
			result.Findings = append(result.Findings, Finding{
				Category:    "baseline",
				Description: fmt.Sprintf("baseline unreadable: %v", err),
				Severity:    "error",
				Path:        s.BaselinePath(),
			})
		} else if dups > 0 {
			result.Findings = append(result.Findings, Finding{
				Category:    "baseline",
				Description: fmt.Sprintf("%d superseded baseline lines; run 'vigil baseline compact'", dups),
				Severity:    "warning",
				Path:        s.BaselinePath(),
			})
		}
	}

	if strict {
		if _, err := journal.NewFileAppender(s.JournalPath()).Verify(); err != nil {
			result.Findings = append(result.Findings, Finding{
				Category:    "journal",
				Description: fmt.Sprintf("journal verification failed: %v", err),
				Severity:    "error",
				Path:        s.JournalPath(),
			})
		}
	}
}
