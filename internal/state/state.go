// Package state manages the .vigil/ directory that holds everything a
// monitored tree accumulates: the baseline, the event log, the journal,
// and the monitor identity.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vigil-project/vigil/pkg/errclass"
	"github.com/vigil-project/vigil/pkg/fsutil"
	"github.com/vigil-project/vigil/pkg/uuidutil"
)

const (
	FormatVersion     = 1
	DirName           = ".vigil"
	FormatVersionFile = "format_version"
	MonitorIDFile     = "monitor_id"
	BaselineFile      = "baseline.sha256"
	EventLogFile      = "events.log"
	JournalFile       = "journal.jsonl"
	ConfigFile        = "config.yaml"
)

// State describes an initialized monitoring state directory.
type State struct {
	Root          string
	FormatVersion int
	MonitorID     string
}

// Init prepares the state directory under root, creating it if needed.
// Re-running Init on an existing directory preserves the monitor identity.
func Init(root string) (*State, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errclass.ErrTargetInvalid.WithMessagef("stat %s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, errclass.ErrTargetInvalid.WithMessagef("%s is not a directory", root)
	}

	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errclass.ErrStateDirInvalid.WithMessagef("create %s: %v", dir, err)
	}

	version, err := readFormatVersion(dir)
	if os.IsNotExist(err) {
		version = FormatVersion
		if werr := os.WriteFile(filepath.Join(dir, FormatVersionFile), []byte("1\n"), 0644); werr != nil {
			return nil, errclass.ErrStateDirInvalid.WithMessagef("write format_version: %v", werr)
		}
	} else if err != nil {
		return nil, err
	}
	if version > FormatVersion {
		return nil, errclass.ErrStateDirInvalid.WithMessagef(
			"format version %d > supported %d", version, FormatVersion)
	}

	id, err := readMonitorID(dir)
	if os.IsNotExist(err) {
		id = uuidutil.NewV4()
		if werr := os.WriteFile(filepath.Join(dir, MonitorIDFile), []byte(id+"\n"), 0644); werr != nil {
			return nil, errclass.ErrStateDirInvalid.WithMessagef("write monitor_id: %v", werr)
		}
	} else if err != nil {
		return nil, errclass.ErrStateDirInvalid.WithMessagef("read monitor_id: %v", err)
	}

	if err := fsutil.FsyncDir(dir); err != nil {
		return nil, fmt.Errorf("fsync state dir: %w", err)
	}

	return &State{Root: root, FormatVersion: version, MonitorID: id}, nil
}

// Open loads an existing state directory without creating anything.
func Open(root string) (*State, error) {
	dir := filepath.Join(root, DirName)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errclass.ErrStateDirInvalid.WithMessagef("no %s directory under %s", DirName, root)
	}
	version, err := readFormatVersion(dir)
	if err != nil {
		return nil, errclass.ErrStateDirInvalid.WithMessagef("read format_version: %v", err)
	}
	if version > FormatVersion {
		return nil, errclass.ErrStateDirInvalid.WithMessagef(
			"format version %d > supported %d", version, FormatVersion)
	}
	id, err := readMonitorID(dir)
	if err != nil {
		return nil, errclass.ErrStateDirInvalid.WithMessagef("read monitor_id: %v", err)
	}
	return &State{Root: root, FormatVersion: version, MonitorID: id}, nil
}

// Discover walks up from dir to find a monitored root (a directory
// containing .vigil/).
func Discover(dir string) (*State, error) {
	path := dir
	for {
		if info, err := os.Stat(filepath.Join(path, DirName)); err == nil && info.IsDir() {
			return Open(path)
		}
		parent := filepath.Dir(path)
		if parent == path {
			return nil, errclass.ErrStateDirInvalid.WithMessagef(
				"no %s directory in %s or any parent", DirName, dir)
		}
		path = parent
	}
}

// Dir returns the state directory path.
func (s *State) Dir() string { return filepath.Join(s.Root, DirName) }

// BaselinePath returns the baseline file path.
func (s *State) BaselinePath() string { return filepath.Join(s.Dir(), BaselineFile) }

// EventLogPath returns the event log path.
func (s *State) EventLogPath() string { return filepath.Join(s.Dir(), EventLogFile) }

// JournalPath returns the journal path.
func (s *State) JournalPath() string { return filepath.Join(s.Dir(), JournalFile) }

func readFormatVersion(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, FormatVersionFile))
	if err != nil {
		return 0, err
	}
	var version int
	if _, err := fmt.Sscanf(string(data), "%d", &version); err != nil {
		return 0, errclass.ErrStateDirInvalid.WithMessagef("parse format_version: %v", err)
	}
	return version, nil
}

func readMonitorID(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, MonitorIDFile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
