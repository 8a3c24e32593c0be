// Package lock guards a monitored tree against concurrent monitors.
// Two event loops appending to the same baseline would interleave
// read-modify-write cycles, so acquisition is mandatory before watching.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vigil-project/vigil/pkg/errclass"
	"github.com/vigil-project/vigil/pkg/uuidutil"
)

// FileName is the lock file inside the state directory.
const FileName = "monitor.lock"

// Record identifies the monitor holding the lock.
type Record struct {
	PID        int       `json:"pid"`
	Nonce      string    `json:"nonce"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Guard is a held lock. Release it when the monitor stops.
type Guard struct {
	path string
	file *os.File
}

// Acquire takes the monitor lock for stateDir. It fails immediately if
// another live process holds it; a stale file left by a crashed monitor
// is reclaimed because the flock dies with its holder.
func Acquire(stateDir string) (*Guard, error) {
	path := filepath.Join(stateDir, FileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder := readRecord(path)
		file.Close()
		if holder != nil {
			return nil, errclass.ErrAlreadyRunning.WithMessagef(
				"monitor pid %d is already watching this tree (since %s)",
				holder.PID, holder.AcquiredAt.Format(time.RFC3339))
		}
		return nil, errclass.ErrAlreadyRunning.WithMessage("another monitor is already watching this tree")
	}

	rec := Record{
		PID:        os.Getpid(),
		Nonce:      uuidutil.NewV4(),
		AcquiredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Truncate(0); err == nil {
		file.WriteAt(append(data, '\n'), 0)
		file.Sync()
	}

	return &Guard{path: path, file: file}, nil
}

// Release drops the lock and removes the lock file.
func (g *Guard) Release() error {
	if g.file == nil {
		return nil
	}
	syscall.Flock(int(g.file.Fd()), syscall.LOCK_UN)
	err := g.file.Close()
	g.file = nil
	os.Remove(g.path)
	return err
}

// Holder reads the record of whoever holds the lock, if readable.
func Holder(stateDir string) *Record {
	return readRecord(filepath.Join(stateDir, FileName))
}

func readRecord(path string) *Record {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	return &rec
}
