// Package rotate archives the event log when it grows past a size
// threshold. Archives are gzip-compressed next to the live log and the
// oldest are pruned so a long-running monitor has bounded disk use.
package rotate

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Rotator rotates a single log file.
type Rotator struct {
	MaxBytes int64 // rotate once the live file exceeds this
	Keep     int   // archives retained after pruning

	now func() time.Time
}

// New creates a Rotator. Non-positive values fall back to 8 MiB and 3
// retained archives.
func New(maxBytes int64, keep int) *Rotator {
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}
	if keep <= 0 {
		keep = 3
	}
	return &Rotator{MaxBytes: maxBytes, Keep: keep, now: time.Now}
}

// SetClock overrides the archive timestamp source.
func (r *Rotator) SetClock(now func() time.Time) {
	r.now = now
}

// Rotate archives path if it exceeds the threshold. It reports whether
// a rotation happened. A missing file is not an error.
func (r *Rotator) Rotate(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.Size() <= r.MaxBytes {
		return false, nil
	}

	archive := fmt.Sprintf("%s.%s.gz", path, r.now().UTC().Format("20060102T150405Z"))
	if err := compressTo(path, archive); err != nil {
		return false, err
	}
	if err := os.Truncate(path, 0); err != nil {
		return false, fmt.Errorf("truncate %s: %w", path, err)
	}
	if err := r.prune(path); err != nil {
		return true, err
	}
	return true, nil
}

// prune removes the oldest archives beyond Keep. Archive names embed
// a sortable timestamp, so lexical order is age order.
func (r *Rotator) prune(path string) error {
	matches, err := filepath.Glob(path + ".*.gz")
	if err != nil {
		return err
	}
	if len(matches) <= r.Keep {
		return nil
	}
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-r.Keep] {
		if err := os.Remove(old); err != nil {
			return fmt.Errorf("prune %s: %w", old, err)
		}
	}
	return nil
}

func compressTo(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	gz, err := gzip.NewWriterLevel(out, gzip.BestSpeed)
	if err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("compress %s: %w", src, err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
