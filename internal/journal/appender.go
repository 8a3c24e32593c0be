// Package journal appends accepted events to a tamper-evident JSONL
// log. Records form a hash chain so after-the-fact edits are
// detectable with Verify.
package journal

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/vigil-project/vigil/pkg/errclass"
	"github.com/vigil-project/vigil/pkg/jsonutil"
	"github.com/vigil-project/vigil/pkg/model"
	"github.com/vigil-project/vigil/pkg/uuidutil"
)

// FileAppender appends journal records to a JSONL file with hash chain.
type FileAppender struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileAppender creates a new FileAppender.
func NewFileAppender(path string) *FileAppender {
	return &FileAppender{path: path, now: time.Now}
}

// Append adds a new record for an accepted event. Failures are
// returned for warning-level logging; the event pipeline proceeds
// regardless.
func (a *FileAppender) Append(ev model.ClassifiedEvent, attr model.AttributionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	// Exclusive flock guards against a concurrent vigil invocation
	// (e.g. baseline build while a monitor runs).
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("flock journal: %w", err)
	}
	defer syscall.Flock(int(file.Fd()), syscall.LOCK_UN)

	prevHash, err := lastRecordHashLocked(file)
	if err != nil {
		return fmt.Errorf("get last record hash: %w", err)
	}

	record := &model.JournalRecord{
		ID:          uuidutil.NewV4(),
		Timestamp:   a.now().UTC(),
		Kind:        ev.Kind,
		Path:        ev.RelPath,
		OldHash:     ev.OldHash,
		NewHash:     ev.NewHash,
		Attribution: attr,
		PrevHash:    prevHash,
	}

	recordHash, err := computeRecordHash(record)
	if err != nil {
		return fmt.Errorf("compute record hash: %w", err)
	}
	record.RecordHash = recordHash

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}

	if _, err := file.Seek(0, 2); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write journal record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync journal: %w", err)
	}

	return nil
}

// Verify walks the chain and returns the number of valid records. A
// broken link or recomputed-hash mismatch fails with the offending
// line number.
func (a *FileAppender) Verify() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	var prev model.HashValue
	count := 0
	lineNo := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		var record model.JournalRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return count, errclass.ErrJournalBroken.WithMessagef("line %d: malformed record", lineNo)
		}
		if record.PrevHash != prev {
			return count, errclass.ErrJournalBroken.WithMessagef("line %d: chain break", lineNo)
		}
		expected, err := computeRecordHash(&record)
		if err != nil {
			return count, err
		}
		if record.RecordHash != expected {
			return count, errclass.ErrJournalBroken.WithMessagef("line %d: record hash mismatch", lineNo)
		}
		prev = record.RecordHash
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("scan journal: %w", err)
	}
	return count, nil
}

func lastRecordHashLocked(file *os.File) (model.HashValue, error) {
	if _, err := file.Seek(0, 0); err != nil {
		return "", fmt.Errorf("seek to start: %w", err)
	}

	var lastHash model.HashValue
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var record model.JournalRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue // skip malformed lines
		}
		lastHash = record.RecordHash
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan journal: %w", err)
	}
	return lastHash, nil
}

func computeRecordHash(record *model.JournalRecord) (model.HashValue, error) {
	// Copy without RecordHash for hash computation.
	hashRecord := &model.JournalRecord{
		ID:          record.ID,
		Timestamp:   record.Timestamp,
		Kind:        record.Kind,
		Path:        record.Path,
		OldHash:     record.OldHash,
		NewHash:     record.NewHash,
		Attribution: record.Attribution,
		PrevHash:    record.PrevHash,
		// RecordHash intentionally omitted
	}

	data, err := jsonutil.CanonicalMarshal(hashRecord)
	if err != nil {
		return "", fmt.Errorf("canonical marshal: %w", err)
	}

	hash := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(hash[:])), nil
}
