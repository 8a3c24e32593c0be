// Package baseline maintains the persisted path→hash index that
// integrity decisions compare against.
package baseline

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/vigil-project/vigil/pkg/errclass"
	"github.com/vigil-project/vigil/pkg/fsutil"
	"github.com/vigil-project/vigil/pkg/model"
	"github.com/vigil-project/vigil/pkg/pathutil"
)

// compactEvery bounds how many appended lines may accumulate before
// the file is rewritten deduplicated.
const compactEvery = 128

// hashLen is the length of a hex-encoded SHA-256 digest.
const hashLen = 64

// Index is the in-memory hash baseline backed by a plain-text file of
// "<64-hex-sha256><two spaces><relative-path>" lines. The file may
// carry duplicate lines for a path between compactions; the in-memory
// map never does. All methods assume a single sequential caller.
type Index struct {
	path    string
	entries map[string]model.HashValue
	appends int
	// dirty means the file is owed a full rewrite: a previous
	// persistence attempt failed, or a removal has not been flushed.
	// In-memory state stays authoritative either way.
	dirty bool
}

// Load reads the baseline file at path. A missing file yields an empty
// index. Duplicate entries for the same path resolve to the most
// recently appended one; malformed lines are skipped.
func Load(path string) (*Index, error) {
	ix := &Index{
		path:    path,
		entries: make(map[string]model.HashValue),
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ix, nil
		}
		return nil, errclass.ErrBaselineCorrupt.WithMessagef("open baseline: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rel, hash, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if _, seen := ix.entries[rel]; seen {
			ix.dirty = true // duplicate on disk, compaction owed
		}
		ix.entries[rel] = hash
	}
	if err := scanner.Err(); err != nil {
		return nil, errclass.ErrBaselineCorrupt.WithMessagef("scan baseline: %v", err)
	}

	return ix, nil
}

// parseLine splits one baseline line into (relPath, hash). Lines that
// are not well-formed are reported as not ok rather than failing the
// whole load.
func parseLine(line string) (string, model.HashValue, bool) {
	if len(line) < hashLen+3 {
		return "", "", false
	}
	hash := line[:hashLen]
	if !isHex(hash) || line[hashLen:hashLen+2] != "  " {
		return "", "", false
	}
	rel := line[hashLen+2:]
	if pathutil.ValidateRel(rel) != nil {
		return "", "", false
	}
	return rel, model.HashValue(strings.ToLower(hash)), true
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Lookup returns the stored hash for a relative path.
func (ix *Index) Lookup(rel string) (model.HashValue, bool) {
	h, ok := ix.entries[rel]
	return h, ok
}

// Upsert records the hash for a path and persists it. The in-memory
// map is updated unconditionally; a persistence failure is returned
// for logging and retried on the next mutation.
func (ix *Index) Upsert(rel string, hash model.HashValue) error {
	ix.entries[rel] = hash

	if ix.dirty {
		return ix.rewrite()
	}

	if err := ix.appendLine(rel, hash); err != nil {
		ix.dirty = true
		return err
	}
	ix.appends++
	if ix.appends >= compactEvery {
		return ix.Compact()
	}
	return nil
}

// Remove deletes a path from the index and persists the removal via a
// full rewrite (append-only lines cannot express deletion).
func (ix *Index) Remove(rel string) error {
	delete(ix.entries, rel)
	ix.dirty = true
	return ix.rewrite()
}

// Rename rewrites a key, used when a move is confirmed end to end.
// The entry is never transiently duplicated on disk: the swap happens
// in memory and persists as one rewrite.
func (ix *Index) Rename(oldRel, newRel string) error {
	h, ok := ix.entries[oldRel]
	if !ok {
		return nil
	}
	delete(ix.entries, oldRel)
	ix.entries[newRel] = h
	ix.dirty = true
	return ix.rewrite()
}

// Compact rewrites the baseline file with exactly one line per path.
// Idempotent: compacting twice yields the same file content set.
func (ix *Index) Compact() error {
	return ix.rewrite()
}

func (ix *Index) rewrite() error {
	var b strings.Builder
	for rel, hash := range ix.entries {
		fmt.Fprintf(&b, "%s  %s\n", hash, rel)
	}
	if err := fsutil.AtomicWrite(ix.path, []byte(b.String()), 0644); err != nil {
		ix.dirty = true
		return errclass.ErrBaselineWrite.WithMessagef("rewrite: %v", err)
	}
	ix.dirty = false
	ix.appends = 0
	return nil
}

func (ix *Index) appendLine(rel string, hash model.HashValue) error {
	f, err := os.OpenFile(ix.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errclass.ErrBaselineWrite.WithMessagef("open for append: %v", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s  %s\n", hash, rel); err != nil {
		return errclass.ErrBaselineWrite.WithMessagef("append: %v", err)
	}
	return nil
}

// Dirty reports whether the backing file is owed a rewrite, either
// because it carries superseded duplicate lines or because a previous
// persistence attempt failed.
func (ix *Index) Dirty() bool {
	return ix.dirty
}

// Len returns the number of tracked paths.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entries returns a copy of the current path→hash map.
func (ix *Index) Entries() map[string]model.HashValue {
	out := make(map[string]model.HashValue, len(ix.entries))
	for k, v := range ix.entries {
		out[k] = v
	}
	return out
}

// Path returns the backing file path.
func (ix *Index) Path() string {
	return ix.path
}

// CountDuplicates reports how many redundant lines the baseline file
// currently carries (lines beyond the first per path). Used by doctor.
func CountDuplicates(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	seen := make(map[string]bool)
	dups := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rel, _, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if seen[rel] {
			dups++
		}
		seen[rel] = true
	}
	return dups, scanner.Err()
}
