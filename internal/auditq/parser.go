package auditq

import (
	"regexp"
	"strconv"
	"strings"
)

// Record is one parsed audit event. Fields the audit record did not
// carry (or that failed to parse) hold their zero markers: UID and PID
// are -1, Comm is empty. Missing fields are absent, never fatal.
type Record struct {
	UID  int
	PID  int
	Comm string
}

var (
	uidPattern  = regexp.MustCompile(`\buid=(\d+)\b`)
	pidPattern  = regexp.MustCompile(`\bpid=(\d+)\b`)
	commPattern = regexp.MustCompile(`\bcomm="([^"]*)"`)
	namePattern = regexp.MustCompile(`\bname="([^"]*)"`)
)

// ParseRecords extracts (uid, pid, comm) triples from raw ausearch
// output, keeping only event blocks whose PATH records mention the
// given basename. Blocks are returned most-recent-first (ausearch
// prints oldest first). Malformed blocks are skipped.
func ParseRecords(output []byte, basename string) []Record {
	blocks := strings.Split(string(output), "----")
	records := make([]Record, 0, len(blocks))

	for _, block := range blocks {
		if strings.TrimSpace(block) == "" {
			continue
		}
		if !blockMatchesName(block, basename) {
			continue
		}
		rec, ok := parseBlock(block)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	// Reverse to most-relevant-first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records
}

// blockMatchesName reports whether any PATH name= field of the block
// refers to the basename, either exactly or as the final component.
func blockMatchesName(block, basename string) bool {
	if basename == "" {
		return true
	}
	for _, m := range namePattern.FindAllStringSubmatch(block, -1) {
		name := m[1]
		if name == basename || strings.HasSuffix(name, "/"+basename) {
			return true
		}
	}
	return false
}

// parseBlock pulls the actor fields out of the SYSCALL line. A block
// with no usable field at all is dropped.
func parseBlock(block string) (Record, bool) {
	rec := Record{UID: -1, PID: -1}

	// The SYSCALL line carries the acting process; PATH and CWD lines
	// repeat ids we do not want. Restrict field extraction to it.
	var syscallLine string
	for _, line := range strings.Split(block, "\n") {
		if strings.Contains(line, "type=SYSCALL") {
			syscallLine = line
			break
		}
	}
	if syscallLine == "" {
		return rec, false
	}

	if m := uidPattern.FindStringSubmatch(syscallLine); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			rec.UID = v
		}
	}
	if m := pidPattern.FindStringSubmatch(syscallLine); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			rec.PID = v
		}
	}
	if m := commPattern.FindStringSubmatch(syscallLine); m != nil {
		rec.Comm = m[1]
	}

	if rec.UID < 0 && rec.PID < 0 && rec.Comm == "" {
		return rec, false
	}
	return rec, true
}
