package model

import "time"

// JournalRecord is one line of the tamper-evident event journal
// (JSONL). Records form a hash chain: RecordHash covers every field
// except itself, including PrevHash.
type JournalRecord struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Kind        EventKind         `json:"kind"`
	Path        string            `json:"path"`
	OldHash     HashValue         `json:"old_hash,omitempty"`
	NewHash     HashValue         `json:"new_hash,omitempty"`
	Attribution AttributionRecord `json:"attribution"`
	PrevHash    HashValue         `json:"prev_hash"`
	RecordHash  HashValue         `json:"record_hash"`
}
