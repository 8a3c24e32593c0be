// Package classify filters raw filesystem notifications down to
// integrity-relevant events.
package classify

import (
	"os"
	"strings"

	"github.com/vigil-project/vigil/internal/baseline"
	"github.com/vigil-project/vigil/internal/integrity"
	"github.com/vigil-project/vigil/pkg/model"
	"github.com/vigil-project/vigil/pkg/pathutil"
)

// Rejection explains why an event was filtered out. Empty means the
// event was accepted.
type Rejection string

const (
	RejectNone        Rejection = ""
	RejectOutsideRoot Rejection = "path outside monitored root"
	RejectSelf        Rejection = "monitor state artifact"
	RejectHidden      Rejection = "hidden or temporary path"
	RejectSuffix      Rejection = "suffix not monitored"
	RejectDirectory   Rejection = "directory"
	RejectUnchanged   Rejection = "content hash unchanged"
	RejectUnreadable  Rejection = "content not hashable"
)

// temporary file patterns produced by common editors' save cycles.
var tempSuffixes = []string{"~", ".swp", ".swx", ".tmp", ".part"}

// Classifier maps raw watch notifications to classified events. It
// reads the baseline for modify suppression but never mutates it;
// index mutation belongs to the event loop.
type Classifier struct {
	root       string
	stateDir   string
	extensions []string
	index      *baseline.Index

	hashFile func(path string) (model.HashValue, error)
}

// New creates a Classifier. stateDir is the name of vigil's own state
// directory under root, excluded so the monitor never feeds on its own
// artifacts. An empty extensions list monitors every non-hidden file.
func New(root, stateDir string, extensions []string, index *baseline.Index) *Classifier {
	return &Classifier{
		root:       root,
		stateDir:   stateDir,
		extensions: extensions,
		index:      index,
		hashFile:   integrity.HashFile,
	}
}

// Track reports whether a relative path belongs to the monitored
// subset. Shared with the initial baseline scan.
func (c *Classifier) Track(rel string) bool {
	return c.filter(rel) == RejectNone
}

func (c *Classifier) filter(rel string) Rejection {
	parts := strings.Split(rel, "/")
	if parts[0] == c.stateDir {
		return RejectSelf
	}
	base := parts[len(parts)-1]
	for _, part := range parts {
		if strings.HasPrefix(part, ".") {
			return RejectHidden
		}
	}
	if strings.HasPrefix(base, "#") {
		return RejectHidden
	}
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(base, suffix) {
			return RejectHidden
		}
	}
	if len(c.extensions) > 0 {
		matched := false
		for _, ext := range c.extensions {
			if pathutil.HasSuffixFold(base, ext) {
				matched = true
				break
			}
		}
		if !matched {
			return RejectSuffix
		}
	}
	return RejectNone
}

// Classify filters a raw event and, for modifications, suppresses
// no-op saves by comparing the current content hash with the baseline.
// Create/Delete/Move events classify unconditionally once the path
// filter passes.
func (c *Classifier) Classify(ev model.RawEvent) (model.ClassifiedEvent, Rejection) {
	out := model.ClassifiedEvent{RawEvent: ev}

	rel, err := pathutil.Relative(c.root, ev.AbsolutePath)
	if err != nil {
		return out, RejectOutsideRoot
	}
	out.RelPath = rel

	if rej := c.filter(rel); rej != RejectNone {
		return out, rej
	}

	if old, ok := c.index.Lookup(rel); ok {
		out.OldHash = old
	}

	switch ev.Kind {
	case model.KindCreate, model.KindModify:
		if info, err := os.Stat(ev.AbsolutePath); err == nil && info.IsDir() {
			return out, RejectDirectory
		}
	}

	switch ev.Kind {
	case model.KindModify:
		hash, err := c.hashFile(ev.AbsolutePath)
		if err != nil {
			// Vanished between event and hash. The delete event
			// that follows will settle the baseline.
			return out, RejectUnreadable
		}
		if hash == out.OldHash {
			return out, RejectUnchanged
		}
		out.NewHash = hash

	case model.KindCreate:
		// Best-effort: a create may race with its own deletion, in
		// which case the event stays accepted with no hash.
		if hash, err := c.hashFile(ev.AbsolutePath); err == nil {
			out.NewHash = hash
		}
	}

	return out, RejectNone
}
