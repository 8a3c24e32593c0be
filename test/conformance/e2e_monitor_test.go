//go:build conformance

package conformance

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigil-project/vigil/pkg/model"
)

const (
	hashHello = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	hashWorld = "486ea46224d1bb4fb680f34f7c9ad96a8f24ec88be73ea8e5a6c65260e9cb8a7"
)

// Full lifecycle of a single file: created, modified, rewritten with
// identical content, deleted. Each step checks the baseline, the event
// log, the alerts, and finally the journal chain.
func TestE2E_Monitor_FileLifecycle(t *testing.T) {
	root := t.TempDir()
	p := newPipeline(t, root)

	t.Run("create", func(t *testing.T) {
		writeFile(t, root, "docs/notes.txt", "hello")
		p.emit(t, model.KindCreate, "docs/notes.txt")

		hash, ok := p.index.Lookup("docs/notes.txt")
		require.True(t, ok)
		assert.Equal(t, model.HashValue(hashHello), hash)
		assert.Contains(t, p.log.String(), "[CREATE] docs/notes.txt sha256="+hashHello)
		assert.Contains(t, p.log.String(), "alice")
		require.Len(t, p.alerts.alerts, 1)
		assert.Contains(t, p.alerts.alerts[0], "file created")
	})

	t.Run("modify", func(t *testing.T) {
		writeFile(t, root, "docs/notes.txt", "world")
		p.emit(t, model.KindModify, "docs/notes.txt")

		hash, _ := p.index.Lookup("docs/notes.txt")
		assert.Equal(t, model.HashValue(hashWorld), hash)
		assert.Contains(t, p.log.String(), "[MODIFY] docs/notes.txt sha256="+hashWorld)
		assert.Len(t, p.alerts.alerts, 2)
	})

	t.Run("identical_rewrite_suppressed", func(t *testing.T) {
		logBefore := p.log.String()
		writeFile(t, root, "docs/notes.txt", "world")
		p.emit(t, model.KindModify, "docs/notes.txt")

		assert.Len(t, p.alerts.alerts, 2, "no alert for unchanged content")
		assert.Equal(t, logBefore, p.log.String(), "no log entry for unchanged content")
		assert.Equal(t, int64(1), p.metrics.Snapshot()["hash_suppressed"])
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(root, "docs/notes.txt")))
		p.emit(t, model.KindDelete, "docs/notes.txt")

		_, ok := p.index.Lookup("docs/notes.txt")
		assert.False(t, ok)
		assert.Contains(t, p.log.String(), "[DELETE] docs/notes.txt")
		assert.Len(t, p.alerts.alerts, 3)
	})

	t.Run("journal_chain_intact", func(t *testing.T) {
		n, err := p.journal.Verify()
		require.NoError(t, err)
		assert.Equal(t, 3, n, "suppressed rewrite is not journaled")
	})
}

func TestE2E_Monitor_ThrottleWindow(t *testing.T) {
	root := t.TempDir()
	p := newPipeline(t, root)

	writeFile(t, root, "a.txt", "v1")
	p.emit(t, model.KindCreate, "a.txt")
	require.Len(t, p.alerts.alerts, 1)

	// Burst of three distinct edits inside the 5s window.
	for i, content := range []string{"v2", "v3", "v4"} {
		writeFile(t, root, "a.txt", content)
		p.emitAt(t, model.KindModify, "a.txt", time.Duration(i+1)*time.Second/10)
	}
	assert.Len(t, p.alerts.alerts, 1, "burst collapses into the first alert")
	assert.Equal(t, int64(3), p.metrics.Snapshot()["alerts_throttled"])

	// All edits were still logged individually.
	assert.Contains(t, p.log.String(), "alert throttled for a.txt")

	// Past the window the next change alerts again.
	writeFile(t, root, "a.txt", "v5")
	p.emitAt(t, model.KindModify, "a.txt", 6*time.Second)
	assert.Len(t, p.alerts.alerts, 2)
}

func TestE2E_Monitor_UnmonitoredPathsIgnored(t *testing.T) {
	root := t.TempDir()
	p := newPipeline(t, root)

	writeFile(t, root, "binary.log", "x")
	writeFile(t, root, ".hidden.txt", "x")
	writeFile(t, root, "draft.txt~", "x")

	p.emit(t, model.KindCreate, "binary.log")
	p.emit(t, model.KindCreate, ".hidden.txt")
	p.emit(t, model.KindCreate, "draft.txt~")

	assert.Empty(t, p.alerts.alerts)
	assert.Zero(t, p.index.Len())
	assert.Equal(t, int64(3), p.metrics.Snapshot()["events_rejected"])
}

func TestE2E_Monitor_MovesReportedWithoutBaselineChange(t *testing.T) {
	root := t.TempDir()
	p := newPipeline(t, root)

	writeFile(t, root, "a.txt", "hello")
	p.emit(t, model.KindCreate, "a.txt")

	require.NoError(t, os.Rename(filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt")))
	p.emit(t, model.KindMoveFrom, "a.txt")

	_, ok := p.index.Lookup("a.txt")
	assert.True(t, ok, "rename leaves the baseline entry in place")
	assert.Contains(t, p.log.String(), "[MOVE] a.txt")
}
