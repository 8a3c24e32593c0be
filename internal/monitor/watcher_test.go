package monitor_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigil-project/vigil/internal/monitor"
	"github.com/vigil-project/vigil/pkg/model"
)

// waitForEvent drains the stream until an event for path with the
// given kind arrives, or fails after a timeout.
func waitForEvent(t *testing.T, events <-chan model.RawEvent, kind model.EventKind, path string) model.RawEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event stream closed while waiting for %s %s", kind, path)
			}
			if ev.Kind == kind && ev.AbsolutePath == path {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s %s", kind, path)
		}
	}
}

func TestWatcherSeesCreate(t *testing.T) {
	root := t.TempDir()
	w, err := monitor.NewWatcher(root)
	require.NoError(t, err)
	defer w.Close()

	target := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(target, []byte("hello"), 0644))

	ev := waitForEvent(t, w.Events(), model.KindCreate, target)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestWatcherSeesModifyAndDelete(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(target, []byte("hello"), 0644))

	w, err := monitor.NewWatcher(root)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(target, []byte("world"), 0644))
	waitForEvent(t, w.Events(), model.KindModify, target)

	require.NoError(t, os.Remove(target))
	waitForEvent(t, w.Events(), model.KindDelete, target)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := monitor.NewWatcher(root)
	require.NoError(t, err)
	defer w.Close()

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))

	// Give the watcher a beat to register the new directory.
	time.Sleep(200 * time.Millisecond)

	target := filepath.Join(sub, "a.txt")
	require.NoError(t, os.WriteFile(target, []byte("hello"), 0644))
	waitForEvent(t, w.Events(), model.KindCreate, target)
}

func TestWatcherCloseEndsStream(t *testing.T) {
	w, err := monitor.NewWatcher(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("event stream not closed")
	}
}
