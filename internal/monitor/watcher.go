package monitor

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vigil-project/vigil/internal/state"
	"github.com/vigil-project/vigil/pkg/logging"
	"github.com/vigil-project/vigil/pkg/model"
)

// Watcher turns fsnotify events for a directory tree into RawEvents.
// Every directory under the root is registered recursively, and
// directories created while watching are picked up as they appear.
type Watcher struct {
	root   string
	fsw    *fsnotify.Watcher
	events chan model.RawEvent
	stop   chan struct{}
	once   sync.Once
	done   chan struct{}
}

// NewWatcher registers root and all of its subdirectories. The state
// directory is skipped so writes to the baseline and logs do not feed
// back into the monitor.
func NewWatcher(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:   root,
		fsw:    fsw,
		events: make(chan model.RawEvent, 256),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

// Events returns the stream of raw filesystem events.
func (w *Watcher) Events() <-chan model.RawEvent {
	return w.events
}

// Close stops watching and closes the event stream. Safe to call when
// the consumer has already stopped draining.
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.stop) })
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == state.DirName && path != dir {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.events)

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.WarnErr("watch error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	kind, ok := mapOp(ev.Op)
	if !ok {
		return
	}

	if kind == model.KindCreate {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// New directory: watch it and everything already inside.
			if err := w.addTree(ev.Name); err != nil {
				logging.WarnErr("watch new directory", err)
			}
			return
		}
	}

	raw := model.RawEvent{
		Timestamp:    time.Now(),
		Kind:         kind,
		AbsolutePath: ev.Name,
	}
	select {
	case w.events <- raw:
	case <-w.stop:
	default:
		// Consumer is behind and the buffer is full. The kernel may
		// already be coalescing events at this point; drop and move on.
		logging.Warn("event buffer full, dropping event", map[string]any{
			"path": ev.Name,
			"kind": string(kind),
		})
	}
}

func mapOp(op fsnotify.Op) (model.EventKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return model.KindCreate, true
	case op.Has(fsnotify.Write):
		return model.KindModify, true
	case op.Has(fsnotify.Remove):
		return model.KindDelete, true
	case op.Has(fsnotify.Rename):
		return model.KindMoveFrom, true
	default:
		// Chmod and anything else carries no content change.
		return "", false
	}
}
