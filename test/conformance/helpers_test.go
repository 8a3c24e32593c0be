//go:build conformance

package conformance

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vigil-project/vigil/internal/baseline"
	"github.com/vigil-project/vigil/internal/classify"
	"github.com/vigil-project/vigil/internal/gate"
	"github.com/vigil-project/vigil/internal/journal"
	"github.com/vigil-project/vigil/internal/monitor"
	"github.com/vigil-project/vigil/internal/state"
	"github.com/vigil-project/vigil/pkg/logging"
	"github.com/vigil-project/vigil/pkg/metrics"
	"github.com/vigil-project/vigil/pkg/model"
)

// staticResolver attributes every change to a fixed actor, standing in
// for the audit-backed resolver which needs root and auditd.
type staticResolver struct{}

func (staticResolver) Resolve(context.Context, string, model.EventKind) model.AttributionRecord {
	return model.AttributionRecord{ActorUser: "alice", ActorProcess: "vim", ActorPID: 4242, Source: model.SourceAuditLog}
}

type alertRecorder struct {
	alerts []string
}

func (a *alertRecorder) Notify(_ context.Context, title, body string) error {
	a.alerts = append(a.alerts, title+"\n"+body)
	return nil
}

// pipeline is a fully wired monitor over a temp tree, minus the live
// fsnotify watcher; tests feed events directly.
type pipeline struct {
	root    string
	st      *state.State
	index   *baseline.Index
	loop    *monitor.EventLoop
	journal *journal.FileAppender
	log     *bytes.Buffer
	alerts  *alertRecorder
	metrics *metrics.Registry

	clock time.Time
}

func newPipeline(t *testing.T, root string) *pipeline {
	t.Helper()

	st, err := state.Init(root)
	require.NoError(t, err)

	index, err := baseline.Load(st.BaselinePath())
	require.NoError(t, err)
	if index.Dirty() {
		require.NoError(t, index.Compact())
	}

	classifier := classify.New(root, state.DirName, []string{".txt"}, index)
	if index.Len() == 0 {
		_, err = baseline.Build(root, index, classifier.Track, nil)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	alerts := &alertRecorder{}
	jrnl := journal.NewFileAppender(st.JournalPath())
	reg := metrics.NewRegistry()

	loop := monitor.NewEventLoop(monitor.Options{
		Classifier: classifier,
		Index:      index,
		Resolver:   staticResolver{},
		Gate:       gate.New(5 * time.Second),
		Journal:    jrnl,
		EventLog:   logging.NewEventLogWriter(&buf),
		Notifier:   alerts,
		Metrics:    reg,
		MonitorID:  st.MonitorID,
		Root:       root,
	})

	return &pipeline{
		root:    root,
		st:      st,
		index:   index,
		loop:    loop,
		journal: jrnl,
		log:     &buf,
		alerts:  alerts,
		metrics: reg,
		clock:   time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
	}
}

// emit feeds one event into the loop, advancing the synthetic clock so
// consecutive emits land outside the throttle window.
func (p *pipeline) emit(t *testing.T, kind model.EventKind, rel string) {
	t.Helper()
	p.clock = p.clock.Add(10 * time.Second)
	p.loop.Handle(context.Background(), model.RawEvent{
		Timestamp:    p.clock,
		Kind:         kind,
		AbsolutePath: filepath.Join(p.root, rel),
	})
}

// emitAt feeds one event with an explicit timestamp offset from the
// previous one, for throttle scenarios.
func (p *pipeline) emitAt(t *testing.T, kind model.EventKind, rel string, after time.Duration) {
	t.Helper()
	p.clock = p.clock.Add(after)
	p.loop.Handle(context.Background(), model.RawEvent{
		Timestamp:    p.clock,
		Kind:         kind,
		AbsolutePath: filepath.Join(p.root, rel),
	})
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
