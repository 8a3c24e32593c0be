// Package monitor runs the live watch pipeline: raw filesystem events
// are classified, attributed, applied to the baseline, logged, and
// finally alerted subject to per-path throttling.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/vigil-project/vigil/internal/baseline"
	"github.com/vigil-project/vigil/internal/classify"
	"github.com/vigil-project/vigil/internal/gate"
	"github.com/vigil-project/vigil/internal/notify"
	"github.com/vigil-project/vigil/pkg/logging"
	"github.com/vigil-project/vigil/pkg/metrics"
	"github.com/vigil-project/vigil/pkg/model"
	"github.com/vigil-project/vigil/pkg/webhook"
)

// Attributor resolves who changed a file.
type Attributor interface {
	Resolve(ctx context.Context, absPath string, kind model.EventKind) model.AttributionRecord
}

// Journal records classified events to tamper-evident storage.
type Journal interface {
	Append(ev model.ClassifiedEvent, attr model.AttributionRecord) error
}

// EventLoop consumes raw events one at a time. Strictly sequential
// handling keeps the baseline free of interleaved read-modify-write
// races without any locking in the index itself.
type EventLoop struct {
	classifier *classify.Classifier
	index      *baseline.Index
	resolver   Attributor
	gate       *gate.Gate
	journal    Journal
	eventLog   *logging.EventLog
	notifier   notify.Notifier
	hooks      *webhook.Client
	metrics    *metrics.Registry

	monitorID string
	root      string
}

// Options collects the loop's collaborators. Journal, hooks, and
// metrics are optional.
type Options struct {
	Classifier *classify.Classifier
	Index      *baseline.Index
	Resolver   Attributor
	Gate       *gate.Gate
	Journal    Journal
	EventLog   *logging.EventLog
	Notifier   notify.Notifier
	Hooks      *webhook.Client
	Metrics    *metrics.Registry
	MonitorID  string
	Root       string
}

// NewEventLoop wires an event loop from its collaborators.
func NewEventLoop(opts Options) *EventLoop {
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	return &EventLoop{
		classifier: opts.Classifier,
		index:      opts.Index,
		resolver:   opts.Resolver,
		gate:       opts.Gate,
		journal:    opts.Journal,
		eventLog:   opts.EventLog,
		notifier:   opts.Notifier,
		hooks:      opts.Hooks,
		metrics:    opts.Metrics,
		monitorID:  opts.MonitorID,
		root:       opts.Root,
	}
}

// Run consumes events until the channel closes or ctx is cancelled.
func (l *EventLoop) Run(ctx context.Context, events <-chan model.RawEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-events:
			if !ok {
				return nil
			}
			l.Handle(ctx, raw)
		}
	}
}

// Handle processes a single raw event through the full pipeline.
func (l *EventLoop) Handle(ctx context.Context, raw model.RawEvent) {
	l.metrics.RecordEventSeen()

	ev, rejection := l.classifier.Classify(raw)
	if rejection != classify.RejectNone {
		l.metrics.RecordEventRejected()
		if rejection == classify.RejectUnchanged {
			// Suppressed no-op writes leave no trace in the event log;
			// editor save storms would otherwise flood it.
			l.metrics.RecordHashSuppressed()
			logging.Debug("suppressed no-op modify", map[string]any{"path": ev.RelPath})
		}
		return
	}
	l.metrics.RecordEventAccepted()

	attr := l.resolver.Resolve(ctx, raw.AbsolutePath, raw.Kind)
	l.metrics.RecordAttribution(attr.Source == model.SourceAuditLog)

	l.applyToBaseline(ev)

	if l.journal != nil {
		if err := l.journal.Append(ev, attr); err != nil {
			logging.WarnErr("journal append", err)
		}
	}

	l.logLine(eventLevel(ev.Kind), "%s", describe(ev, attr))

	// Deletes always alert; the throttle entry left by earlier
	// modifications must not swallow a removal.
	if ev.Kind != model.KindDelete && !l.gate.ShouldEmit(ev.RelPath, raw.Timestamp) {
		l.metrics.RecordAlertThrottled()
		l.logLine(logging.EventMonitor, "alert throttled for %s", ev.RelPath)
		return
	}
	l.metrics.RecordAlertEmitted()
	l.alert(ctx, ev, attr)
}

// applyToBaseline mutates the hash index to match the event. Moves are
// reported but deliberately leave the baseline untouched; the paired
// create or delete events carry the mutation.
func (l *EventLoop) applyToBaseline(ev model.ClassifiedEvent) {
	switch ev.Kind {
	case model.KindCreate, model.KindModify:
		if ev.NewHash == "" {
			return
		}
		if err := l.index.Upsert(ev.RelPath, ev.NewHash); err != nil {
			logging.WarnErr("baseline upsert", err)
		}
	case model.KindDelete:
		if err := l.index.Remove(ev.RelPath); err != nil {
			logging.WarnErr("baseline remove", err)
		}
	}
}

func (l *EventLoop) alert(ctx context.Context, ev model.ClassifiedEvent, attr model.AttributionRecord) {
	title := fmt.Sprintf("vigil: %s", alertVerb(ev.Kind))
	body := fmt.Sprintf("%s\n%s", ev.RelPath, attr.Summary())
	if err := l.notifier.Notify(ctx, title, body); err != nil {
		logging.WarnErr("desktop notification", err)
	}

	if l.hooks != nil {
		l.hooks.Send(webhook.Event{
			Event:       webhookType(ev.Kind),
			Timestamp:   ev.Timestamp.UTC().Format(time.RFC3339),
			MonitorID:   l.monitorID,
			Root:        l.root,
			Path:        ev.RelPath,
			Hash:        string(ev.NewHash),
			Attribution: attr.Summary(),
		})
	}

	l.logLine(logging.EventEvent, "alert emitted for %s", ev.RelPath)
}

func (l *EventLoop) logLine(level logging.EventLevel, format string, args ...any) {
	if l.eventLog == nil {
		return
	}
	if err := l.eventLog.Log(level, format, args...); err != nil {
		logging.WarnErr("event log write", err)
	}
}

func describe(ev model.ClassifiedEvent, attr model.AttributionRecord) string {
	if ev.NewHash != "" {
		return fmt.Sprintf("%s sha256=%s by %s", ev.RelPath, ev.NewHash, attr.Summary())
	}
	return fmt.Sprintf("%s by %s", ev.RelPath, attr.Summary())
}

func eventLevel(kind model.EventKind) logging.EventLevel {
	switch kind {
	case model.KindCreate:
		return logging.EventCreate
	case model.KindModify:
		return logging.EventModify
	case model.KindDelete:
		return logging.EventDelete
	case model.KindMoveFrom, model.KindMoveTo:
		return logging.EventMove
	default:
		return logging.EventEvent
	}
}

func alertVerb(kind model.EventKind) string {
	switch kind {
	case model.KindCreate:
		return "file created"
	case model.KindModify:
		return "file modified"
	case model.KindDelete:
		return "file deleted"
	case model.KindMoveFrom, model.KindMoveTo:
		return "file moved"
	default:
		return "file changed"
	}
}

func webhookType(kind model.EventKind) webhook.EventType {
	switch kind {
	case model.KindCreate:
		return webhook.EventFileCreated
	case model.KindModify:
		return webhook.EventFileModified
	case model.KindDelete:
		return webhook.EventFileDeleted
	default:
		return webhook.EventFileMoved
	}
}
