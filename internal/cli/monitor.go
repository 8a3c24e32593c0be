package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vigil-project/vigil/internal/attribution"
	"github.com/vigil-project/vigil/internal/auditq"
	"github.com/vigil-project/vigil/internal/baseline"
	"github.com/vigil-project/vigil/internal/classify"
	"github.com/vigil-project/vigil/internal/gate"
	"github.com/vigil-project/vigil/internal/journal"
	"github.com/vigil-project/vigil/internal/lock"
	"github.com/vigil-project/vigil/internal/monitor"
	"github.com/vigil-project/vigil/internal/notify"
	"github.com/vigil-project/vigil/internal/rotate"
	"github.com/vigil-project/vigil/internal/session"
	"github.com/vigil-project/vigil/internal/state"
	"github.com/vigil-project/vigil/pkg/color"
	"github.com/vigil-project/vigil/pkg/config"
	"github.com/vigil-project/vigil/pkg/errclass"
	"github.com/vigil-project/vigil/pkg/logging"
	"github.com/vigil-project/vigil/pkg/metrics"
	"github.com/vigil-project/vigil/pkg/progress"
	"github.com/vigil-project/vigil/pkg/webhook"
)

func runMonitor(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	if os.Geteuid() != 0 {
		return errclass.ErrNotRoot.WithMessage("audit correlation requires root; re-run with sudo")
	}

	st, err := state.Init(root)
	if err != nil {
		return err
	}

	cfg, err := config.Load(st.Dir())
	if err != nil {
		return err
	}
	applyLogging(cfg)

	guard, err := lock.Acquire(st.Dir())
	if err != nil {
		return err
	}
	defer guard.Release()

	if rotated, err := rotate.New(cfg.Logging.MaxLogBytes, cfg.Logging.KeepLogs).Rotate(st.EventLogPath()); err != nil {
		logging.WarnErr("rotate event log", err)
	} else if rotated {
		logging.Info("event log rotated", map[string]any{"path": st.EventLogPath()})
	}

	index, err := baseline.Load(st.BaselinePath())
	if err != nil {
		return err
	}
	// Appends from the previous run leave superseded lines behind;
	// rewrite them away before watching. A failure is non-fatal, the
	// next mutation retries.
	if index.Dirty() {
		if err := index.Compact(); err != nil {
			logging.WarnErr("baseline compaction", err)
		} else {
			logging.Info("baseline compacted", map[string]any{"entries": index.Len()})
		}
	}
	classifier := classify.New(root, state.DirName, cfg.Monitor.Extensions, index)

	eventLog, err := logging.OpenEventLog(st.EventLogPath())
	if err != nil {
		return err
	}
	defer eventLog.Close()

	if index.Len() == 0 {
		term := progress.NewTerminal("scan", 0, !jsonOutput && color.Enabled())
		n, err := baseline.Build(root, index, classifier.Track, term.Callback())
		if err != nil {
			return fmt.Errorf("baseline scan: %w", err)
		}
		term.Done(fmt.Sprintf("%d files", n))
		eventLog.Log(logging.EventInit, "baseline built with %d entries", n)
	} else {
		eventLog.Log(logging.EventInit, "baseline loaded with %d entries", index.Len())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rules := auditq.NewExecRules(cfg.Audit.Key, cfg.AuditTimeout())
	if err := rules.Install(ctx, root); err != nil {
		return errclass.ErrAuditUnavailable.WithMessagef("install audit rule: %v", err)
	}
	defer func() {
		// Detached context: rule removal must survive the cancelled one.
		if err := rules.Remove(context.Background(), root); err != nil {
			logging.WarnErr("remove audit rule", err)
		}
	}()

	resolver := attribution.NewResolver(
		auditq.NewExecSource(cfg.Audit.Key, cfg.AuditTimeout()),
		session.NewSystemInspector(),
		cfg.AuditWindow(),
		cfg.AuditTimeout(),
	)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify.Desktop {
		notifier = notify.NewDesktop(cfg.NotifyTimeout())
	}

	var hooks *webhook.Client
	if cfg.Webhook.Enabled {
		hooks = webhook.NewClient(&webhook.Config{
			Enabled:    true,
			URL:        cfg.Webhook.URL,
			Secret:     cfg.Webhook.Secret,
			MaxRetries: 3,
		})
		hooks.SetErrorHandler(func(err error) {
			logging.WarnErr("webhook dispatch", err)
		})
		defer hooks.Close()
	}

	watcher, err := monitor.NewWatcher(root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	defer watcher.Close()

	reg := metrics.NewRegistry()
	loop := monitor.NewEventLoop(monitor.Options{
		Classifier: classifier,
		Index:      index,
		Resolver:   resolver,
		Gate:       gate.New(cfg.ThrottleWindow()),
		Journal:    journal.NewFileAppender(st.JournalPath()),
		EventLog:   eventLog,
		Notifier:   notifier,
		Hooks:      hooks,
		Metrics:    reg,
		MonitorID:  st.MonitorID,
		Root:       root,
	})

	eventLog.Log(logging.EventMonitor, "monitoring %s (monitor %s)", root, st.MonitorID)
	fmt.Printf("Monitoring %s (Ctrl-C to stop)\n", color.Path(root))

	err = loop.Run(ctx, watcher.Events())

	snap := reg.Snapshot()
	eventLog.Log(logging.EventMonitor,
		"monitor stopped (events seen %d, accepted %d, alerts %d, throttled %d, audit hits %d, fallbacks %d)",
		snap["events_seen"], snap["events_accepted"], snap["alerts_emitted"],
		snap["alerts_throttled"], snap["audit_hits"], snap["fallbacks"])

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func applyLogging(cfg *config.Config) {
	l := logging.NewLogger(logging.Level(cfg.Logging.Level))
	if cfg.Logging.Format != "" {
		l.SetFormat(logging.Format(cfg.Logging.Format))
	}
	logging.SetGlobal(l)
}
