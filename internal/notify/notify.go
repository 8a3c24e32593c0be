// Package notify dispatches best-effort alerts. Sinks must never
// block or crash the event loop: failures surface as errors the loop
// logs and moves past.
package notify

import (
	"context"
	"os/exec"
	"time"

	"github.com/vigil-project/vigil/pkg/errclass"
)

// Notifier delivers one alert.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Desktop sends alerts via notify-send, fire-and-forget.
type Desktop struct {
	Timeout time.Duration

	run func(ctx context.Context, name string, args ...string) error
}

// NewDesktop creates a notify-send backed Notifier.
func NewDesktop(timeout time.Duration) *Desktop {
	return &Desktop{
		Timeout: timeout,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Notify dispatches one desktop notification. A missing notify-send
// binary or an absent display is an error for logging, nothing more.
func (d *Desktop) Notify(ctx context.Context, title, body string) error {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	if err := d.run(ctx, "notify-send", "--urgency=critical", title, body); err != nil {
		return errclass.ErrNotifyFailed.WithMessagef("notify-send: %v", err)
	}
	return nil
}

// Multi fans an alert out to several sinks, collecting the first
// error but attempting every sink.
type Multi []Notifier

// Notify sends to all sinks.
func (m Multi) Notify(ctx context.Context, title, body string) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, title, body); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Noop discards alerts, used when desktop notification is disabled.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(ctx context.Context, title, body string) error { return nil }
