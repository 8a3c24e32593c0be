// Package progress provides progress reporting for the initial
// baseline scan.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// Callback receives progress updates during long operations.
type Callback func(op string, current, total int, message string)

// Noop is a no-op callback for default behavior.
func Noop(op string, current, total int, message string) {}

// Progress tracks operation progress.
type Progress struct {
	Op      string
	Total   int
	current int
	cb      Callback
}

// New creates a new Progress tracker.
func New(op string, total int, cb Callback) *Progress {
	if cb == nil {
		cb = Noop
	}
	return &Progress{Op: op, Total: total, cb: cb}
}

// Increment advances the progress and calls the callback.
func (p *Progress) Increment(message string) {
	p.current++
	p.cb(p.Op, p.current, p.Total, message)
}

// Done marks the operation as complete.
func (p *Progress) Done(message string) {
	p.current = p.Total
	p.cb(p.Op, p.current, p.Total, message)
}

// Current returns the current progress value.
func (p *Progress) Current() int {
	return p.current
}

// Terminal provides a terminal-based progress bar.
type Terminal struct {
	writer      io.Writer
	op          string
	total       atomic.Int64
	current     atomic.Int64
	lastLineLen atomic.Int64
	enabled     atomic.Bool
}

// NewTerminal creates a new terminal progress bar. A zero total is
// fine; callbacks carry the real total once the operation knows it.
func NewTerminal(op string, total int, enabled bool) *Terminal {
	t := &Terminal{
		writer: os.Stderr,
		op:     op,
	}
	t.total.Store(int64(total))
	t.enabled.Store(enabled)
	return t
}

// Callback returns a Callback function for this terminal.
func (t *Terminal) Callback() Callback {
	return func(op string, current, total int, message string) {
		if !t.enabled.Load() {
			return
		}
		t.current.Store(int64(current))
		if total > 0 {
			t.total.Store(int64(total))
		}
		t.render(message)
	}
}

// render draws the progress bar.
func (t *Terminal) render(message string) {
	current := t.current.Load()
	total := t.total.Load()
	if total <= 0 {
		total = 1
	}

	percentage := float64(current) / float64(total) * 100

	barWidth := 30
	filled := int(float64(barWidth) * float64(current) / float64(total))
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)

	clear := "\r"
	if lastLen := t.lastLineLen.Load(); lastLen > 0 {
		clear = "\r" + strings.Repeat(" ", int(lastLen)) + "\r"
	}

	line := fmt.Sprintf("%s%s [%s] %d/%d (%.0f%%)", clear, t.op, bar, current, total, percentage)
	if message != "" {
		line += " " + message
	}

	fmt.Fprint(t.writer, line)
	t.lastLineLen.Store(int64(len(line)))
}

// Done marks the operation as complete and prints a final newline.
func (t *Terminal) Done(message string) {
	if !t.enabled.Load() {
		return
	}
	t.current.Store(t.total.Load())
	t.render(message)
	fmt.Fprintln(t.writer)
}

// SetEnabled enables or disables the progress bar.
func (t *Terminal) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}
