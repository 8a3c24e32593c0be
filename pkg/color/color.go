// Package color provides terminal color output support for vigil.
// It respects the NO_COLOR environment variable (https://no-color.org/).
package color

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// colorState holds the global color configuration.
var (
	state struct {
		enabled  bool
		once     sync.Once
		disabled bool
	}
)

// Init initializes the color system based on environment and flags.
// It respects the NO_COLOR environment variable (https://no-color.org/)
// and can be disabled programmatically.
func Init(noColorFlag bool) {
	state.once.Do(func() {
		if _, exists := os.LookupEnv("NO_COLOR"); exists {
			state.disabled = true
		}
		if term := os.Getenv("TERM"); term == "dumb" {
			state.disabled = true
		}
		if noColorFlag {
			state.disabled = true
		}
		state.enabled = !state.disabled
	})
}

// Enabled returns true if color output is enabled.
func Enabled() bool {
	Init(false) // Ensure initialized
	return state.enabled
}

// Disable turns off color output.
func Disable() {
	state.disabled = true
	state.enabled = false
}

// Enable turns on color output.
func Enable() {
	state.disabled = false
	state.enabled = true
}

// ANSI color codes
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	DimCode = "\033[2m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m"
)

// colorFunc is a function that wraps text with color codes.
type colorFunc func(string) string

// makeColorFunc creates a color function that applies the given color codes.
func makeColorFunc(codes ...string) colorFunc {
	return func(s string) string {
		if !Enabled() {
			return s
		}
		code := strings.Join(codes, "")
		return code + s + Reset
	}
}

// Pre-defined color functions
var (
	Redf     = makeColorFunc(Red)
	Greenf   = makeColorFunc(Green)
	Yellowf  = makeColorFunc(Yellow)
	Bluef    = makeColorFunc(Blue)
	Magentaf = makeColorFunc(Magenta)
	Cyanf    = makeColorFunc(Cyan)
	Grayf    = makeColorFunc(Gray)
	Boldf    = makeColorFunc(Bold)
	Dimf     = makeColorFunc(DimCode)
)

// Specialized formatting functions for common vigil elements

// Success formats a success message in green.
func Success(s string) string {
	return Greenf(s)
}

// Error formats an error message in red.
func Error(s string) string {
	return Redf(s)
}

// Errorf formats an error message with printf-style arguments.
func Errorf(format string, args ...any) string {
	return Redf(fmt.Sprintf(format, args...))
}

// Warning formats a warning message in yellow.
func Warning(s string) string {
	return Yellowf(s)
}

// Info formats an informational message in cyan.
func Info(s string) string {
	return Cyanf(s)
}

// Path formats a monitored file path in cyan (for visibility).
func Path(s string) string {
	return Cyanf(s)
}

// Actor formats an attribution summary in blue.
func Actor(s string) string {
	return Bluef(s)
}

// Hash formats a content hash in dimmed text.
func Hash(s string) string {
	return Dimf(s)
}

// Header formats a header in bold.
func Header(s string) string {
	return Boldf(s)
}
