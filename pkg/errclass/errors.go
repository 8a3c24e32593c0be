package errclass

import "fmt"

// VigilError is a stable, machine-readable error class.
type VigilError struct {
	Code    string
	Message string
}

func (e *VigilError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *VigilError) Is(target error) bool {
	t, ok := target.(*VigilError)
	return ok && e.Code == t.Code
}

// WithMessage returns a new VigilError with the same Code but a specific message.
func (e *VigilError) WithMessage(msg string) *VigilError {
	return &VigilError{Code: e.Code, Message: msg}
}

// WithMessagef returns a new VigilError with a formatted message.
func (e *VigilError) WithMessagef(format string, args ...any) *VigilError {
	return &VigilError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// All stable error classes.
var (
	// Fatal startup errors: abort before entering the event loop.
	ErrNotRoot          = &VigilError{Code: "E_NOT_ROOT"}
	ErrTargetInvalid    = &VigilError{Code: "E_TARGET_INVALID"}
	ErrAuditUnavailable = &VigilError{Code: "E_AUDIT_UNAVAILABLE"}
	ErrStateDirInvalid  = &VigilError{Code: "E_STATE_DIR_INVALID"}
	ErrAlreadyRunning   = &VigilError{Code: "E_ALREADY_RUNNING"}

	// Degraded-operation errors: logged, never escalate past the
	// component that produced them.
	ErrBaselineCorrupt = &VigilError{Code: "E_BASELINE_CORRUPT"}
	ErrBaselineWrite   = &VigilError{Code: "E_BASELINE_WRITE"}
	ErrJournalBroken   = &VigilError{Code: "E_JOURNAL_BROKEN"}
	ErrNotifyFailed    = &VigilError{Code: "E_NOTIFY_FAILED"}

	// Validation errors.
	ErrNameInvalid = &VigilError{Code: "E_NAME_INVALID"}
	ErrPathEscape  = &VigilError{Code: "E_PATH_ESCAPE"}
)
