package engine

import "fmt"

// ErrorType categorizes engine invocation failures. The distinction matters
// to operators: a timeout calls for a smaller diff, a process failure calls
// for investigating engine health, and parse/schema failures point at the
// engine's output contract.
type ErrorType int

const (
	// ErrTypeTimeout means the engine exceeded its wall-clock budget.
	ErrTypeTimeout ErrorType = iota
	// ErrTypeProcess means the subprocess exited abnormally or reported
	// an error in its envelope.
	ErrTypeProcess
	// ErrTypeParse means the envelope or its embedded result could not
	// be parsed as JSON.
	ErrTypeParse
	// ErrTypeSchema means the parsed result did not conform to the
	// expected findings schema.
	ErrTypeSchema
)

// String returns a human-readable description of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTimeout:
		return "engine timeout"
	case ErrTypeProcess:
		return "engine process failure"
	case ErrTypeParse:
		return "response parse failure"
	case ErrTypeSchema:
		return "schema validation failure"
	default:
		return "unknown failure"
	}
}

// Error is a typed engine failure.
type Error struct {
	Type     ErrorType
	Message  string
	ExitCode int // meaningful only for ErrTypeProcess
}

func (e *Error) Error() string {
	if e.Type == ErrTypeProcess && e.ExitCode != 0 {
		return fmt.Sprintf("%s (exit code %d): %s", e.Type, e.ExitCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Is matches on error type, enabling errors.Is against a prototype.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Guidance returns the operator-facing corrective hint for this failure.
func (e *Error) Guidance() string {
	switch e.Type {
	case ErrTypeTimeout:
		return "the engine ran out of time; try reducing the diff size or raising the timeout"
	case ErrTypeProcess:
		return "the engine process failed; check that the engine binary is installed and healthy"
	case ErrTypeParse, ErrTypeSchema:
		return "the engine returned output it should not have; rerunning usually helps"
	default:
		return ""
	}
}

func newTimeoutError(mode string, limit string) *Error {
	return &Error{Type: ErrTypeTimeout, Message: fmt.Sprintf("%s mode exceeded %s", mode, limit)}
}

func newProcessError(exitCode int, message string) *Error {
	return &Error{Type: ErrTypeProcess, ExitCode: exitCode, Message: message}
}

func newParseError(format string, args ...interface{}) *Error {
	return &Error{Type: ErrTypeParse, Message: fmt.Sprintf(format, args...)}
}

func newSchemaError(format string, args ...interface{}) *Error {
	return &Error{Type: ErrTypeSchema, Message: fmt.Sprintf(format, args...)}
}

// IsTimeout reports whether err is an engine timeout. Bounded mode uses
// this to decide that a retry would waste the budget.
func IsTimeout(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Type == ErrTypeTimeout
}
