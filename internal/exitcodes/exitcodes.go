// Package exitcodes defines standard exit codes for dmctl commands so
// scripts and schedulers can tell retryable failures from permanent ones.
package exitcodes

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"

	"github.com/johndauphine/go-dm/internal/naming"
)

// Exit codes. Connection, cancellation and I/O failures are worth
// retrying; the rest are not.
const (
	Success         = 0
	ConfigError     = 1 // config parsing or validation
	ConnectionError = 2 // connect, ping or login
	SchemaError     = 3 // DDL compilation, identifier generation, CREATE/ALTER failures
	QueryError      = 4 // a statement was rejected
	Cancelled       = 5 // SIGINT/SIGTERM or a deadline
	IOError         = 7 // files, run history
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// FromError determines the appropriate exit code for an error.
// Known sentinel errors are matched first; the message is inspected only
// for errors that carry no type information.
func FromError(err error) int {
	if err == nil {
		return Success
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Cancelled
	case errors.Is(err, naming.ErrInvalidArgument), errors.Is(err, naming.ErrLengthBudgetExceeded):
		return SchemaError
	case errors.Is(err, sql.ErrConnDone):
		return ConnectionError
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, sql.ErrTxDone):
		return QueryError
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return IOError
	}

	msg := strings.ToLower(err.Error())
	for _, c := range messageClasses {
		if containsAny(msg, c.markers) && !containsAny(msg, c.unless) {
			return c.code
		}
	}
	return QueryError
}

// messageClasses classifies untyped errors by message, first match wins.
var messageClasses = []struct {
	code    int
	markers []string
	unless  []string
}{
	{IOError, []string{"no such file", "file not found", "permission denied", "is a directory", "not a directory"}, nil},
	{ConfigError, []string{"yaml:", "toml:", "unmarshal", "invalid configuration", "missing required", "invalid value", "parsing config", "unknown database driver"},
		[]string{"connection", "connect", "dial"}},
	{ConnectionError, []string{"connection", "connect", "dial", "refused", "timeout", "unreachable", "no such host", "network", "ping", "login failed", "authentication", "unknown driver"}, nil},
	{SchemaError, []string{"blueprint", "creating table", "create table", "drop table", "alter table", "create index", "constraint"}, nil},
	{Cancelled, []string{"cancel", "interrupt"}, nil},
}

// IsRecoverable returns true if the error is recoverable (safe to retry).
func IsRecoverable(code int) bool {
	switch code {
	case ConnectionError, Cancelled, IOError:
		return true
	default:
		return false
	}
}

var descriptions = map[int]string{
	Success:         "success",
	ConfigError:     "configuration error",
	ConnectionError: "connection error",
	SchemaError:     "schema error",
	QueryError:      "query error",
	Cancelled:       "cancelled",
	IOError:         "I/O error",
}

// Description returns a human-readable description of the exit code.
// Recoverable codes are marked as such.
func Description(code int) string {
	d, ok := descriptions[code]
	if !ok {
		return "unknown error"
	}
	if IsRecoverable(code) {
		d += " (recoverable)"
	}
	return d
}

func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
