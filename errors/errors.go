// Package errors is the error vocabulary of bio-mcp-blast.
//
// It re-exports github.com/cockroachdb/errors so every package wraps, marks
// and inspects errors the same way:
//
//	if err := runner.Search(ctx, req); err != nil {
//	    return errors.Wrap(err, "blastn search")
//	}
//
//	// Keep a sentinel detectable after wrapping
//	return errors.Mark(errors.Wrap(err, "submit"), jobs.ErrSubmission)
//
//	// Attach advice for the person reading the tool output
//	return errors.WithHint(err, "install NCBI BLAST+ and put it on PATH")
//
// Tool handlers render errors with FormatForUser, which appends hints.
package errors

import (
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapOnce     = crdb.UnwrapOnce
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Sentinels shared across packages. Package-specific kinds (jobs.ErrPoll and
// friends) live next to the code that returns them.
var (
	// ErrNotFound indicates the remote job or local file does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates malformed tool arguments
	ErrInvalidRequest = New("invalid request")

	// ErrServiceUnavailable indicates the remote service answered with a 5xx or
	// could not be reached
	ErrServiceUnavailable = New("service unavailable")

	// ErrTimeout indicates an operation ran out of time
	ErrTimeout = New("operation timed out")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsServiceUnavailableError checks if an error is or wraps ErrServiceUnavailable
func IsServiceUnavailableError(err error) bool {
	return err != nil && Is(err, ErrServiceUnavailable)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrInvalidRequest)
}

// FormatForUser renders err as text for a tool result: the message chain
// followed by any hints, one per line.
func FormatForUser(err error) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(err.Error())
	for _, hint := range GetAllHints(err) {
		b.WriteString("\nHint: ")
		b.WriteString(hint)
	}
	return b.String()
}
