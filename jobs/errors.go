package jobs

import (
	"fmt"

	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// Error kinds. Each error returned by Client is marked with exactly one of
// these so callers can branch with errors.Is.
var (
	// ErrValidation: the request was rejected before any network call
	ErrValidation = errors.New("invalid job request")
	// ErrSubmission: the service did not accept the job or returned no identifier
	ErrSubmission = errors.New("job submission failed")
	// ErrPoll: a status request failed or returned an unrecognized status
	ErrPoll = errors.New("job status request failed")
	// ErrTimeout: polling exhausted its attempt ceiling or wall-clock budget
	ErrTimeout = errors.New("job timed out")
	// ErrFetch: the result could not be retrieved or decoded
	ErrFetch = errors.New("job result fetch failed")
	// ErrJobFailed: the service reported the job as failed
	ErrJobFailed = errors.New("job failed remotely")
	// ErrNotReady: a precondition on the handle's state does not hold
	ErrNotReady = errors.New("job not ready")
)

// ErrMalformed is attached by transports to result payloads that do not
// decode. Fetch errors carrying it are never retried.
var ErrMalformed = errors.New("malformed result payload")

// FinalError is returned by RunWithRetry once every attempt has failed
type FinalError struct {
	Attempts int
	Last     error
}

func (e *FinalError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *FinalError) Unwrap() error {
	return e.Last
}

// retryable reports whether a failed attempt should be repeated from submission
func retryable(err error) bool {
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrMalformed) {
		return false
	}
	return errors.IsAny(err, ErrSubmission, ErrPoll, ErrTimeout, ErrFetch, ErrJobFailed)
}
