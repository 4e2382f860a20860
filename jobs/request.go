package jobs

import (
	"time"

	"github.com/bio-mcp/bio-mcp-blast/blast"
)

// JobRequest describes one search to run remotely. It is passed by value and
// never modified after submission.
type JobRequest struct {
	Program     blast.Program
	Database    string
	Query       string
	ResultLimit int     // hits kept by Fetch; zero uses Config.ResultLimit
	EValue      float64 // expect threshold; zero leaves the service default
}

// Submission is what a transport returns for an accepted job
type Submission struct {
	ID            string
	EstimatedWait time.Duration // zero when the service gives no estimate
}

// Status is the client-side view of a remote job
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}
