package jobs

import (
	"sync"
	"sync/atomic"
	"time"
)

// Handle tracks one submitted job. Its status only changes through Poll and
// stops changing once Ready or Failed.
type Handle struct {
	RequestID     string
	SubmittedAt   time.Time
	EstimatedWait time.Duration

	request JobRequest
	limit   int

	mu      sync.Mutex
	status  Status
	polling atomic.Bool
}

// NewHandle rebuilds a handle for a job submitted earlier, e.g. from an ID a
// user pasted back. Its status starts as Pending.
func NewHandle(id string, limit int) *Handle {
	return &Handle{RequestID: id, SubmittedAt: time.Now(), limit: limit, status: StatusPending}
}

// Status returns the last status observed by Poll
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Request returns the request the handle was submitted with
func (h *Handle) Request() JobRequest {
	return h.request
}

// Limit is the number of hits Fetch keeps
func (h *Handle) Limit() int {
	return h.limit
}

// setStatus records s unless the handle is already terminal and returns the
// status in effect afterwards
func (h *Handle) setStatus(s Status) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.status.Terminal() {
		h.status = s
	}
	return h.status
}
